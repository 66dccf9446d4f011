package media

import (
	"runtime"
	"testing"
)

func TestDetectType(t *testing.T) {
	d, err := NewTypeDetector()
	if err != nil {
		t.Fatalf("NewTypeDetector() error = %v", err)
	}

	tests := []struct {
		name     string
		url      string
		expected Type
	}{
		{name: "JPEG image", url: "http://example.com/photo.jpg", expected: TypeImage},
		{name: "JPEG image alt", url: "http://example.com/photo.jpeg", expected: TypeImage},
		{name: "PNG with query", url: "http://example.com/image.png?w=400", expected: TypeImage},
		{name: "WebP with fragment", url: "http://example.com/photo.webp#top", expected: TypeImage},
		{name: "Mixed case JPEG", url: "http://example.com/Photo.JpEg", expected: TypeImage},
		{name: "Image host without extension", url: "https://i.redd.it/abc123", expected: TypeImage},
		{name: "HTML page", url: "http://example.com/page.html", expected: TypePage},
		{name: "No extension", url: "http://example.com/resource", expected: TypeUnknown},
		{name: "Dot in host only", url: "http://example.com/", expected: TypeUnknown},
		{name: "Unknown extension", url: "http://example.com/file.xyz", expected: TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectType(tt.url); got != tt.expected {
				t.Errorf("DetectType(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestDefaultOpener(t *testing.T) {
	d, err := NewTypeDetector()
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "start"}
	want, ok := expected[runtime.GOOS]
	if !ok {
		want = "open"
	}
	if got := d.DefaultOpener(); got != want {
		t.Errorf("DefaultOpener() = %s, want %s", got, want)
	}
}

func TestViewerArgs(t *testing.T) {
	d := &TypeDetector{config: &TypesConfig{
		Viewers: map[string]ViewerConfig{
			"feh": {Args: []string{"--scale-down"}, ArgsDarwin: []string{"--mac"}, ArgsLinux: []string{"--linux"}, ArgsWindows: []string{"--win"}},
			"eog": {Args: []string{"--plain"}},
		},
	}}

	want := map[string]string{"darwin": "--mac", "linux": "--linux", "windows": "--win"}
	args := d.ViewerArgs("feh")
	if expected, ok := want[runtime.GOOS]; ok {
		if len(args) != 1 || args[0] != expected {
			t.Errorf("ViewerArgs(feh) = %v, want [%s]", args, expected)
		}
	}

	if args := d.ViewerArgs("eog"); len(args) != 1 || args[0] != "--plain" {
		t.Errorf("ViewerArgs(eog) = %v, want [--plain]", args)
	}
	if args := d.ViewerArgs("unknown"); args != nil {
		t.Errorf("ViewerArgs(unknown) = %v, want nil", args)
	}
}
