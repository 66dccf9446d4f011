package media

import (
	_ "embed"
	"fmt"
	"net/url"
	"path"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

type Type int

const (
	TypeUnknown Type = iota
	TypeImage
	TypePage
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypePage:
		return "page"
	default:
		return "unknown"
	}
}

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

// ViewerConfig holds the extra arguments passed to an image viewer.
type ViewerConfig struct {
	Args        []string `toml:"args"`
	ArgsDarwin  []string `toml:"args_darwin"`
	ArgsLinux   []string `toml:"args_linux"`
	ArgsWindows []string `toml:"args_windows"`
}

type TypesConfig struct {
	Image     TypeConfig                `toml:"image"`
	Page      TypeConfig                `toml:"page"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
	Viewers   map[string]ViewerConfig   `toml:"viewers"`
}

// TypeDetector classifies links by extension, then by URL pattern.
type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var cfg TypesConfig
	if err := toml.Unmarshal(mediaTypesTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing media_types.toml: %w", err)
	}
	return &TypeDetector{config: &cfg}, nil
}

func (d *TypeDetector) DetectType(rawURL string) Type {
	lower := strings.ToLower(strings.TrimSpace(rawURL))

	p := lower
	if u, err := url.Parse(lower); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")

	if ext != "" {
		if contains(d.config.Image.Extensions, ext) {
			return TypeImage
		}
		if contains(d.config.Page.Extensions, ext) {
			return TypePage
		}
	}
	for _, pattern := range d.config.Image.URLPatterns {
		if strings.Contains(lower, pattern) {
			return TypeImage
		}
	}
	return TypeUnknown
}

// DefaultOpener returns the platform's opener from the table.
func (d *TypeDetector) DefaultOpener() string {
	if pc, ok := d.config.Platforms[runtime.GOOS]; ok && pc.DefaultOpener != "" {
		return pc.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok && fallback.DefaultOpener != "" {
		return fallback.DefaultOpener
	}
	return "open"
}

// ViewerArgs returns the arguments for viewer on the current platform.
func (d *TypeDetector) ViewerArgs(viewer string) []string {
	vc, ok := d.config.Viewers[viewer]
	if !ok {
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		if len(vc.ArgsDarwin) > 0 {
			return vc.ArgsDarwin
		}
	case "linux":
		if len(vc.ArgsLinux) > 0 {
			return vc.ArgsLinux
		}
	case "windows":
		if len(vc.ArgsWindows) > 0 {
			return vc.ArgsWindows
		}
	}
	return vc.Args
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
