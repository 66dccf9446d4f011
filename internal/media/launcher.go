package media

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
)

// Launcher opens card images and source links with external programs.
type Launcher struct {
	imageViewer   string
	defaultOpener string
	detector      *TypeDetector
	log           *debuglog.FieldLogger

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	return newLauncher(cfg, exec.LookPath, startDetached)
}

func newLauncher(cfg *config.Config, lookPath func(string) (string, error), start func(*exec.Cmd) error) *Launcher {
	detector, err := NewTypeDetector()
	if err != nil {
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	l := &Launcher{
		detector: detector,
		log:      debuglog.Component("media"),
		lookPath: lookPath,
		start:    start,
	}

	l.defaultOpener = cfg.Media.DefaultOpener
	if l.defaultOpener == "" {
		l.defaultOpener = detector.DefaultOpener()
	}

	var viewers []string
	switch runtime.GOOS {
	case "darwin":
		viewers = cfg.Media.Darwin
	case "linux":
		viewers = cfg.Media.Linux
	case "windows":
		viewers = cfg.Media.Windows
	default:
		viewers = cfg.Media.Darwin
	}
	l.imageViewer = l.findCommand(viewers...)
	if l.imageViewer == "" {
		l.imageViewer = l.defaultOpener
	}

	return l
}

// Command builds the process that would open rawURL. Only http and https
// links are accepted.
func (l *Launcher) Command(rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}
	target := u.String()

	program := l.defaultOpener
	var args []string
	if l.detector.DetectType(target) == TypeImage {
		program = l.imageViewer
		args = append(args, l.detector.ViewerArgs(program)...)
	}
	if program == "" {
		return nil, fmt.Errorf("no application found to open URL")
	}

	// start is a cmd.exe builtin; the empty argument is the window title.
	if program == "start" {
		return exec.Command("cmd", "/c", "start", "", target), nil
	}
	return exec.Command(program, append(args, target)...), nil
}

// Open starts the program for rawURL without waiting for it.
func (l *Launcher) Open(rawURL string) error {
	cmd, err := l.Command(rawURL)
	if err != nil {
		return err
	}
	l.log.With("program", cmd.Path).Debugf("opening %s", rawURL)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	return nil
}

// IsImage reports whether rawURL looks like an image.
func (l *Launcher) IsImage(rawURL string) bool {
	return l.detector.DetectType(rawURL) == TypeImage
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, c := range commands {
		if _, err := l.lookPath(c); err == nil {
			return c
		}
	}
	return ""
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
