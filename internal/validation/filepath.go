package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePathValidator checks user supplied file locations (database, log,
// fixtures).
type FilePathValidator struct {
	// AllowHomeExpansion expands a leading "~/"
	AllowHomeExpansion bool
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

func NewFilePathValidator() *FilePathValidator {
	return &FilePathValidator{
		AllowHomeExpansion: true,
		MaxPathLength:      4096,
	}
}

// ValidateFile returns an absolute, cleaned path. It rejects control
// characters, ".." components and paths naming an existing directory.
func (v *FilePathValidator) ValidateFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	for _, char := range path {
		if char < 32 || char == 127 {
			return "", fmt.Errorf("path contains control characters")
		}
	}
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	expanded, err := v.expand(path)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}

	if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", abs)
	}
	return abs, nil
}

func (v *FilePathValidator) expand(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	if !v.AllowHomeExpansion || !strings.HasPrefix(path, "~/") {
		return "", fmt.Errorf("tilde expansion not allowed or invalid tilde usage")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
