package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/fragments/internal/config"
)

func TestShowBanner(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	ShowBanner("1.0.0-test")

	w.Close()
	os.Stdout = old
	out := <-outC

	if !strings.Contains(out, "News Reader") {
		t.Errorf("Expected banner to contain 'News Reader', got: %s", out)
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("Expected banner to contain border characters, got: %s", out)
	}
	if !strings.Contains(out, "◆") {
		t.Errorf("Expected banner to contain separator symbols, got: %s", out)
	}
	if !strings.Contains(out, "v1.0.0-test") {
		t.Errorf("Expected banner to contain version 'v1.0.0-test', got: %s", out)
	}
}

func TestBannerText_DevVersion(t *testing.T) {
	out := BannerText("dev")
	assert.Contains(t, out, "News Reader")
	assert.NotContains(t, out, "vdev")
}

func TestGetCompactBanner(t *testing.T) {
	message := "Test message"
	result := GetCompactBanner(message)

	if !strings.Contains(result, message) {
		t.Errorf("Expected compact banner to contain '%s', got: %s", message, result)
	}
	if !strings.Contains(result, "▄▀▀") {
		t.Errorf("Expected compact banner to contain logo elements, got: %s", result)
	}
}

func TestGetWelcomeMessage(t *testing.T) {
	assert.Contains(t, GetWelcomeMessage(), "ctrl+r")
}

func TestApplyColors(t *testing.T) {
	origPrimary, origError := PrimaryColor, ErrorColor
	t.Cleanup(func() {
		ApplyColors(config.UIColors{Primary: string(origPrimary), Error: string(origError)})
	})

	ApplyColors(config.UIColors{Primary: "#123456"})
	assert.Equal(t, lipgloss.Color("#123456"), PrimaryColor)
	assert.Equal(t, origError, ErrorColor, "empty entries keep the built-in color")
}
