package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgStarting    = "Loading…"
	MsgRefreshing  = "Refreshing…"
	MsgLoadingMore = "Loading more…"
	MsgLoadingCard = "Loading story…"
	MsgNoResults   = "No results"
	MsgNoImage     = "This story has no image"
	MsgNoSource    = "This story has no source link"
	MsgTagRemoved  = "Tag removed"
)

func MsgTagAdded(name string) string {
	return fmt.Sprintf("Added tag '%s'", strings.TrimSpace(name))
}

func MsgTagToggled(name string, selected bool) string {
	if selected {
		return fmt.Sprintf("Following '%s'", name)
	}
	return fmt.Sprintf("Stopped following '%s'", name)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgCardsSummary(shown, loaded, total int) string {
	base := fmt.Sprintf("%d stories", shown)
	if shown != loaded {
		base = fmt.Sprintf("%d of %d loaded stories", shown, loaded)
	}
	if total > loaded {
		base += fmt.Sprintf(" • %d more on server", total-loaded)
	}
	return base
}
