package search

import "github.com/pders01/fragments/internal/feed"

// Searcher is the search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]Result, error)
}

// SnapshotListener is implemented by indexes that follow the feed
// controller.
type SnapshotListener interface {
	OnSnapshot(s feed.Snapshot)
}

// DebugStatser reports index size for the debug log.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one matching card.
type Result struct {
	CardID  string
	Title   string
	Score   float64
	Snippet string
}
