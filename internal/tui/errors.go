package tui

import (
	"errors"

	"github.com/pders01/fragments/internal/feed"
	"github.com/pders01/fragments/internal/news"
	"github.com/pders01/fragments/internal/tags"
)

// actionError names the user action that failed.
type actionError struct {
	action string
	err    error
}

func (e *actionError) Error() string { return e.action + ": " + e.err.Error() }
func (e *actionError) Unwrap() error { return e.err }

func failed(action string, err error) error {
	if err == nil {
		return nil
	}
	return &actionError{action: action, err: err}
}

// isTagError reports errors caused by the tag mutation itself rather than
// the reload that follows it.
func isTagError(err error) bool {
	return errors.Is(err, tags.ErrEmpty) ||
		errors.Is(err, tags.ErrDuplicate) ||
		errors.Is(err, tags.ErrNotFound)
}

// errorStatus picks the status line and its kind for err. Rejected input
// and vanished stories are warnings.
func errorStatus(err error) (string, StatusKind) {
	var ae *actionError
	switch {
	case isTagError(err):
		return err.Error(), StatusWarn
	case errors.Is(err, news.ErrNotFound):
		return feed.Describe(err), StatusWarn
	case errors.As(err, &ae):
		return err.Error(), StatusError
	default:
		return feed.Describe(err), StatusError
	}
}
