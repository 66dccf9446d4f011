package feed

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/pders01/fragments/internal/news"
)

// Describe turns a fetch error into a message fit for an alert.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var se *news.ServerError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return "The request was canceled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The news server took too long to answer."
	case errors.Is(err, news.ErrNotFound):
		return "That story is no longer available."
	case errors.As(err, &se):
		return fmt.Sprintf("The news server returned status %d.", se.Status)
	case errors.Is(err, news.ErrDecode):
		return "The news server sent a response that could not be read."
	case errors.Is(err, news.ErrInvalidRequest):
		return "The request was invalid. Check the API address in your config."
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "The news server took too long to answer."
		}
		return "Could not reach the news server."
	default:
		return fmt.Sprintf("Could not load news: %v", err)
	}
}
