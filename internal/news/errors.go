package news

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrDecode         = errors.New("unexpected response body")
	ErrNotFound       = errors.New("news card not found")
)

// ServerError is returned for any HTTP status outside 200-299.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	if text := http.StatusText(e.Status); text != "" {
		return fmt.Sprintf("server error: %d %s", e.Status, text)
	}
	return fmt.Sprintf("server error: %d", e.Status)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
