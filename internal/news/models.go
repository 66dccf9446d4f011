package news

import (
	"strings"
	"time"
)

// Card is one news item as served by the backend.
type Card struct {
	ID           string        `json:"id" validate:"required"`
	Title        string        `json:"title" validate:"required"`
	Summary      string        `json:"summary"`
	ImageURL     *string       `json:"imageUrl"`
	Date         string        `json:"date"`
	Topics       []string      `json:"topics"`
	Sources      []Reference   `json:"sources" validate:"dive"`
	RelatedCards []RelatedCard `json:"relatedCards" validate:"dive"`
	Content      *string       `json:"content"`
}

// Reference points at an article the card was built from.
type Reference struct {
	ID     string `json:"id" validate:"required"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Title  string `json:"title,omitempty"`
	Date   string `json:"date"`
}

type RelatedCard struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title"`
}

// Meta is the pagination block of a latest-news response.
type Meta struct {
	Total  int `json:"total" validate:"gte=0"`
	Limit  int `json:"limit" validate:"gte=0"`
	Offset int `json:"offset" validate:"gte=0"`
}

// Page is the decoded body of GET /news/latest.
type Page struct {
	Cards []Card `json:"cards" validate:"required,dive"`
	Meta  Meta   `json:"meta"`
}

type tagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// Published parses Date. The backend sends RFC 3339 timestamps, sometimes
// without the zone suffix.
func (c Card) Published() (time.Time, bool) {
	return parseDate(c.Date)
}

func (r Reference) Published() (time.Time, bool) {
	return parseDate(r.Date)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Body returns the long-form text, falling back to the summary.
func (c Card) Body() string {
	if c.Content != nil && strings.TrimSpace(*c.Content) != "" {
		return *c.Content
	}
	return c.Summary
}

// Image returns the image URL or "" when the card has none.
func (c Card) Image() string {
	if c.ImageURL == nil {
		return ""
	}
	return *c.ImageURL
}

// HasTopic reports whether any topic matches one of the lower-cased names.
func (c Card) HasTopic(lowerNames map[string]struct{}) bool {
	for _, t := range c.Topics {
		if _, ok := lowerNames[strings.ToLower(strings.TrimSpace(t))]; ok {
			return true
		}
	}
	return false
}
