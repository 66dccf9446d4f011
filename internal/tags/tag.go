package tags

import (
	"errors"
	"strings"
)

// Tag is a named topic the user can select to filter news.
type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsSelected bool   `json:"isSelected"`
	IsCustom   bool   `json:"isCustom"`
}

var (
	ErrNotFound  = errors.New("tag not found")
	ErrEmpty     = errors.New("tag name is empty")
	ErrDuplicate = errors.New("tag already exists")
)

// Predefined is the default tag set used on first launch and whenever the
// persisted tags cannot be read.
var Predefined = []string{
	"Technology", "AI", "Science", "Business", "Politics",
	"Sports", "Entertainment", "Health", "Environment", "Finance",
	"Gaming", "Travel", "Food", "Fashion", "Education",
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneTags(in []Tag) []Tag {
	if in == nil {
		return []Tag{}
	}
	return append([]Tag(nil), in...)
}
