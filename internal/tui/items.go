package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/fragments/internal/news"
	"github.com/pders01/fragments/internal/search"
	"github.com/pders01/fragments/internal/tags"
)

type cardItem struct {
	card       news.Card
	maxSummary int
	maxTopics  int
}

func (i cardItem) Title() string { return i.card.Title }

func (i cardItem) Description() string {
	var parts []string
	if t, ok := i.card.Published(); ok {
		parts = append(parts, t.Local().Format("Jan 2 15:04"))
	}
	if topics := i.topics(); topics != "" {
		parts = append(parts, topics)
	}
	if i.card.Summary != "" {
		parts = append(parts, truncateEnd(i.card.Summary, i.maxSummary))
	}
	return strings.Join(parts, " • ")
}

func (i cardItem) FilterValue() string { return i.card.Title }

func (i cardItem) topics() string {
	topics := i.card.Topics
	if i.maxTopics > 0 && len(topics) > i.maxTopics {
		topics = topics[:i.maxTopics]
	}
	return strings.Join(topics, ", ")
}

type tagItem struct {
	tag tags.Tag
}

func (i tagItem) Title() string {
	mark := "[ ]"
	if i.tag.IsSelected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.tag.Name)
}

func (i tagItem) Description() string {
	if i.tag.IsCustom {
		return "custom topic"
	}
	return "topic"
}

func (i tagItem) FilterValue() string { return i.tag.Name }

type searchItem struct {
	result search.Result
}

func (i searchItem) Title() string { return i.result.Title }

func (i searchItem) Description() string { return i.result.Snippet }

func (i searchItem) FilterValue() string { return i.result.Title }
