package devserver

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pders01/fragments/internal/news"
)

// Corpus is the in-memory card set served by the dev backend, newest first.
type Corpus struct {
	mu    sync.RWMutex
	cards []news.Card
	byID  map[string]int
}

func NewCorpus(cards []news.Card) *Corpus {
	c := &Corpus{}
	c.Replace(cards)
	return c
}

// LoadFixtures reads a JSON file holding either an array of cards or a
// latest-news response body.
func LoadFixtures(path string) ([]news.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return decodeFixtures(data)
}

func decodeFixtures(data []byte) ([]news.Card, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var cards []news.Card
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("decoding fixtures: %w", err)
		}
		return cards, nil
	}

	var page news.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decoding fixtures: %w", err)
	}
	return page.Cards, nil
}

// Replace swaps the whole card set. Cards without an id are dropped and
// later duplicates of an id are ignored.
func (c *Corpus) Replace(cards []news.Card) {
	kept := make([]news.Card, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		if card.ID == "" {
			continue
		}
		if _, dup := seen[card.ID]; dup {
			continue
		}
		seen[card.ID] = struct{}{}
		kept = append(kept, card)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ti, oki := kept[i].Published()
		tj, okj := kept[j].Published()
		switch {
		case oki && okj:
			return ti.After(tj)
		case oki != okj:
			return oki
		default:
			return false
		}
	})

	byID := make(map[string]int, len(kept))
	for i, card := range kept {
		byID[card.ID] = i
	}

	c.mu.Lock()
	c.cards = kept
	c.byID = byID
	c.mu.Unlock()
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// Latest pages through the cards matching tag. An empty tag matches all.
func (c *Corpus) Latest(tag string, limit, offset int) news.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tag = strings.ToLower(strings.TrimSpace(tag))
	matched := c.cards
	if tag != "" {
		want := map[string]struct{}{tag: {}}
		matched = make([]news.Card, 0, len(c.cards))
		for _, card := range c.cards {
			if card.HasTopic(want) {
				matched = append(matched, card)
			}
		}
	}

	page := news.Page{
		Cards: []news.Card{},
		Meta:  news.Meta{Total: len(matched), Limit: limit, Offset: offset},
	}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Cards = append(page.Cards, matched[offset:end]...)
	}
	return page
}

func (c *Corpus) Card(id string) (news.Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return news.Card{}, false
	}
	return c.cards[i], true
}

// Tags returns the distinct topics, sorted case-insensitively. The first
// spelling seen wins.
func (c *Corpus) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	tags := []string{}
	for _, card := range c.cards {
		for _, t := range card.Topics {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})
	return tags
}
