package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pders01/fragments/internal/news"
)

// fakeFetcher serves a fixed corpus the way the backend does: optional tag
// match on topics, then limit/offset paging.
type fakeFetcher struct {
	mu     sync.Mutex
	corpus []news.Card
	err    error
	calls  []fakeCall
}

type fakeCall struct {
	tag    string
	limit  int
	offset int
}

func newFakeFetcher(cards []news.Card) *fakeFetcher {
	return &fakeFetcher{corpus: cards}
}

func makeCards(n int, topics ...string) []news.Card {
	cards := make([]news.Card, n)
	for i := range cards {
		cards[i] = news.Card{
			ID:     fmt.Sprintf("card-%03d", i),
			Title:  fmt.Sprintf("Card %d", i),
			Topics: []string{topics[i%len(topics)]},
		}
	}
	return cards
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) FetchLatest(ctx context.Context, tag *string, limit, offset int) (*news.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := fakeCall{limit: limit, offset: offset}
	if tag != nil {
		call.tag = *tag
	}
	f.calls = append(f.calls, call)

	if f.err != nil {
		return nil, f.err
	}

	var matched []news.Card
	for _, c := range f.corpus {
		if tag == nil {
			matched = append(matched, c)
			continue
		}
		for _, t := range c.Topics {
			if strings.EqualFold(t, *tag) {
				matched = append(matched, c)
				break
			}
		}
	}

	page := &news.Page{Cards: []news.Card{}, Meta: news.Meta{Total: len(matched), Limit: limit, Offset: offset}}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Cards = append(page.Cards, matched[offset:end]...)
	}
	return page, nil
}

func (f *fakeFetcher) FetchByID(ctx context.Context, id string) (*news.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.corpus {
		if c.ID == id {
			card := c
			return &card, nil
		}
	}
	return nil, news.ErrNotFound
}

func (f *fakeFetcher) FetchTags(ctx context.Context) ([]string, error) {
	return nil, nil
}

// gatedFetcher holds every FetchLatest until the test releases it.
type gatedFetcher struct {
	*fakeFetcher
	calls chan *pendingCall
}

type pendingCall struct {
	tag     *string
	offset  int
	release chan struct{}
}

func newGatedFetcher(cards []news.Card) *gatedFetcher {
	return &gatedFetcher{
		fakeFetcher: newFakeFetcher(cards),
		calls:       make(chan *pendingCall, 8),
	}
}

func (g *gatedFetcher) FetchLatest(ctx context.Context, tag *string, limit, offset int) (*news.Page, error) {
	pc := &pendingCall{tag: tag, offset: offset, release: make(chan struct{})}
	g.calls <- pc
	select {
	case <-pc.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.fakeFetcher.FetchLatest(ctx, tag, limit, offset)
}
