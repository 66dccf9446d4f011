package feed

import (
	"context"
	"sync"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/news"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Options configures a Controller.
type Options struct {
	PageSize int
	Policy   TagPolicy
	// Narrow hides cards whose topics miss the selected tags.
	Narrow bool
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := ParseTagPolicy(cfg.Feed.TagPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		PageSize: cfg.API.PageSize,
		Policy:   policy,
		Narrow:   cfg.Feed.NarrowDisplay,
	}, nil
}

// Snapshot is a read-only view of the controller state. Cards is never
// mutated after the snapshot is taken.
type Snapshot struct {
	Status  Status
	Cards   []news.Card
	Offset  int
	Limit   int
	Total   int
	Filter  Filter
	Message string
	Err     error

	narrow bool
}

// HasMore reports whether the server announced cards past the offset.
func (s Snapshot) HasMore() bool {
	return s.Offset < s.Total
}

// Visible returns the cards to display. With narrowing on, only cards sharing
// a topic with the filter are kept.
func (s Snapshot) Visible() []news.Card {
	if !s.narrow || s.Filter.Empty() {
		return s.Cards
	}
	want := s.Filter.set()
	out := make([]news.Card, 0, len(s.Cards))
	for _, c := range s.Cards {
		if c.HasTopic(want) {
			out = append(out, c)
		}
	}
	return out
}

// Controller owns the loaded cards, the pagination cursor and the active
// filter. Every fetch is stamped with a generation; Refresh and filter
// changes start a new generation and responses from an older one are
// dropped. The lock is never held across a fetch.
type Controller struct {
	fetcher news.Fetcher
	opts    Options
	log     *debuglog.FieldLogger

	mu         sync.Mutex
	status     Status
	cards      []news.Card
	seen       map[string]struct{}
	offset     int
	total      int
	filter     Filter
	message    string
	err        error
	generation uint64
	completed  bool

	// loadedFilter is the filter of the last successful fetch.
	loadedFilter Filter

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewController(fetcher news.Fetcher, opts Options) *Controller {
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	return &Controller{
		fetcher: fetcher,
		opts:    opts,
		log:     debuglog.Component("feed"),
		seen:    make(map[string]struct{}),
		subs:    make(map[int]func(Snapshot)),
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Status:  c.status,
		Cards:   append([]news.Card(nil), c.cards...),
		Offset:  c.offset,
		Limit:   c.opts.PageSize,
		Total:   c.total,
		Filter:  c.filter,
		Message: c.message,
		Err:     c.err,
		narrow:  c.opts.Narrow,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify(s Snapshot) {
	c.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Refresh reloads the first page for filter and replaces the cards on
// success. On failure the previous cards are kept.
func (c *Controller) Refresh(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	gen := c.beginLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	return c.fetch(ctx, gen, filter, 0, true)
}

// LoadMore appends the next page. It does nothing while a fetch is in
// flight. A filter different from the active one is handled as a filter
// change.
func (c *Controller) LoadMore(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		c.log.Debugf("load more ignored: fetch in flight")
		return nil
	}
	if !filter.Equal(c.filter) {
		c.mu.Unlock()
		return c.ChangeFilter(ctx, filter)
	}

	c.status = StatusLoading
	gen := c.generation
	offset := c.offset
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	return c.fetch(ctx, gen, filter, offset, false)
}

// ChangeFilter discards the cards and reloads from offset 0 unless the
// current cards were loaded for filter.
func (c *Controller) ChangeFilter(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	if c.completed && filter.Equal(c.loadedFilter) {
		c.mu.Unlock()
		return nil
	}

	c.log.With("filter", filter.String()).Infof("filter changed")
	gen := c.beginLocked()
	c.cards = nil
	c.seen = make(map[string]struct{})
	c.offset = 0
	c.total = 0
	c.filter = filter
	c.completed = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	return c.fetch(ctx, gen, filter, 0, true)
}

// ClearError dismisses the last error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	if c.status != StatusError {
		c.mu.Unlock()
		return
	}
	c.message = ""
	c.err = nil
	if c.completed {
		c.status = StatusLoaded
	} else {
		c.status = StatusIdle
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Card fetches the full card for the detail view.
func (c *Controller) Card(ctx context.Context, id string) (*news.Card, error) {
	return c.fetcher.FetchByID(ctx, id)
}

func (c *Controller) beginLocked() uint64 {
	c.generation++
	c.status = StatusLoading
	c.message = ""
	c.err = nil
	return c.generation
}

func (c *Controller) fetch(ctx context.Context, gen uint64, filter Filter, offset int, replace bool) error {
	log := c.log.WithFields(map[string]any{
		"filter": filter.String(),
		"offset": offset,
		"gen":    gen,
	})

	page, err := c.fetcher.FetchLatest(ctx, c.opts.Policy.ServerTag(filter), c.opts.PageSize, offset)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debugf("dropping stale response")
		return nil
	}

	if err != nil {
		c.status = StatusError
		c.err = err
		c.message = Describe(err)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		log.Warnf("fetch failed: %v", err)
		c.notify(snap)
		return err
	}

	if replace {
		c.cards = nil
		c.seen = make(map[string]struct{}, len(page.Cards))
		c.offset = 0
	}
	for _, card := range page.Cards {
		if _, dup := c.seen[card.ID]; dup {
			continue
		}
		c.seen[card.ID] = struct{}{}
		c.cards = append(c.cards, card)
	}
	c.offset += len(page.Cards)
	c.total = page.Meta.Total
	c.filter = filter
	c.loadedFilter = filter
	c.status = StatusLoaded
	c.completed = true
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Debugf("received %d cards, %d loaded of %d", len(page.Cards), len(snap.Cards), snap.Total)
	c.notify(snap)
	return nil
}
