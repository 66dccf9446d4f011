package feed

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/news"
)

func defaultOpts() Options {
	return Options{PageSize: 20, Policy: PolicyFirst, Narrow: true}
}

func ids(cards []news.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func waitCall(t *testing.T, g *gatedFetcher) *pendingCall {
	t.Helper()
	select {
	case pc := <-g.calls:
		return pc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return nil
	}
}

func TestController_InitialState(t *testing.T) {
	c := NewController(newFakeFetcher(nil), defaultOpts())
	snap := c.Snapshot()

	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Cards)
	assert.Zero(t, snap.Offset)
	assert.Equal(t, 20, snap.Limit)
	assert.True(t, snap.Filter.Empty())
	assert.False(t, snap.HasMore())
}

func TestController_RefreshThenLoadMore(t *testing.T) {
	corpus := makeCards(50, "AI", "Science")
	f := newFakeFetcher(corpus)
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))
	snap := c.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Len(t, snap.Cards, 20)
	assert.Equal(t, 20, snap.Offset)
	assert.Equal(t, 50, snap.Total)
	assert.True(t, snap.HasMore())

	require.NoError(t, c.LoadMore(ctx, Filter{}))
	snap = c.Snapshot()
	assert.Len(t, snap.Cards, 40)
	assert.Equal(t, 40, snap.Offset)

	assert.Equal(t, ids(corpus[:40]), ids(snap.Cards), "cards keep arrival order")

	seen := make(map[string]bool)
	for _, card := range snap.Cards {
		assert.False(t, seen[card.ID], "duplicate id %s", card.ID)
		seen[card.ID] = true
	}

	calls := f.calls
	require.Len(t, calls, 2)
	assert.Equal(t, fakeCall{limit: 20, offset: 0}, calls[0])
	assert.Equal(t, fakeCall{limit: 20, offset: 20}, calls[1])
}

func TestController_PagesUntilExhausted(t *testing.T) {
	f := newFakeFetcher(makeCards(45, "AI"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	for i, want := range []int{20, 40, 45} {
		require.NoError(t, c.LoadMore(ctx, Filter{}))
		snap := c.Snapshot()
		assert.Len(t, snap.Cards, want, "after load %d", i+1)
		assert.Equal(t, want, snap.Offset)
	}
	assert.False(t, c.Snapshot().HasMore())

	require.NoError(t, c.LoadMore(ctx, Filter{}))
	snap := c.Snapshot()
	assert.Len(t, snap.Cards, 45)
	assert.Equal(t, 45, snap.Offset)
	assert.Equal(t, StatusLoaded, snap.Status)
}

func TestController_RefreshReplacesCards(t *testing.T) {
	f := newFakeFetcher(makeCards(30, "AI"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))
	require.NoError(t, c.LoadMore(ctx, Filter{}))
	require.Len(t, c.Snapshot().Cards, 30)

	require.NoError(t, c.Refresh(ctx, Filter{}))
	snap := c.Snapshot()
	assert.Len(t, snap.Cards, 20)
	assert.Equal(t, 20, snap.Offset)
}

func TestController_ServerErrorKeepsCards(t *testing.T) {
	f := newFakeFetcher(makeCards(30, "AI"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))
	before := c.Snapshot()

	f.setErr(&news.ServerError{Status: http.StatusInternalServerError})
	err := c.Refresh(ctx, Filter{})
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Message, "500")
	assert.Equal(t, ids(before.Cards), ids(snap.Cards))
	assert.Equal(t, before.Offset, snap.Offset)

	err = c.LoadMore(ctx, Filter{})
	require.Error(t, err)
	assert.Equal(t, ids(before.Cards), ids(c.Snapshot().Cards))

	c.ClearError()
	snap = c.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Empty(t, snap.Message)
	assert.NoError(t, snap.Err)
}

func TestController_ClearErrorBeforeFirstLoad(t *testing.T) {
	f := newFakeFetcher(nil)
	f.setErr(errors.New("dial tcp: connection refused"))
	c := NewController(f, defaultOpts())

	require.Error(t, c.Refresh(context.Background(), Filter{}))
	assert.Equal(t, StatusError, c.Snapshot().Status)

	c.ClearError()
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestController_ChangeFilterResets(t *testing.T) {
	corpus := makeCards(60, "AI", "Science", "Sports")
	f := newFakeFetcher(corpus)
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))
	require.NoError(t, c.LoadMore(ctx, Filter{}))

	require.NoError(t, c.ChangeFilter(ctx, NewFilter("AI")))
	snap := c.Snapshot()
	assert.Equal(t, "ai", snap.Filter.Key())
	assert.Len(t, snap.Cards, 20)
	assert.Equal(t, 20, snap.Offset)
	for _, card := range snap.Cards {
		assert.Equal(t, []string{"AI"}, card.Topics)
	}

	last := f.calls[len(f.calls)-1]
	assert.Equal(t, fakeCall{tag: "ai", limit: 20, offset: 0}, last)

	// Same filter again is a no-op.
	n := f.callCount()
	require.NoError(t, c.ChangeFilter(ctx, NewFilter("ai")))
	assert.Equal(t, n, f.callCount())
}

func TestController_ChangeFilterRetriesAfterFailure(t *testing.T) {
	f := newFakeFetcher(makeCards(30, "AI", "Science"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))

	f.setErr(&news.ServerError{Status: http.StatusInternalServerError})
	require.Error(t, c.ChangeFilter(ctx, NewFilter("ai")))
	assert.Empty(t, c.Snapshot().Cards)

	c.ClearError()
	assert.Equal(t, StatusIdle, c.Snapshot().Status)

	f.setErr(nil)
	n := f.callCount()
	require.NoError(t, c.ChangeFilter(ctx, NewFilter("ai")))
	assert.Equal(t, n+1, f.callCount(), "a failed filter change is retried")

	snap := c.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Equal(t, "ai", snap.Filter.Key())
	assert.Len(t, snap.Cards, 15)
}

func TestController_ChangeFilterBackAfterFailedSwitch(t *testing.T) {
	f := newFakeFetcher(makeCards(30, "AI", "Science"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.ChangeFilter(ctx, NewFilter("ai")))

	f.setErr(errors.New("connection reset"))
	require.Error(t, c.ChangeFilter(ctx, NewFilter("science")))
	f.setErr(nil)

	require.NoError(t, c.ChangeFilter(ctx, NewFilter("ai")))
	snap := c.Snapshot()
	assert.Equal(t, "ai", snap.Filter.Key())
	assert.Len(t, snap.Cards, 15, "the discarded list is reloaded")
}

func TestController_LoadMoreWithNewFilterChangesFilter(t *testing.T) {
	f := newFakeFetcher(makeCards(60, "AI", "Science"))
	c := NewController(f, defaultOpts())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, Filter{}))
	require.NoError(t, c.LoadMore(ctx, NewFilter("science")))

	snap := c.Snapshot()
	assert.Equal(t, "science", snap.Filter.Key())
	assert.Len(t, snap.Cards, 20)
	assert.Equal(t, 20, snap.Offset)
}

func TestController_ChangeFilterDropsPendingLoadMore(t *testing.T) {
	g := newGatedFetcher(makeCards(60, "AI", "Science"))
	c := NewController(g, defaultOpts())
	ctx := context.Background()

	refreshDone := make(chan error, 1)
	go func() { refreshDone <- c.Refresh(ctx, Filter{}) }()
	close(waitCall(t, g).release)
	require.NoError(t, <-refreshDone)

	moreDone := make(chan error, 1)
	go func() { moreDone <- c.LoadMore(ctx, Filter{}) }()
	more := waitCall(t, g)
	assert.Equal(t, 20, more.offset)

	changeDone := make(chan error, 1)
	go func() { changeDone <- c.ChangeFilter(ctx, NewFilter("AI")) }()
	change := waitCall(t, g)
	assert.Zero(t, change.offset)
	require.NotNil(t, change.tag)
	assert.Equal(t, "ai", *change.tag)

	pending := c.Snapshot()
	assert.Equal(t, StatusLoading, pending.Status)
	assert.Empty(t, pending.Cards)
	assert.Zero(t, pending.Offset)

	// The old page arrives first and must be ignored.
	close(more.release)
	require.NoError(t, <-moreDone)
	assert.Empty(t, c.Snapshot().Cards)

	close(change.release)
	require.NoError(t, <-changeDone)

	snap := c.Snapshot()
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Equal(t, "ai", snap.Filter.Key())
	assert.Len(t, snap.Cards, 20)
	assert.Equal(t, 20, snap.Offset)
	for _, card := range snap.Cards {
		assert.Equal(t, []string{"AI"}, card.Topics)
	}
}

func TestController_StaleRefreshDropped(t *testing.T) {
	g := newGatedFetcher(makeCards(60, "AI", "Science"))
	c := NewController(g, defaultOpts())
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.ChangeFilter(ctx, NewFilter("science")) }()
	first := waitCall(t, g)

	secondDone := make(chan error, 1)
	go func() { secondDone <- c.ChangeFilter(ctx, NewFilter("ai")) }()
	second := waitCall(t, g)

	close(second.release)
	require.NoError(t, <-secondDone)
	close(first.release)
	require.NoError(t, <-firstDone)

	snap := c.Snapshot()
	assert.Equal(t, "ai", snap.Filter.Key())
	for _, card := range snap.Cards {
		assert.Equal(t, []string{"AI"}, card.Topics)
	}
}

func TestController_LoadMoreIgnoredWhileLoading(t *testing.T) {
	g := newGatedFetcher(makeCards(60, "AI"))
	c := NewController(g, defaultOpts())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx, Filter{}) }()
	pc := waitCall(t, g)

	require.NoError(t, c.LoadMore(ctx, Filter{}))
	select {
	case extra := <-g.calls:
		t.Fatalf("unexpected fetch at offset %d", extra.offset)
	default:
	}

	close(pc.release)
	require.NoError(t, <-done)
	assert.Len(t, c.Snapshot().Cards, 20)
}

func TestController_Subscribe(t *testing.T) {
	c := NewController(newFakeFetcher(makeCards(5, "AI")), defaultOpts())

	var mu sync.Mutex
	var statuses []Status
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	})

	require.NoError(t, c.Refresh(context.Background(), Filter{}))

	mu.Lock()
	assert.Equal(t, []Status{StatusLoading, StatusLoaded}, statuses)
	mu.Unlock()

	unsubscribe()
	require.NoError(t, c.Refresh(context.Background(), Filter{}))

	mu.Lock()
	assert.Len(t, statuses, 2)
	mu.Unlock()
}

func TestController_SubscriberMayCallBack(t *testing.T) {
	c := NewController(newFakeFetcher(makeCards(5, "AI")), defaultOpts())

	var got Snapshot
	c.Subscribe(func(Snapshot) {
		got = c.Snapshot()
	})

	require.NoError(t, c.Refresh(context.Background(), Filter{}))
	assert.Len(t, got.Cards, 5)
}

func TestSnapshot_Visible(t *testing.T) {
	corpus := []news.Card{
		{ID: "1", Title: "a", Topics: []string{"AI"}},
		{ID: "2", Title: "b", Topics: []string{"Sports"}},
		{ID: "3", Title: "c", Topics: []string{"science", "ai"}},
		{ID: "4", Title: "d"},
	}

	t.Run("narrowed", func(t *testing.T) {
		c := NewController(newFakeFetcher(corpus), Options{PageSize: 10, Policy: PolicyNone, Narrow: true})
		require.NoError(t, c.ChangeFilter(context.Background(), NewFilter("ai")))

		snap := c.Snapshot()
		assert.Len(t, snap.Cards, 4)
		assert.Equal(t, []string{"1", "3"}, ids(snap.Visible()))
	})

	t.Run("not narrowed", func(t *testing.T) {
		c := NewController(newFakeFetcher(corpus), Options{PageSize: 10, Policy: PolicyNone})
		require.NoError(t, c.ChangeFilter(context.Background(), NewFilter("ai")))
		assert.Len(t, c.Snapshot().Visible(), 4)
	})

	t.Run("empty filter shows all", func(t *testing.T) {
		c := NewController(newFakeFetcher(corpus), Options{PageSize: 10, Narrow: true})
		require.NoError(t, c.Refresh(context.Background(), Filter{}))
		assert.Len(t, c.Snapshot().Visible(), 4)
	})
}

func TestController_Card(t *testing.T) {
	c := NewController(newFakeFetcher(makeCards(3, "AI")), defaultOpts())

	card, err := c.Card(context.Background(), "card-001")
	require.NoError(t, err)
	assert.Equal(t, "Card 1", card.Title)

	_, err = c.Card(context.Background(), "nope")
	assert.True(t, errors.Is(err, news.ErrNotFound))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.TestConfig()
	cfg.API.PageSize = 7
	cfg.Feed.TagPolicy = "none"
	cfg.Feed.NarrowDisplay = false

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Options{PageSize: 7, Policy: PolicyNone, Narrow: false}, opts)

	cfg.Feed.TagPolicy = "bogus"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
