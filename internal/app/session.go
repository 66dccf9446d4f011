package app

import (
	"context"
	"fmt"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/feed"
	"github.com/pders01/fragments/internal/news"
	"github.com/pders01/fragments/internal/storage"
	"github.com/pders01/fragments/internal/tags"
	"github.com/pders01/fragments/internal/validation"
)

// Session couples the tag set to the feed: every tag mutation is followed
// by a filter change on the controller.
type Session struct {
	tags    *tags.Store
	fetcher news.Fetcher
	feed    *feed.Controller
	store   *storage.Store
	log     *debuglog.FieldLogger
}

func NewSession(tagStore *tags.Store, fetcher news.Fetcher, controller *feed.Controller) *Session {
	return &Session{
		tags:    tagStore,
		fetcher: fetcher,
		feed:    controller,
		log:     debuglog.Component("session"),
	}
}

// Open builds a session from configuration: the bbolt store, the API client
// and the feed controller. Close releases the store.
func Open(cfg *config.Config) (*Session, error) {
	dbPath, err := validation.NewFilePathValidator().ValidateFile(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	store, err := storage.NewStoreWithTimeout(dbPath, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	client, err := news.NewClient(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts, err := feed.OptionsFromConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := NewSession(tags.NewStore(store), client, feed.NewController(client, opts))
	s.store = store
	return s, nil
}

func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Session) Tags() *tags.Store {
	return s.tags
}

func (s *Session) Feed() *feed.Controller {
	return s.feed
}

// Filter is the current tag selection as a feed filter.
func (s *Session) Filter() feed.Filter {
	return feed.NewFilter(s.tags.SelectedNames()...)
}

// Start loads the saved tags, merges the server's tags and loads the first
// page. A failed tag sync is logged and does not stop the refresh.
func (s *Session) Start(ctx context.Context) error {
	loaded := s.tags.Load()
	s.log.Debugf("starting with %d tags", len(loaded))

	if _, err := s.SyncServerTags(ctx); err != nil {
		s.log.Warnf("server tags unavailable: %v", err)
	}

	return s.feed.Refresh(ctx, s.Filter())
}

// SyncServerTags fetches the server's tag list and adds the new names.
func (s *Session) SyncServerTags(ctx context.Context) (int, error) {
	names, err := s.fetcher.FetchTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching tags: %w", err)
	}
	added, err := s.tags.Merge(names)
	if err != nil {
		return 0, fmt.Errorf("merging tags: %w", err)
	}
	return added, nil
}

func (s *Session) ToggleTag(ctx context.Context, id string) (tags.Tag, error) {
	tag, err := s.tags.Toggle(id)
	if err != nil {
		return tags.Tag{}, err
	}
	return tag, s.feed.ChangeFilter(ctx, s.Filter())
}

func (s *Session) AddTag(ctx context.Context, name string) (tags.Tag, error) {
	tag, err := s.tags.AddCustom(name)
	if err != nil {
		return tags.Tag{}, err
	}
	return tag, s.feed.ChangeFilter(ctx, s.Filter())
}

func (s *Session) RemoveTag(ctx context.Context, id string) error {
	if err := s.tags.RemoveCustom(id); err != nil {
		return err
	}
	return s.feed.ChangeFilter(ctx, s.Filter())
}

func (s *Session) Refresh(ctx context.Context) error {
	return s.feed.Refresh(ctx, s.Filter())
}

func (s *Session) LoadMore(ctx context.Context) error {
	return s.feed.LoadMore(ctx, s.Filter())
}
