package tags

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/storage"
)

// Persister is the slot storage the tag set is written to.
// *storage.Store implements it.
type Persister interface {
	SaveJSON(name string, v any) error
	LoadJSON(name string, v any) error
	DeleteSlot(name string) error
}

// Store holds the active tag set and writes the whole collection to its
// Persister after every mutation. State is only replaced once the write
// succeeded.
type Store struct {
	mu      sync.Mutex
	backend Persister
	slot    string
	tags    []Tag
	loaded  bool
	newID   func() string
	log     *debuglog.FieldLogger

	subMu   sync.Mutex
	subs    map[int]func([]Tag)
	nextSub int
}

func NewStore(backend Persister) *Store {
	return &Store{
		backend: backend,
		slot:    storage.SlotUserTags,
		newID:   func() string { return uuid.NewString() },
		log:     debuglog.Component("tags"),
		subs:    make(map[int]func([]Tag)),
	}
}

// Load returns the persisted tags, or the predefined set when nothing usable
// is stored. It never fails.
func (s *Store) Load() []Tag {
	s.mu.Lock()
	s.loadLocked(true)
	out := cloneTags(s.tags)
	s.mu.Unlock()
	return out
}

func (s *Store) loadLocked(force bool) {
	if s.loaded && !force {
		return
	}
	s.loaded = true

	var stored []Tag
	err := s.backend.LoadJSON(s.slot, &stored)
	if err == nil && validStored(stored) {
		s.log.Debugf("loaded %d saved tags", len(stored))
		s.tags = stored
		return
	}

	switch {
	case err != nil && !errors.Is(err, storage.ErrSlotNotFound):
		s.log.Warnf("discarding unreadable tags: %v", err)
	case err == nil:
		s.log.Warnf("discarding invalid tag set of %d records", len(stored))
	}

	defaults := s.defaults()
	if saveErr := s.backend.SaveJSON(s.slot, defaults); saveErr != nil {
		s.log.Errorf("saving default tags: %v", saveErr)
	}
	s.tags = defaults
}

// validStored rejects a null document, records without an id or a name, and
// names or ids that appear twice.
func validStored(tags []Tag) bool {
	if tags == nil {
		return false
	}
	ids := make(map[string]struct{}, len(tags))
	names := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t.ID == "" || strings.TrimSpace(t.Name) == "" {
			return false
		}
		key := normalize(t.Name)
		if _, dup := names[key]; dup {
			return false
		}
		if _, dup := ids[t.ID]; dup {
			return false
		}
		names[key] = struct{}{}
		ids[t.ID] = struct{}{}
	}
	return true
}

func (s *Store) defaults() []Tag {
	out := make([]Tag, 0, len(Predefined))
	for _, name := range Predefined {
		out = append(out, Tag{ID: s.newID(), Name: name})
	}
	return out
}

// Reset drops the saved tags, custom ones included, and starts over from
// the predefined set.
func (s *Store) Reset() ([]Tag, error) {
	s.mu.Lock()
	if err := s.backend.DeleteSlot(s.slot); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("resetting tags: %w", err)
	}
	s.loadLocked(true)
	snapshot := cloneTags(s.tags)
	s.mu.Unlock()

	s.log.Infof("tags reset to defaults")
	s.notify(snapshot)
	return cloneTags(snapshot), nil
}

// Tags returns a copy of the current collection in insertion order.
func (s *Store) Tags() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(false)
	return cloneTags(s.tags)
}

// Lookup finds a tag by id or by case-insensitive name.
func (s *Store) Lookup(idOrName string) (Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(false)

	if i := indexByID(s.tags, idOrName); i >= 0 {
		return s.tags[i], true
	}
	if i := indexByName(s.tags, idOrName); i >= 0 {
		return s.tags[i], true
	}
	return Tag{}, false
}

// Merge adds every server-reported name that is not in the set yet as an
// unselected, non-custom tag. Existing tags are left alone.
func (s *Store) Merge(serverTags []string) (int, error) {
	s.mu.Lock()
	s.loadLocked(false)

	next := cloneTags(s.tags)
	added := 0
	for _, name := range serverTags {
		name = strings.TrimSpace(name)
		if name == "" || indexByName(next, name) >= 0 {
			continue
		}
		next = append(next, Tag{ID: s.newID(), Name: name})
		added++
	}

	if added == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	snapshot := cloneTags(s.tags)
	s.mu.Unlock()

	s.log.Infof("merged %d server tags", added)
	s.notify(snapshot)
	return added, nil
}

// Toggle flips the selection of the tag with the given id.
func (s *Store) Toggle(id string) (Tag, error) {
	s.mu.Lock()
	s.loadLocked(false)

	i := indexByID(s.tags, id)
	if i < 0 {
		s.mu.Unlock()
		return Tag{}, fmt.Errorf("toggle %q: %w", id, ErrNotFound)
	}

	next := cloneTags(s.tags)
	next[i].IsSelected = !next[i].IsSelected
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return Tag{}, err
	}
	tag := next[i]
	snapshot := cloneTags(s.tags)
	s.mu.Unlock()

	s.log.With("tag", tag.Name).Debugf("selected=%t", tag.IsSelected)
	s.notify(snapshot)
	return tag, nil
}

// AddCustom creates a selected, user-owned tag.
func (s *Store) AddCustom(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, ErrEmpty
	}

	s.mu.Lock()
	s.loadLocked(false)

	if indexByName(s.tags, name) >= 0 {
		s.mu.Unlock()
		return Tag{}, fmt.Errorf("add %q: %w", name, ErrDuplicate)
	}

	tag := Tag{ID: s.newID(), Name: name, IsSelected: true, IsCustom: true}
	next := append(cloneTags(s.tags), tag)
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return Tag{}, err
	}
	snapshot := cloneTags(s.tags)
	s.mu.Unlock()

	s.log.With("tag", name).Infof("custom tag added")
	s.notify(snapshot)
	return tag, nil
}

// RemoveCustom deletes a user-created tag. Unknown ids and non-custom tags
// are ignored; only a failed write is reported.
func (s *Store) RemoveCustom(id string) error {
	s.mu.Lock()
	s.loadLocked(false)

	i := indexByID(s.tags, id)
	if i < 0 || !s.tags[i].IsCustom {
		s.mu.Unlock()
		return nil
	}

	next := make([]Tag, 0, len(s.tags)-1)
	next = append(next, s.tags[:i]...)
	next = append(next, s.tags[i+1:]...)
	removed := s.tags[i].Name
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := cloneTags(s.tags)
	s.mu.Unlock()

	s.log.With("tag", removed).Infof("custom tag removed")
	s.notify(snapshot)
	return nil
}

// SelectedNames returns the lower-cased names of all selected tags, sorted.
func (s *Store) SelectedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(false)

	names := []string{}
	for _, t := range s.tags {
		if t.IsSelected {
			names = append(names, normalize(t.Name))
		}
	}
	sort.Strings(names)
	return names
}

// Subscribe registers fn to receive the tag set after every mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func([]Tag)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snapshot []Tag) {
	s.subMu.Lock()
	fns := make([]func([]Tag), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(cloneTags(snapshot))
	}
}

func (s *Store) commitLocked(next []Tag) error {
	if err := s.backend.SaveJSON(s.slot, next); err != nil {
		s.log.Errorf("persisting tags: %v", err)
		return fmt.Errorf("saving tags: %w", err)
	}
	s.tags = next
	return nil
}

func indexByID(tags []Tag, id string) int {
	for i, t := range tags {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func indexByName(tags []Tag, name string) int {
	key := normalize(name)
	for i, t := range tags {
		if normalize(t.Name) == key {
			return i
		}
	}
	return -1
}
