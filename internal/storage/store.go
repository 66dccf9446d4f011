package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var preferencesBucket = []byte("preferences")

// ErrSlotNotFound is returned by LoadJSON when the slot has never been written.
var ErrSlotNotFound = errors.New("slot not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens the database, waiting at most timeout for the
// file lock held by another process.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(preferencesBucket)
		return createErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetSlot returns a copy of the raw bytes stored under name, or nil when the
// slot is empty.
func (s *Store) GetSlot(name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(preferencesBucket).Get([]byte(name))
		if data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}

// PutSlot replaces the slot contents in a single write transaction, so
// readers observe either the old or the new document.
func (s *Store) PutSlot(name string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preferencesBucket).Put([]byte(name), data)
	})
}

func (s *Store) DeleteSlot(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preferencesBucket).Delete([]byte(name))
	})
}

// Slots lists stored slots sorted by name.
func (s *Store) Slots() ([]SlotInfo, error) {
	var slots []SlotInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(preferencesBucket).ForEach(func(k, v []byte) error {
			slots = append(slots, SlotInfo{Name: string(k), Size: len(v)})
			return nil
		})
	})
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Name < slots[j].Name
	})
	return slots, err
}

// SaveJSON encodes v and writes it to the slot.
func (s *Store) SaveJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := s.PutSlot(name, data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// LoadJSON decodes the slot into v. It returns ErrSlotNotFound when the slot
// is empty and the decode error when the stored bytes are corrupt.
func (s *Store) LoadJSON(name string, v any) error {
	data, err := s.GetSlot(name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if data == nil {
		return ErrSlotNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
