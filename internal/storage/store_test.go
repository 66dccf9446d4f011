package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) (*Store, string, func()) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, dbPath, cleanup
}

func TestStore_PutAndGetSlot(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.PutSlot("greeting", []byte("hello")); err != nil {
		t.Fatalf("failed to put slot: %v", err)
	}

	data, err := store.GetSlot("greeting")
	if err != nil {
		t.Fatalf("failed to get slot: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", string(data))
	}

	if err := store.PutSlot("greeting", []byte("bye")); err != nil {
		t.Fatalf("failed to overwrite slot: %v", err)
	}
	data, _ = store.GetSlot("greeting")
	if string(data) != "bye" {
		t.Errorf("expected overwritten value %q, got %q", "bye", string(data))
	}
}

func TestStore_GetSlot_Empty(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	data, err := store.GetSlot("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data for empty slot, got %q", string(data))
	}
}

func TestStore_JSONRoundTripAcrossReopen(t *testing.T) {
	store, dbPath, cleanup := setupTestStore(t)
	defer cleanup()

	type record struct {
		Name     string `json:"name"`
		Selected bool   `json:"selected"`
	}
	in := []record{{Name: "AI", Selected: true}, {Name: "Food"}}

	if err := store.SaveJSON(SlotUserTags, in); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	defer reopened.Close()

	var out []record
	if err := reopened.LoadJSON(SlotUserTags, &out); err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestStore_LoadJSON_Errors(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	var v []string
	if err := store.LoadJSON("nothing", &v); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}

	if err := store.PutSlot("broken", []byte("{not json")); err != nil {
		t.Fatalf("failed to put slot: %v", err)
	}
	err := store.LoadJSON("broken", &v)
	if err == nil || errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestStore_SlotsAndDelete(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	for _, name := range []string{"b", "a", "c"} {
		if err := store.PutSlot(name, []byte(name+name)); err != nil {
			t.Fatalf("failed to put slot %s: %v", name, err)
		}
	}

	if err := store.DeleteSlot("b"); err != nil {
		t.Fatalf("failed to delete slot: %v", err)
	}

	slots, err := store.Slots()
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Name != "a" || slots[1].Name != "c" {
		t.Errorf("expected sorted slots a, c; got %+v", slots)
	}
	if slots[0].Size != 2 {
		t.Errorf("expected size 2, got %d", slots[0].Size)
	}
}

func TestNewStore_CreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "deeper", "test.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store in nested dir: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}
