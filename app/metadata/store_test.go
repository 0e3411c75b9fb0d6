package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_HashRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if got := store.Hash("gtfs_zip", "https://example.com/gtfs.zip"); got != "" {
		t.Errorf("Expected empty hash for unknown url, got '%s'", got)
	}

	if err := store.SetHash("gtfs_zip", "https://example.com/gtfs.zip", "abc123"); err != nil {
		t.Fatalf("SetHash failed: %v", err)
	}

	if got := store.Hash("gtfs_zip", "https://example.com/gtfs.zip"); got != "abc123" {
		t.Errorf("Expected hash 'abc123', got '%s'", got)
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.SetHash("gtfs_zip", "https://example.com/a", "hash-a"); err != nil {
		t.Fatalf("SetHash failed: %v", err)
	}
	if err := store.SetHash("vehicle_dictionary", "https://example.com/a", "hash-b"); err != nil {
		t.Fatalf("SetHash failed: %v", err)
	}

	if got := store.Hash("gtfs_zip", "https://example.com/a"); got != "hash-a" {
		t.Errorf("Expected 'hash-a', got '%s'", got)
	}
	if got := store.Hash("vehicle_dictionary", "https://example.com/a"); got != "hash-b" {
		t.Errorf("Expected 'hash-b', got '%s'", got)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.SetHash("gtfs_zip", "https://example.com/gtfs.zip", "persisted"); err != nil {
		t.Fatalf("SetHash failed: %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed on reopen: %v", err)
	}
	if got := reopened.Hash("gtfs_zip", "https://example.com/gtfs.zip"); got != "persisted" {
		t.Errorf("Expected hash to survive reopen, got '%s'", got)
	}
}

func TestStore_CorruptedFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	path := filepath.Join(dir, "gtfs_zip", "metadata.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupted file: %v", err)
	}

	if got := store.Hash("gtfs_zip", "https://example.com/gtfs.zip"); got != "" {
		t.Errorf("Expected empty hash from corrupted file, got '%s'", got)
	}

	// Writing after corruption must succeed and replace the file
	if err := store.SetHash("gtfs_zip", "https://example.com/gtfs.zip", "fresh"); err != nil {
		t.Fatalf("SetHash after corruption failed: %v", err)
	}
	if got := store.Hash("gtfs_zip", "https://example.com/gtfs.zip"); got != "fresh" {
		t.Errorf("Expected 'fresh', got '%s'", got)
	}
}
