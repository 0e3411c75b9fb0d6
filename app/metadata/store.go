package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Resource holds the stored fingerprint of one fetched URL.
type Resource struct {
	Hash string `json:"hash"`
}

// Store persists per-key resource metadata as JSON side files so change
// detection survives process restarts. One file per key:
// <dir>/<key>/metadata.json mapping url -> Resource.
type Store struct {
	dir string
}

// NewStore creates the metadata store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) filePath(key string) string {
	return filepath.Join(s.dir, key, "metadata.json")
}

// load reads the metadata map for a key. A missing or corrupted file
// degrades to an empty map; corruption is logged, not fatal.
func (s *Store) load(key string) map[string]Resource {
	path := s.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read metadata file", "path", path, "error", err)
		}
		return map[string]Resource{}
	}

	var entries map[string]Resource
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Error("Metadata file is corrupted, starting from empty", "path", path, "error", err)
		return map[string]Resource{}
	}
	return entries
}

func (s *Store) save(key string, entries map[string]Resource) error {
	path := s.filePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir for key %s: %w", key, err)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	// Write-then-rename keeps readers from ever seeing a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename metadata: %w", err)
	}
	return nil
}

// Hash returns the stored content hash for (key, url), or "" if none.
func (s *Store) Hash(key, url string) string {
	return s.load(key)[url].Hash
}

// SetHash records the content hash for (key, url).
func (s *Store) SetHash(key, url, hash string) error {
	entries := s.load(key)
	entries[url] = Resource{Hash: hash}
	return s.save(key, entries)
}
