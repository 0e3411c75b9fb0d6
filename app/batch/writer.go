package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes rows as one immutable parquet file. The file is
// written to a temporary sibling and renamed into place so consumers never
// observe a partial file.
func WriteParquet[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

// ReadParquet reads all rows of a parquet file into typed rows.
func ReadParquet[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// Dedupe drops exact full-row duplicates, keeping first occurrences in
// order. Rows are compared by value including what their pointer fields
// point at, which is why the key is built from an encoding rather than the
// struct itself.
func Dedupe[T any](rows []T) []T {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		key, err := json.Marshal(row)
		if err != nil {
			// Not reachable for our row types; keep the row rather than drop it.
			out = append(out, row)
			continue
		}
		if _, dup := seen[string(key)]; dup {
			continue
		}
		seen[string(key)] = struct{}{}
		out = append(out, row)
	}
	return out
}
