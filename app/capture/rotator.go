package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Marker is the file dropped into a capture folder when it is sealed and
// ready for the transform stage. The transform stage removes it after a
// successful pass.
const Marker = ".done"

// Rotator groups inbound capture files into bounded-size folders, one
// rotation sequence per category. Folders are named by their creation
// timestamp; a folder that reaches the file bound is sealed with the marker
// file and a fresh one is opened.
type Rotator struct {
	baseDir  string
	maxFiles int
}

// NewRotator creates a rotator writing under baseDir with the given per
// folder file bound.
func NewRotator(baseDir string, maxFiles int) *Rotator {
	return &Rotator{baseDir: baseDir, maxFiles: maxFiles}
}

// CurrentFolder returns the folder a new capture file for category should
// be written into, sealing the previous folder and opening a new one when
// the bound is reached. Categories never interact.
func (r *Rotator) CurrentFolder(category string) (string, error) {
	categoryDir := filepath.Join(r.baseDir, category)
	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create category dir: %w", err)
	}

	subfolders, err := listSubfolders(categoryDir)
	if err != nil {
		return "", err
	}
	if len(subfolders) == 0 {
		return r.newFolder(categoryDir)
	}

	last := subfolders[len(subfolders)-1]
	sealed, count, err := folderState(last)
	if err != nil {
		return "", err
	}
	if sealed || count >= r.maxFiles {
		if !sealed {
			if err := seal(last); err != nil {
				return "", err
			}
		}
		return r.newFolder(categoryDir)
	}
	return last, nil
}

func (r *Rotator) newFolder(categoryDir string) (string, error) {
	name := time.Now().UTC().Format("20060102150405")
	folder := filepath.Join(categoryDir, name)
	// Folders rotate fast enough that two can fall into the same second;
	// a numeric suffix keeps the sealed one from being reopened.
	for i := 1; ; i++ {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			break
		}
		folder = filepath.Join(categoryDir, fmt.Sprintf("%s_%02d", name, i))
	}
	if err := os.Mkdir(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture folder: %w", err)
	}
	return folder, nil
}

func listSubfolders(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var subfolders []string
	for _, e := range entries {
		if e.IsDir() {
			subfolders = append(subfolders, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(subfolders)
	return subfolders, nil
}

// folderState reports whether the folder is sealed and how many capture
// files it holds. The marker file does not count toward the bound.
func folderState(folder string) (bool, int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return false, 0, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	sealed := false
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == Marker {
			sealed = true
			continue
		}
		count++
	}
	return sealed, count, nil
}

func seal(folder string) error {
	f, err := os.OpenFile(filepath.Join(folder, Marker), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to seal folder %s: %w", folder, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Capture folder sealed", "folder", folder)
	return nil
}
