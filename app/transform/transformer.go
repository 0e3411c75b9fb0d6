package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/acme-corp/data-pipeline/app/batch"
	"github.com/acme-corp/data-pipeline/app/capture"
	"github.com/acme-corp/data-pipeline/app/cfg"
	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

// Transformer turns sealed capture folders into per-family parquet batch
// files. It runs a poll loop and additionally reacts to filesystem events on
// the capture root so sealed folders are picked up without waiting for the
// next tick. A folder is retired by removing its marker after a successful
// pass; the folder itself is kept.
type Transformer struct {
	captureDir  string
	outDir      string
	interval    time.Duration
	maxCaptures int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewTransformer() *Transformer {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Transformer{
		captureDir:  filepath.Join(cfg.RawDir, "dynamic"),
		outDir:      cfg.DynamicDir,
		interval:    time.Duration(cfg.TransformInterval) * time.Second,
		maxCaptures: cfg.MaxCapturesPerPass,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (t *Transformer) Start() {
	t.wg.Add(1)
	go t.run()
}

func (t *Transformer) Stop() {
	t.cancel()
	t.wg.Wait()
}

func (t *Transformer) run() {
	defer t.wg.Done()

	watcher, err := t.newWatcher()
	if err != nil {
		slog.Warn("Filesystem watcher unavailable, relying on polling only", "error", err)
	} else {
		defer watcher.Close()
	}

	var events chan fsnotify.Event
	if watcher != nil {
		events = make(chan fsnotify.Event, 64)
		t.wg.Add(1)
		go t.forwardEvents(watcher, events)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.processReadyFolders()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.processReadyFolders()
		case ev := <-events:
			// A marker appearing or a folder being created both mean a pass
			// may find work now.
			if ev.Op.Has(fsnotify.Create) {
				t.processReadyFolders()
			}
		}
	}
}

func (t *Transformer) newWatcher() (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(t.captureDir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(t.captureDir); err != nil {
		watcher.Close()
		return nil, err
	}

	// Watch existing category dirs too; new ones are added as their create
	// events arrive.
	entries, err := os.ReadDir(t.captureDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				watcher.Add(filepath.Join(t.captureDir, e.Name()))
			}
		}
	}
	return watcher, nil
}

func (t *Transformer) forwardEvents(watcher *fsnotify.Watcher, events chan<- fsnotify.Event) {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && filepath.Dir(ev.Name) == t.captureDir {
					watcher.Add(ev.Name)
				}
			}
			select {
			case events <- ev:
			default:
				// Dropped events are fine, the poll loop covers them.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Filesystem watcher error", "error", err)
		}
	}
}

// processReadyFolders transforms every sealed folder under the capture root,
// across all categories.
func (t *Transformer) processReadyFolders() {
	categories, err := os.ReadDir(t.captureDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to list capture root", "dir", t.captureDir, "error", err)
		}
		return
	}

	for _, category := range categories {
		if !category.IsDir() {
			continue
		}
		categoryDir := filepath.Join(t.captureDir, category.Name())

		folders, err := os.ReadDir(categoryDir)
		if err != nil {
			slog.Error("Failed to list category dir", "dir", categoryDir, "error", err)
			continue
		}

		for _, folder := range folders {
			if !folder.IsDir() {
				continue
			}
			folderPath := filepath.Join(categoryDir, folder.Name())
			marker := filepath.Join(folderPath, capture.Marker)
			if _, err := os.Stat(marker); err != nil {
				continue
			}

			select {
			case <-t.ctx.Done():
				return
			default:
			}

			if err := t.transformFolder(folderPath); err != nil {
				slog.Error("Failed to transform capture folder", "folder", folderPath, "error", err)
			}
		}
	}
}

// transformFolder normalizes the capture files of one sealed folder into
// batch files named after the category and folder, then clears the folder's
// marker. The category qualifier keeps same-second folders of different
// categories from sharing a batch file name. A concurrent duplicate
// invocation is harmless: batch writes are atomic renames of identical
// content and the loader deduplicates on read.
func (t *Transformer) transformFolder(folder string) error {
	captures, err := listCaptures(folder, t.maxCaptures)
	if err != nil {
		return err
	}

	var merged gtfsrt.Batch
	decoded := 0
	for _, path := range captures {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read capture file, skipping", "file", path, "error", err)
			continue
		}
		b, err := gtfsrt.Normalize(data)
		if err != nil {
			slog.Warn("Failed to decode capture file, skipping", "file", path, "error", err)
			continue
		}
		merged.Append(b)
		decoded++
	}

	category := filepath.Base(filepath.Dir(folder))
	stamp := category + "_" + filepath.Base(folder)
	if err := batch.WriteFamilies(t.outDir, stamp, merged); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(folder, capture.Marker)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear folder marker: %w", err)
	}

	slog.Info("Capture folder transformed",
		"folder", folder,
		"captures", len(captures),
		"decoded", decoded,
		"trip_updates", len(merged.TripUpdates),
		"vehicle_positions", len(merged.VehiclePositions),
		"alerts", len(merged.Alerts))
	return nil
}

func listCaptures(folder string, max int) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	var captures []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pb") {
			continue
		}
		captures = append(captures, filepath.Join(folder, e.Name()))
	}
	sort.Strings(captures)

	if max > 0 && len(captures) > max {
		captures = captures[:max]
	}
	return captures, nil
}
