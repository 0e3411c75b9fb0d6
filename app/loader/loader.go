package loader

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

	"github.com/acme-corp/data-pipeline/app/batch"
	"github.com/acme-corp/data-pipeline/app/cfg"
	"github.com/acme-corp/data-pipeline/app/database"
	"github.com/acme-corp/data-pipeline/app/gtfs"
	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

// Loader moves processed parquet data into the database on a fixed cycle.
// Each pass is fully sequential: static folders first, then dynamic batch
// files, so dynamic rows always validate against a committed static
// version. Folders and files are marked in the ledger only after their data
// is stored; a failure leaves the item unmarked for the next pass.
type Loader struct {
	processedDir string
	dynamicDir   string
	interval     time.Duration
	versionRepo  database.VersionRepositoryInterface
	ledgerRepo   database.LedgerRepositoryInterface
	staticRepo   database.StaticRepositoryInterface
	dynamicRepo  database.DynamicRepositoryInterface
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewLoader(versionRepo database.VersionRepositoryInterface, ledgerRepo database.LedgerRepositoryInterface,
	staticRepo database.StaticRepositoryInterface, dynamicRepo database.DynamicRepositoryInterface) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Loader{
		processedDir: cfg.ProcessedDir,
		dynamicDir:   cfg.DynamicDir,
		interval:     time.Duration(cfg.CheckInterval) * time.Second,
		versionRepo:  versionRepo,
		ledgerRepo:   ledgerRepo,
		staticRepo:   staticRepo,
		dynamicRepo:  dynamicRepo,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (l *Loader) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.runCycle()

		for {
			select {
			case <-l.ctx.Done():
				return
			case <-ticker.C:
				l.runCycle()
			}
		}
	}()
}

func (l *Loader) Stop() {
	l.cancel()
	l.wg.Wait()
}

// runCycle loads static folders first, then dynamic batch files. A failed
// static pass defers the dynamic stage entirely: validating dynamic rows
// against a version missing its trips would drop them for good.
func (l *Loader) runCycle() {
	if err := l.loadStatic(); err != nil {
		slog.Error("Static load pass failed, dynamic load deferred to next cycle", "error", err)
		return
	}
	if err := l.loadDynamic(); err != nil {
		slog.Error("Dynamic load pass failed", "error", err)
	}
}

// loadStatic discovers schedule folders not yet in the ledger. New folders
// open a fresh dataset version; no new folders just ensures a version
// exists so the dynamic stage can run. A folder failure aborts the pass,
// and a version no folder committed into is deleted again so the dynamic
// stage never validates against it.
func (l *Loader) loadStatic() error {
	gtfsFolders, dictFolders, err := l.discoverStaticFolders()
	if err != nil {
		return err
	}

	if len(gtfsFolders) == 0 && len(dictFolders) == 0 {
		_, ok, err := l.versionRepo.CurrentVersion()
		if err != nil {
			return err
		}
		if !ok {
			if _, err := l.versionRepo.CreateVersion("Initial static dataset"); err != nil {
				return err
			}
		}
		return nil
	}

	versionID, err := l.versionRepo.CreateVersion("New static dataset")
	if err != nil {
		return err
	}

	loaded := 0
	for _, folder := range gtfsFolders {
		if err := l.loadStaticFolder(folder, versionID); err != nil {
			if loaded == 0 {
				if delErr := l.versionRepo.DeleteVersion(versionID); delErr != nil {
					slog.Error("Failed to discard version after load failure", "version_id", versionID, "error", delErr)
				}
			}
			return fmt.Errorf("static folder %s: %w", folder, err)
		}
		loaded++
		if err := l.ledgerRepo.MarkFolderProcessed(filepath.Base(folder)); err != nil {
			slog.Error("Failed to mark folder processed", "folder", folder, "error", err)
		}
		slog.Info("Static folder loaded", "folder", folder, "version_id", versionID)
	}

	// Vehicle dictionaries stay parquet-only: the folder is acknowledged in
	// the ledger but its rows are never stored in the database.
	for _, folder := range dictFolders {
		if err := l.ledgerRepo.MarkFolderProcessed(filepath.Base(folder)); err != nil {
			slog.Error("Failed to mark folder processed", "folder", folder, "error", err)
			continue
		}
		slog.Info("Vehicle dictionary folder acknowledged without database load", "folder", folder)
	}
	return nil
}

func (l *Loader) discoverStaticFolders() ([]string, []string, error) {
	entries, err := os.ReadDir(l.processedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to list processed dir: %w", err)
	}

	var gtfsFolders, dictFolders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var bucket *[]string
		switch {
		case strings.HasPrefix(e.Name(), "gtfs_"):
			bucket = &gtfsFolders
		case strings.HasPrefix(e.Name(), "vehicle_dictionary_"):
			bucket = &dictFolders
		default:
			continue
		}

		processed, err := l.ledgerRepo.IsFolderProcessed(e.Name())
		if err != nil {
			return nil, nil, err
		}
		if !processed {
			*bucket = append(*bucket, filepath.Join(l.processedDir, e.Name()))
		}
	}
	sort.Strings(gtfsFolders)
	sort.Strings(dictFolders)
	return gtfsFolders, dictFolders, nil
}

// loadStaticFolder loads every table file present in referential order.
// A missing table file is skipped; a failing one aborts the folder.
func (l *Loader) loadStaticFolder(folder string, versionID int) error {
	for _, table := range gtfs.TableNames {
		path := filepath.Join(folder, table+".parquet")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := l.loadStaticFile(path, table, versionID); err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}
	return nil
}

func (l *Loader) loadStaticFile(path, table string, versionID int) error {
	switch table {
	case "agency":
		return loadTable(path, versionID, l.staticRepo.InsertAgencies)
	case "feed_info":
		return loadTable(path, versionID, l.staticRepo.InsertFeedInfos)
	case "stops":
		return loadTable(path, versionID, l.staticRepo.InsertStops)
	case "routes":
		return loadTable(path, versionID, l.staticRepo.InsertRoutes)
	case "calendar":
		return loadTable(path, versionID, l.staticRepo.InsertCalendars)
	case "calendar_dates":
		return loadTable(path, versionID, l.staticRepo.InsertCalendarDates)
	case "shapes":
		return loadTable(path, versionID, l.staticRepo.InsertShapes)
	case "trips":
		return loadTable(path, versionID, l.staticRepo.InsertTrips)
	case "stop_times":
		return loadTable(path, versionID, l.staticRepo.InsertStopTimes)
	}
	return fmt.Errorf("unknown table %s", table)
}

func loadTable[T any](path string, versionID int, insert func(int, []T) error) error {
	rows, err := batch.ReadParquet[T](path)
	if err != nil {
		return err
	}

	before := len(rows)
	rows = batch.Dedupe(rows)
	if removed := before - len(rows); removed > 0 {
		slog.Info("Dropped duplicate rows before insert", "file", path, "removed", removed)
	}

	if err := insert(versionID, rows); err != nil {
		return err
	}
	slog.Info("Loaded static table", "file", path, "rows", len(rows))
	return nil
}

// loadDynamic loads unprocessed batch files of both dynamic families
// against the current static version. Without a version the stage is
// skipped outright.
func (l *Loader) loadDynamic() error {
	versionID, ok, err := l.versionRepo.CurrentVersion()
	if err != nil {
		return err
	}
	if !ok {
		slog.Error("No static dataset version exists, skipping dynamic load")
		return nil
	}

	validTripIDs, err := l.dynamicRepo.ValidTripIDs(versionID)
	if err != nil {
		return err
	}

	if err := l.loadTripUpdateFiles(versionID, validTripIDs); err != nil {
		return err
	}
	return l.loadVehiclePositionFiles(versionID, validTripIDs)
}

func (l *Loader) unprocessedFiles(family string) ([]string, error) {
	dir := filepath.Join(l.dynamicDir, family)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No batch directory for family yet", "family", family)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		processed, err := l.ledgerRepo.IsFileProcessed(path)
		if err != nil {
			return nil, err
		}
		if !processed {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) loadTripUpdateFiles(versionID int, validTripIDs map[string]struct{}) error {
	files, err := l.unprocessedFiles(batch.FamilyTripUpdates)
	if err != nil {
		return err
	}

	for _, path := range files {
		rows, err := batch.ReadParquet[gtfsrt.TripUpdateRow](path)
		if err != nil {
			slog.Error("Failed to read batch file, skipping", "file", path, "error", err)
			continue
		}

		rows = dedupeByKey(rows, gtfsrt.TripUpdateRow.Key)

		kept := rows[:0]
		dropped := 0
		for _, row := range rows {
			if _, ok := validTripIDs[row.TripID]; ok {
				kept = append(kept, row)
			} else {
				dropped++
			}
		}
		if dropped > 0 {
			slog.Warn("Dropped rows referencing unknown trips", "file", path, "dropped", dropped)
		}
		rows = kept

		if len(rows) == 0 {
			l.markFile(path)
			continue
		}

		keys := make([]gtfsrt.TripUpdateKey, 0, len(rows))
		for _, row := range rows {
			keys = append(keys, row.Key())
		}
		existing, err := l.dynamicRepo.ExistingTripUpdateKeys(versionID, keys)
		if err != nil {
			slog.Error("Failed to check existing keys, skipping file", "file", path, "error", err)
			continue
		}

		fresh := rows[:0]
		for _, row := range rows {
			if _, dup := existing[row.Key()]; !dup {
				fresh = append(fresh, row)
			}
		}
		if len(fresh) == 0 {
			l.markFile(path)
			continue
		}

		if err := l.dynamicRepo.InsertTripUpdates(versionID, fresh); err != nil {
			slog.Error("Failed to insert trip updates, will retry next cycle", "file", path, "error", err)
			continue
		}
		l.markFile(path)
		slog.Info("Loaded batch file", "file", path, "table", "trip_updates", "rows", len(fresh))
	}
	return nil
}

func (l *Loader) loadVehiclePositionFiles(versionID int, validTripIDs map[string]struct{}) error {
	files, err := l.unprocessedFiles(batch.FamilyVehiclePositions)
	if err != nil {
		return err
	}

	for _, path := range files {
		rows, err := batch.ReadParquet[gtfsrt.VehiclePositionRow](path)
		if err != nil {
			slog.Error("Failed to read batch file, skipping", "file", path, "error", err)
			continue
		}

		rows = dedupeByKey(rows, gtfsrt.VehiclePositionRow.Key)

		// Untracked vehicles (no trip) are valid rows; only a reference to a
		// trip the version does not know is dropped.
		kept := rows[:0]
		dropped := 0
		for _, row := range rows {
			if row.TripID != nil {
				if _, ok := validTripIDs[*row.TripID]; !ok {
					dropped++
					continue
				}
			}
			kept = append(kept, row)
		}
		if dropped > 0 {
			slog.Warn("Dropped rows referencing unknown trips", "file", path, "dropped", dropped)
		}
		rows = kept

		if len(rows) == 0 {
			l.markFile(path)
			continue
		}

		keys := make([]gtfsrt.VehiclePositionKey, 0, len(rows))
		for _, row := range rows {
			keys = append(keys, row.Key())
		}
		existing, err := l.dynamicRepo.ExistingVehiclePositionKeys(versionID, keys)
		if err != nil {
			slog.Error("Failed to check existing keys, skipping file", "file", path, "error", err)
			continue
		}

		fresh := rows[:0]
		for _, row := range rows {
			if _, dup := existing[row.Key()]; !dup {
				fresh = append(fresh, row)
			}
		}
		if len(fresh) == 0 {
			l.markFile(path)
			continue
		}

		if err := l.dynamicRepo.InsertVehiclePositions(versionID, fresh); err != nil {
			slog.Error("Failed to insert vehicle positions, will retry next cycle", "file", path, "error", err)
			continue
		}
		l.markFile(path)
		slog.Info("Loaded batch file", "file", path, "table", "vehicle_positions", "rows", len(fresh))
	}
	return nil
}

func (l *Loader) markFile(path string) {
	if err := l.ledgerRepo.MarkFileProcessed(path); err != nil {
		slog.Error("Failed to mark file processed", "file", path, "error", err)
	}
}

// dedupeByKey keeps the first row per storage primary key within one file.
func dedupeByKey[T any, K comparable](rows []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		k := key(row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}
