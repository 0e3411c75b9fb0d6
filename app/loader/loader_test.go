package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/acme-corp/data-pipeline/app/batch"
	"github.com/acme-corp/data-pipeline/app/gtfs"
	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

type fakeVersionRepo struct {
	nextID   int
	versions map[int]string
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{versions: map[int]string{}}
}

func (f *fakeVersionRepo) CreateVersion(description string) (int, error) {
	f.nextID++
	f.versions[f.nextID] = description
	return f.nextID, nil
}

func (f *fakeVersionRepo) CurrentVersion() (int, bool, error) {
	current := 0
	for id := range f.versions {
		if id > current {
			current = id
		}
	}
	return current, current > 0, nil
}

func (f *fakeVersionRepo) DeleteVersion(versionID int) error {
	delete(f.versions, versionID)
	return nil
}

type fakeLedgerRepo struct {
	folders map[string]bool
	files   map[string]bool
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{folders: map[string]bool{}, files: map[string]bool{}}
}

func (f *fakeLedgerRepo) IsFolderProcessed(name string) (bool, error) { return f.folders[name], nil }
func (f *fakeLedgerRepo) MarkFolderProcessed(name string) error {
	f.folders[name] = true
	return nil
}
func (f *fakeLedgerRepo) IsFileProcessed(path string) (bool, error) { return f.files[path], nil }
func (f *fakeLedgerRepo) MarkFileProcessed(path string) error {
	f.files[path] = true
	return nil
}
func (f *fakeLedgerRepo) FolderCount() (int, error) { return len(f.folders), nil }
func (f *fakeLedgerRepo) FileCount() (int, error)   { return len(f.files), nil }

type fakeStaticRepo struct {
	agencies  []gtfs.AgencyRow
	trips     []gtfs.TripRow
	stops     []gtfs.StopRow
	calendars []gtfs.CalendarRow
	failTrips bool
}

func (f *fakeStaticRepo) InsertAgencies(versionID int, rows []gtfs.AgencyRow) error {
	f.agencies = append(f.agencies, rows...)
	return nil
}
func (f *fakeStaticRepo) InsertFeedInfos(versionID int, rows []gtfs.FeedInfoRow) error { return nil }
func (f *fakeStaticRepo) InsertStops(versionID int, rows []gtfs.StopRow) error {
	f.stops = append(f.stops, rows...)
	return nil
}
func (f *fakeStaticRepo) InsertRoutes(versionID int, rows []gtfs.RouteRow) error { return nil }
func (f *fakeStaticRepo) InsertCalendars(versionID int, rows []gtfs.CalendarRow) error {
	f.calendars = append(f.calendars, rows...)
	return nil
}
func (f *fakeStaticRepo) InsertCalendarDates(versionID int, rows []gtfs.CalendarDateRow) error {
	return nil
}
func (f *fakeStaticRepo) InsertShapes(versionID int, rows []gtfs.ShapeRow) error { return nil }
func (f *fakeStaticRepo) InsertTrips(versionID int, rows []gtfs.TripRow) error {
	if f.failTrips {
		return fmt.Errorf("insert failed")
	}
	f.trips = append(f.trips, rows...)
	return nil
}
func (f *fakeStaticRepo) InsertStopTimes(versionID int, rows []gtfs.StopTimeRow) error { return nil }

type fakeDynamicRepo struct {
	static           *fakeStaticRepo
	tripUpdates      map[gtfsrt.TripUpdateKey]struct{}
	vehiclePositions map[gtfsrt.VehiclePositionKey]struct{}
}

func newFakeDynamicRepo(static *fakeStaticRepo) *fakeDynamicRepo {
	return &fakeDynamicRepo{
		static:           static,
		tripUpdates:      map[gtfsrt.TripUpdateKey]struct{}{},
		vehiclePositions: map[gtfsrt.VehiclePositionKey]struct{}{},
	}
}

func (f *fakeDynamicRepo) ValidTripIDs(versionID int) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for _, trip := range f.static.trips {
		ids[trip.TripID] = struct{}{}
	}
	return ids, nil
}

func (f *fakeDynamicRepo) ExistingTripUpdateKeys(versionID int, keys []gtfsrt.TripUpdateKey) (map[gtfsrt.TripUpdateKey]struct{}, error) {
	existing := make(map[gtfsrt.TripUpdateKey]struct{})
	for _, key := range keys {
		if _, ok := f.tripUpdates[key]; ok {
			existing[key] = struct{}{}
		}
	}
	return existing, nil
}

func (f *fakeDynamicRepo) ExistingVehiclePositionKeys(versionID int, keys []gtfsrt.VehiclePositionKey) (map[gtfsrt.VehiclePositionKey]struct{}, error) {
	existing := make(map[gtfsrt.VehiclePositionKey]struct{})
	for _, key := range keys {
		if _, ok := f.vehiclePositions[key]; ok {
			existing[key] = struct{}{}
		}
	}
	return existing, nil
}

func (f *fakeDynamicRepo) InsertTripUpdates(versionID int, rows []gtfsrt.TripUpdateRow) error {
	for _, row := range rows {
		if _, dup := f.tripUpdates[row.Key()]; dup {
			return fmt.Errorf("duplicate key %v", row.Key())
		}
		f.tripUpdates[row.Key()] = struct{}{}
	}
	return nil
}

func (f *fakeDynamicRepo) InsertVehiclePositions(versionID int, rows []gtfsrt.VehiclePositionRow) error {
	for _, row := range rows {
		if _, dup := f.vehiclePositions[row.Key()]; dup {
			return fmt.Errorf("duplicate key %v", row.Key())
		}
		f.vehiclePositions[row.Key()] = struct{}{}
	}
	return nil
}

func (f *fakeDynamicRepo) TripUpdateCount() (int, error)      { return len(f.tripUpdates), nil }
func (f *fakeDynamicRepo) VehiclePositionCount() (int, error) { return len(f.vehiclePositions), nil }

type fixture struct {
	loader      *Loader
	versionRepo *fakeVersionRepo
	ledgerRepo  *fakeLedgerRepo
	staticRepo  *fakeStaticRepo
	dynamicRepo *fakeDynamicRepo
	dir         string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	versionRepo := newFakeVersionRepo()
	ledgerRepo := newFakeLedgerRepo()
	staticRepo := &fakeStaticRepo{}
	dynamicRepo := newFakeDynamicRepo(staticRepo)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &fixture{
		loader: &Loader{
			processedDir: dir,
			dynamicDir:   dir,
			versionRepo:  versionRepo,
			ledgerRepo:   ledgerRepo,
			staticRepo:   staticRepo,
			dynamicRepo:  dynamicRepo,
			ctx:          ctx,
			cancel:       cancel,
		},
		versionRepo: versionRepo,
		ledgerRepo:  ledgerRepo,
		staticRepo:  staticRepo,
		dynamicRepo: dynamicRepo,
		dir:         dir,
	}
}

func (f *fixture) writeStaticFolder(t *testing.T, name string, trips []gtfs.TripRow) {
	t.Helper()
	folder := filepath.Join(f.dir, name)
	if err := batch.WriteParquet(filepath.Join(folder, "agency.parquet"),
		[]gtfs.AgencyRow{{AgencyID: "A1"}}); err != nil {
		t.Fatalf("Failed to write agency file: %v", err)
	}
	if err := batch.WriteParquet(filepath.Join(folder, "trips.parquet"), trips); err != nil {
		t.Fatalf("Failed to write trips file: %v", err)
	}
}

func (f *fixture) writeTripUpdates(t *testing.T, name string, rows []gtfsrt.TripUpdateRow) string {
	t.Helper()
	path := filepath.Join(f.dir, batch.FamilyTripUpdates, name)
	if err := batch.WriteParquet(path, rows); err != nil {
		t.Fatalf("Failed to write trip updates file: %v", err)
	}
	return path
}

func (f *fixture) writeVehiclePositions(t *testing.T, name string, rows []gtfsrt.VehiclePositionRow) string {
	t.Helper()
	path := filepath.Join(f.dir, batch.FamilyVehiclePositions, name)
	if err := batch.WriteParquet(path, rows); err != nil {
		t.Fatalf("Failed to write vehicle positions file: %v", err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func TestRunCycle_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{
		{TripID: "T1", RouteID: "R1", ServiceID: "WD"},
		{TripID: "T2", RouteID: "R1", ServiceID: "WD"},
	})
	tuPath := f.writeTripUpdates(t, "trip_updates_20250101000100.parquet", []gtfsrt.TripUpdateRow{
		{TripID: "T1", Timestamp: 100},
		{TripID: "T1", Timestamp: 100, StopSequence: 2}, // same key, dropped in-file
		{TripID: "T3", Timestamp: 100},                  // unknown trip, dropped
		{TripID: "T2", Timestamp: 110},
	})
	vpPath := f.writeVehiclePositions(t, "vehicle_positions_20250101000100.parquet", []gtfsrt.VehiclePositionRow{
		{EntityID: "V1", Timestamp: 100},                      // untracked, kept
		{EntityID: "V2", Timestamp: 100, TripID: strPtr("T1")},
		{EntityID: "V3", Timestamp: 100, TripID: strPtr("T9")}, // unknown trip, dropped
		{EntityID: "V1", Timestamp: 100},                       // same key, dropped in-file
	})

	f.loader.runCycle()

	if len(f.versionRepo.versions) != 1 {
		t.Fatalf("Expected 1 version, got %d", len(f.versionRepo.versions))
	}
	if len(f.staticRepo.trips) != 2 {
		t.Errorf("Expected 2 trips loaded, got %d", len(f.staticRepo.trips))
	}
	if len(f.staticRepo.agencies) != 1 {
		t.Errorf("Expected 1 agency loaded, got %d", len(f.staticRepo.agencies))
	}
	if !f.ledgerRepo.folders["gtfs_20250101000000"] {
		t.Error("Expected static folder to be ledgered")
	}

	if len(f.dynamicRepo.tripUpdates) != 2 {
		t.Errorf("Expected 2 trip updates stored, got %d", len(f.dynamicRepo.tripUpdates))
	}
	if _, ok := f.dynamicRepo.tripUpdates[gtfsrt.TripUpdateKey{TripID: "T3", Timestamp: 100}]; ok {
		t.Error("Row referencing unknown trip must not be stored")
	}
	if len(f.dynamicRepo.vehiclePositions) != 2 {
		t.Errorf("Expected 2 vehicle positions stored, got %d", len(f.dynamicRepo.vehiclePositions))
	}
	if _, ok := f.dynamicRepo.vehiclePositions[gtfsrt.VehiclePositionKey{EntityID: "V1", Timestamp: 100}]; !ok {
		t.Error("Untracked vehicle row must be stored")
	}
	if !f.ledgerRepo.files[tuPath] || !f.ledgerRepo.files[vpPath] {
		t.Error("Expected both batch files to be ledgered")
	}
}

func TestRunCycle_Rerun(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{{TripID: "T1", RouteID: "R1", ServiceID: "WD"}})
	f.writeTripUpdates(t, "trip_updates_20250101000100.parquet", []gtfsrt.TripUpdateRow{
		{TripID: "T1", Timestamp: 100},
	})

	f.loader.runCycle()
	f.loader.runCycle()

	if len(f.versionRepo.versions) != 1 {
		t.Errorf("Re-run must not create another version, got %d", len(f.versionRepo.versions))
	}
	if len(f.staticRepo.trips) != 1 {
		t.Errorf("Re-run must not reload static data, got %d trips", len(f.staticRepo.trips))
	}
	if len(f.dynamicRepo.tripUpdates) != 1 {
		t.Errorf("Re-run must not reload batch files, got %d rows", len(f.dynamicRepo.tripUpdates))
	}
}

func TestRunCycle_ExistingKeysExcluded(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{
		{TripID: "T1", RouteID: "R1", ServiceID: "WD"},
		{TripID: "T2", RouteID: "R1", ServiceID: "WD"},
	})
	f.writeTripUpdates(t, "trip_updates_20250101000100.parquet", []gtfsrt.TripUpdateRow{
		{TripID: "T1", Timestamp: 100},
	})
	f.loader.runCycle()

	// A later file repeats a stored key alongside a fresh one.
	f.writeTripUpdates(t, "trip_updates_20250101000200.parquet", []gtfsrt.TripUpdateRow{
		{TripID: "T1", Timestamp: 100},
		{TripID: "T2", Timestamp: 200},
	})
	f.loader.runCycle()

	if len(f.dynamicRepo.tripUpdates) != 2 {
		t.Errorf("Expected 2 stored rows, got %d", len(f.dynamicRepo.tripUpdates))
	}
	if _, ok := f.dynamicRepo.tripUpdates[gtfsrt.TripUpdateKey{TripID: "T2", Timestamp: 200}]; !ok {
		t.Error("Fresh key must be stored")
	}
}

func TestRunCycle_NoDataCreatesInitialVersion(t *testing.T) {
	f := newFixture(t)

	f.loader.runCycle()

	if len(f.versionRepo.versions) != 1 {
		t.Fatalf("Expected initial version, got %d", len(f.versionRepo.versions))
	}
	f.loader.runCycle()
	if len(f.versionRepo.versions) != 1 {
		t.Errorf("Second empty cycle must not create a version, got %d", len(f.versionRepo.versions))
	}
}

func TestRunCycle_VehicleDictionaryNotLoaded(t *testing.T) {
	f := newFixture(t)
	folder := filepath.Join(f.dir, "vehicle_dictionary_20250101000000")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "vehicle_dictionary.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	f.loader.runCycle()

	if !f.ledgerRepo.folders["vehicle_dictionary_20250101000000"] {
		t.Error("Dictionary folder must be ledgered")
	}
	if len(f.staticRepo.trips) != 0 || len(f.staticRepo.stops) != 0 {
		t.Error("Dictionary folder must not reach the database")
	}
}

func TestRunCycle_FailedFolderRetriedNextCycle(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{{TripID: "T1", RouteID: "R1", ServiceID: "WD"}})

	f.staticRepo.failTrips = true
	f.loader.runCycle()

	if f.ledgerRepo.folders["gtfs_20250101000000"] {
		t.Fatal("Failed folder must not be ledgered")
	}

	f.staticRepo.failTrips = false
	f.loader.runCycle()

	if !f.ledgerRepo.folders["gtfs_20250101000000"] {
		t.Error("Folder must load once the failure clears")
	}
	if len(f.staticRepo.trips) != 1 {
		t.Errorf("Expected 1 trip loaded, got %d", len(f.staticRepo.trips))
	}
}

func TestRunCycle_StaticFailureDefersDynamicLoad(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{{TripID: "T1", RouteID: "R1", ServiceID: "WD"}})
	tuPath := f.writeTripUpdates(t, "trip_updates_20250101000100.parquet", []gtfsrt.TripUpdateRow{
		{TripID: "T1", Timestamp: 100},
	})

	// A transient insert failure must leave the dynamic file untouched: an
	// aborted static pass has no committed trips to validate against, and a
	// drained file would never be retried.
	f.staticRepo.failTrips = true
	f.loader.runCycle()

	if len(f.dynamicRepo.tripUpdates) != 0 {
		t.Fatalf("Dynamic rows must not load during a failed static pass, got %d", len(f.dynamicRepo.tripUpdates))
	}
	if f.ledgerRepo.files[tuPath] {
		t.Fatal("Batch file must not be ledgered during a failed static pass")
	}

	f.staticRepo.failTrips = false
	f.loader.runCycle()

	if _, ok := f.dynamicRepo.tripUpdates[gtfsrt.TripUpdateKey{TripID: "T1", Timestamp: 100}]; !ok {
		t.Error("Trip update must load once the static failure clears")
	}
	if !f.ledgerRepo.files[tuPath] {
		t.Error("Batch file must be ledgered after the successful cycle")
	}
	if len(f.versionRepo.versions) != 1 {
		t.Errorf("Expected only the committed version to remain, got %d", len(f.versionRepo.versions))
	}
}

func TestRunCycle_FailedStaticPassLeavesNoVersionBehind(t *testing.T) {
	f := newFixture(t)
	f.writeStaticFolder(t, "gtfs_20250101000000", []gtfs.TripRow{{TripID: "T1", RouteID: "R1", ServiceID: "WD"}})

	f.staticRepo.failTrips = true
	for i := 0; i < 3; i++ {
		f.loader.runCycle()
	}

	if len(f.versionRepo.versions) != 0 {
		t.Errorf("Failed passes must not accumulate versions, got %d", len(f.versionRepo.versions))
	}
	if _, ok, _ := f.versionRepo.CurrentVersion(); ok {
		t.Error("No version may become current while every static pass fails")
	}
}
