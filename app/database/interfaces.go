package database

import (
	"github.com/acme-corp/data-pipeline/app/gtfs"
	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

// VersionRepositoryInterface manages static dataset versions: one row per
// detected static-data change. A version whose static load fails before any
// folder commits is deleted again so it never becomes the current version.
type VersionRepositoryInterface interface {
	CreateVersion(description string) (int, error)
	// CurrentVersion returns the highest version id, with false when no
	// version exists yet.
	CurrentVersion() (int, bool, error)
	DeleteVersion(versionID int) error
}

// LedgerRepositoryInterface records which capture folders and batch files
// have been fully loaded. Marking is insert-if-absent so a duplicate mark
// is harmless.
type LedgerRepositoryInterface interface {
	IsFolderProcessed(folderName string) (bool, error)
	MarkFolderProcessed(folderName string) error
	IsFileProcessed(filePath string) (bool, error)
	MarkFileProcessed(filePath string) error
	FolderCount() (int, error)
	FileCount() (int, error)
}

// StaticRepositoryInterface bulk-inserts schedule tables scoped by version.
type StaticRepositoryInterface interface {
	InsertAgencies(versionID int, rows []gtfs.AgencyRow) error
	InsertFeedInfos(versionID int, rows []gtfs.FeedInfoRow) error
	InsertStops(versionID int, rows []gtfs.StopRow) error
	InsertRoutes(versionID int, rows []gtfs.RouteRow) error
	InsertCalendars(versionID int, rows []gtfs.CalendarRow) error
	InsertCalendarDates(versionID int, rows []gtfs.CalendarDateRow) error
	InsertShapes(versionID int, rows []gtfs.ShapeRow) error
	InsertTrips(versionID int, rows []gtfs.TripRow) error
	InsertStopTimes(versionID int, rows []gtfs.StopTimeRow) error
}

// DynamicRepositoryInterface validates and inserts real-time rows against a
// static version.
type DynamicRepositoryInterface interface {
	ValidTripIDs(versionID int) (map[string]struct{}, error)
	ExistingTripUpdateKeys(versionID int, keys []gtfsrt.TripUpdateKey) (map[gtfsrt.TripUpdateKey]struct{}, error)
	ExistingVehiclePositionKeys(versionID int, keys []gtfsrt.VehiclePositionKey) (map[gtfsrt.VehiclePositionKey]struct{}, error)
	InsertTripUpdates(versionID int, rows []gtfsrt.TripUpdateRow) error
	InsertVehiclePositions(versionID int, rows []gtfsrt.VehiclePositionRow) error
	TripUpdateCount() (int, error)
	VehiclePositionCount() (int, error)
}
