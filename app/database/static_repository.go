package database

import (
	"fmt"
	"time"

	"github.com/acme-corp/data-pipeline/app/gtfs"
)

var _ StaticRepositoryInterface = (*StaticRepository)(nil)

// StaticRepository handles bulk inserts of schedule tables. Every row is
// scoped by the dataset version it was loaded under.
type StaticRepository struct {
	db *DB
}

// NewStaticRepository creates a new static repository
func NewStaticRepository(db *DB) *StaticRepository {
	return &StaticRepository{db: db}
}

// parseDate converts a feed YYYYMMDD value to a DATE parameter. Missing and
// malformed values both load as NULL.
func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("20060102", *s)
	if err != nil {
		return nil
	}
	return &t
}

// insertRows runs one prepared insert per row inside a transaction, so a
// table file loads all-or-nothing.
func insertRows[T any](db *DB, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(args(row)...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *StaticRepository) InsertAgencies(versionID int, rows []gtfs.AgencyRow) error {
	return insertRows(r.db, `
		INSERT INTO agency (agency_id, agency_name, agency_url, agency_timezone, agency_phone, agency_lang, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rows, func(row gtfs.AgencyRow) []any {
		return []any{row.AgencyID, row.AgencyName, row.AgencyURL, row.AgencyTimezone, row.AgencyPhone, row.AgencyLang, versionID}
	})
}

func (r *StaticRepository) InsertFeedInfos(versionID int, rows []gtfs.FeedInfoRow) error {
	return insertRows(r.db, `
		INSERT INTO feed_info (feed_publisher_name, feed_publisher_url, feed_lang, feed_start_date, feed_end_date, version_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rows, func(row gtfs.FeedInfoRow) []any {
		return []any{row.FeedPublisherName, row.FeedPublisherURL, row.FeedLang, parseDate(row.FeedStartDate), parseDate(row.FeedEndDate), versionID}
	})
}

func (r *StaticRepository) InsertStops(versionID int, rows []gtfs.StopRow) error {
	return insertRows(r.db, `
		INSERT INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon, zone_id, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rows, func(row gtfs.StopRow) []any {
		return []any{row.StopID, row.StopCode, row.StopName, row.StopLat, row.StopLon, row.ZoneID, versionID}
	})
}

func (r *StaticRepository) InsertRoutes(versionID int, rows []gtfs.RouteRow) error {
	return insertRows(r.db, `
		INSERT INTO routes (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_color, route_text_color, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rows, func(row gtfs.RouteRow) []any {
		return []any{row.RouteID, row.AgencyID, row.RouteShortName, row.RouteLongName, row.RouteDesc, row.RouteType, row.RouteColor, row.RouteTextColor, versionID}
	})
}

func (r *StaticRepository) InsertCalendars(versionID int, rows []gtfs.CalendarRow) error {
	return insertRows(r.db, `
		INSERT INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rows, func(row gtfs.CalendarRow) []any {
		return []any{row.ServiceID, row.Monday, row.Tuesday, row.Wednesday, row.Thursday, row.Friday, row.Saturday, row.Sunday, parseDate(row.StartDate), parseDate(row.EndDate), versionID}
	})
}

func (r *StaticRepository) InsertCalendarDates(versionID int, rows []gtfs.CalendarDateRow) error {
	return insertRows(r.db, `
		INSERT INTO calendar_dates (service_id, date, exception_type, version_id)
		VALUES ($1, $2, $3, $4)
	`, rows, func(row gtfs.CalendarDateRow) []any {
		date := row.Date
		return []any{row.ServiceID, parseDate(&date), row.ExceptionType, versionID}
	})
}

func (r *StaticRepository) InsertShapes(versionID int, rows []gtfs.ShapeRow) error {
	return insertRows(r.db, `
		INSERT INTO shapes (shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence, version_id)
		VALUES ($1, $2, $3, $4, $5)
	`, rows, func(row gtfs.ShapeRow) []any {
		return []any{row.ShapeID, row.ShapePtLat, row.ShapePtLon, row.ShapePtSequence, versionID}
	})
}

func (r *StaticRepository) InsertTrips(versionID int, rows []gtfs.TripRow) error {
	return insertRows(r.db, `
		INSERT INTO trips (trip_id, route_id, service_id, trip_headsign, direction_id, block_id, shape_id, wheelchair_accessible, brigade, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rows, func(row gtfs.TripRow) []any {
		return []any{row.TripID, row.RouteID, row.ServiceID, row.TripHeadsign, row.DirectionID, row.BlockID, row.ShapeID, row.WheelchairAccessible, row.Brigade, versionID}
	})
}

func (r *StaticRepository) InsertStopTimes(versionID int, rows []gtfs.StopTimeRow) error {
	return insertRows(r.db, `
		INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence, stop_headsign, pickup_type, drop_off_type, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rows, func(row gtfs.StopTimeRow) []any {
		return []any{row.TripID, row.ArrivalTime, row.DepartureTime, row.StopID, row.StopSequence, row.StopHeadsign, row.PickupType, row.DropOffType, versionID}
	})
}
