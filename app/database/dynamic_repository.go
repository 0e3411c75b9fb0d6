package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

var _ DynamicRepositoryInterface = (*DynamicRepository)(nil)

// DynamicRepository handles database operations for real-time rows
type DynamicRepository struct {
	db *DB
}

// NewDynamicRepository creates a new dynamic repository
func NewDynamicRepository(db *DB) *DynamicRepository {
	return &DynamicRepository{db: db}
}

// ValidTripIDs returns the trip ids known to a static version, used for
// referential validation before insert
func (r *DynamicRepository) ValidTripIDs(versionID int) (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT trip_id FROM trips WHERE version_id = $1`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trip ids: %w", err)
	}
	return ids, nil
}

// ExistingTripUpdateKeys returns which of the given keys are already stored
// under the version
func (r *DynamicRepository) ExistingTripUpdateKeys(versionID int, keys []gtfsrt.TripUpdateKey) (map[gtfsrt.TripUpdateKey]struct{}, error) {
	existing := make(map[gtfsrt.TripUpdateKey]struct{})
	if len(keys) == 0 {
		return existing, nil
	}

	tripIDs := make([]string, 0, len(keys))
	timestamps := make([]int64, 0, len(keys))
	requested := make(map[gtfsrt.TripUpdateKey]struct{}, len(keys))
	for _, key := range keys {
		tripIDs = append(tripIDs, key.TripID)
		timestamps = append(timestamps, key.Timestamp)
		requested[key] = struct{}{}
	}

	// The candidate set is a superset (cross product of ids and timestamps);
	// the requested map narrows it back to exact pairs.
	rows, err := r.db.Query(`
		SELECT trip_id, timestamp FROM trip_updates
		WHERE version_id = $1 AND trip_id = ANY($2) AND timestamp = ANY($3)
	`, versionID, pq.Array(tripIDs), pq.Array(timestamps))
	if err != nil {
		return nil, fmt.Errorf("failed to query trip update keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key gtfsrt.TripUpdateKey
		if err := rows.Scan(&key.TripID, &key.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trip update key: %w", err)
		}
		if _, ok := requested[key]; ok {
			existing[key] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trip update keys: %w", err)
	}
	return existing, nil
}

// ExistingVehiclePositionKeys returns which of the given keys are already
// stored under the version
func (r *DynamicRepository) ExistingVehiclePositionKeys(versionID int, keys []gtfsrt.VehiclePositionKey) (map[gtfsrt.VehiclePositionKey]struct{}, error) {
	existing := make(map[gtfsrt.VehiclePositionKey]struct{})
	if len(keys) == 0 {
		return existing, nil
	}

	entityIDs := make([]string, 0, len(keys))
	timestamps := make([]int64, 0, len(keys))
	requested := make(map[gtfsrt.VehiclePositionKey]struct{}, len(keys))
	for _, key := range keys {
		entityIDs = append(entityIDs, key.EntityID)
		timestamps = append(timestamps, key.Timestamp)
		requested[key] = struct{}{}
	}

	rows, err := r.db.Query(`
		SELECT entity_id, timestamp FROM vehicle_positions
		WHERE version_id = $1 AND entity_id = ANY($2) AND timestamp = ANY($3)
	`, versionID, pq.Array(entityIDs), pq.Array(timestamps))
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle position keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key gtfsrt.VehiclePositionKey
		if err := rows.Scan(&key.EntityID, &key.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle position key: %w", err)
		}
		if _, ok := requested[key]; ok {
			existing[key] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vehicle position keys: %w", err)
	}
	return existing, nil
}

// InsertTripUpdates appends trip update rows under the version
func (r *DynamicRepository) InsertTripUpdates(versionID int, rows []gtfsrt.TripUpdateRow) error {
	return insertRows(r.db, `
		INSERT INTO trip_updates (entity_id, is_deleted, trip_id, route_id, stop_sequence, arrival_delay,
			departure_delay, schedule_relationship, timestamp, delay, stop_id, start_time, start_date, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rows, func(row gtfsrt.TripUpdateRow) []any {
		return []any{row.EntityID, row.IsDeleted, row.TripID, nullIfEmpty(row.RouteID), row.StopSequence,
			row.ArrivalDelay, row.DepartureDelay, row.ScheduleRelationship, row.Timestamp, row.Delay,
			row.StopID, row.StartTime, row.StartDate, versionID}
	})
}

// InsertVehiclePositions appends vehicle position rows under the version
func (r *DynamicRepository) InsertVehiclePositions(versionID int, rows []gtfsrt.VehiclePositionRow) error {
	return insertRows(r.db, `
		INSERT INTO vehicle_positions (entity_id, is_deleted, trip_id, latitude, longitude, speed,
			bearing, occupancy_status, timestamp, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rows, func(row gtfsrt.VehiclePositionRow) []any {
		return []any{row.EntityID, row.IsDeleted, row.TripID, row.Latitude, row.Longitude, row.Speed,
			row.Bearing, row.OccupancyStatus, row.Timestamp, versionID}
	})
}

// TripUpdateCount returns the stored trip update row count across versions
func (r *DynamicRepository) TripUpdateCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trip_updates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trip updates: %w", err)
	}
	return count, nil
}

// VehiclePositionCount returns the stored vehicle position row count across
// versions
func (r *DynamicRepository) VehiclePositionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM vehicle_positions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vehicle positions: %w", err)
	}
	return count, nil
}

// nullIfEmpty maps an empty feed value to NULL for nullable text columns
// carrying foreign keys.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
