package gtfsrt

// Normalized row families produced from one decoded feed message. Parquet
// tags define the columnar batch schema; pointer fields map to optional
// columns and stay nil when the wire format marks them unset.

// TripUpdateRow is one stop-time update of a trip update entity, with the
// trip-level fields copied onto every row.
type TripUpdateRow struct {
	EntityID             string  `parquet:"entity_id"`
	IsDeleted            bool    `parquet:"is_deleted"`
	TripID               string  `parquet:"trip_id"`
	RouteID              string  `parquet:"route_id"`
	StartTime            string  `parquet:"start_time"`
	StartDate            string  `parquet:"start_date"`
	StopSequence         int32   `parquet:"stop_sequence"`
	StopID               *string `parquet:"stop_id,optional"`
	ArrivalDelay         *int32  `parquet:"arrival_delay,optional"`
	DepartureDelay       *int32  `parquet:"departure_delay,optional"`
	ScheduleRelationship int32   `parquet:"schedule_relationship"`
	Timestamp            int64   `parquet:"timestamp"`
	Delay                *int32  `parquet:"delay,optional"`
}

// VehiclePositionRow is one vehicle position entity.
type VehiclePositionRow struct {
	EntityID        string   `parquet:"entity_id"`
	IsDeleted       bool     `parquet:"is_deleted"`
	TripID          *string  `parquet:"trip_id,optional"`
	Latitude        *float64 `parquet:"latitude,optional"`
	Longitude       *float64 `parquet:"longitude,optional"`
	Speed           *float64 `parquet:"speed,optional"`
	Bearing         *float64 `parquet:"bearing,optional"`
	OccupancyStatus int32    `parquet:"occupancy_status"`
	Timestamp       int64    `parquet:"timestamp"`
}

// AlertRow is one (active period, informed entity) pair of an alert entity.
type AlertRow struct {
	EntityID        string  `parquet:"entity_id"`
	IsDeleted       bool    `parquet:"is_deleted"`
	AlertStart      int64   `parquet:"alert_start"`
	AlertEnd        int64   `parquet:"alert_end"`
	Cause           int32   `parquet:"cause"`
	Effect          int32   `parquet:"effect"`
	URL             *string `parquet:"url,optional"`
	HeaderText      *string `parquet:"header_text,optional"`
	DescriptionText *string `parquet:"description_text,optional"`
	AgencyID        string  `parquet:"agency_id"`
	RouteID         string  `parquet:"route_id"`
	StopID          string  `parquet:"stop_id"`
	TripID          *string `parquet:"trip_id,optional"`
}

// Batch holds the three independent record families normalized from one or
// more feed messages.
type Batch struct {
	TripUpdates      []TripUpdateRow
	VehiclePositions []VehiclePositionRow
	Alerts           []AlertRow
}

// Append merges another batch into this one.
func (b *Batch) Append(other Batch) {
	b.TripUpdates = append(b.TripUpdates, other.TripUpdates...)
	b.VehiclePositions = append(b.VehiclePositions, other.VehiclePositions...)
	b.Alerts = append(b.Alerts, other.Alerts...)
}

// Empty reports whether the batch holds no rows at all.
func (b *Batch) Empty() bool {
	return len(b.TripUpdates) == 0 && len(b.VehiclePositions) == 0 && len(b.Alerts) == 0
}

// TripUpdateKey is the storage primary key of a trip update row within a
// dataset version.
type TripUpdateKey struct {
	TripID    string
	Timestamp int64
}

// Key returns the row's storage primary key (version scoping is applied by
// the loader).
func (r TripUpdateRow) Key() TripUpdateKey {
	return TripUpdateKey{TripID: r.TripID, Timestamp: r.Timestamp}
}

// VehiclePositionKey is the storage primary key of a vehicle position row
// within a dataset version.
type VehiclePositionKey struct {
	EntityID  string
	Timestamp int64
}

// Key returns the row's storage primary key.
func (r VehiclePositionRow) Key() VehiclePositionKey {
	return VehiclePositionKey{EntityID: r.EntityID, Timestamp: r.Timestamp}
}

// CombinedRow unions all three families into one schema for the combined
// batch file written when a batch carries alerts. Never read back by the
// loader.
type CombinedRow struct {
	EntityID             string   `parquet:"entity_id"`
	IsDeleted            bool     `parquet:"is_deleted"`
	TripID               *string  `parquet:"trip_id,optional"`
	RouteID              *string  `parquet:"route_id,optional"`
	StartTime            *string  `parquet:"start_time,optional"`
	StartDate            *string  `parquet:"start_date,optional"`
	StopSequence         *int32   `parquet:"stop_sequence,optional"`
	StopID               *string  `parquet:"stop_id,optional"`
	ArrivalDelay         *int32   `parquet:"arrival_delay,optional"`
	DepartureDelay       *int32   `parquet:"departure_delay,optional"`
	ScheduleRelationship *int32   `parquet:"schedule_relationship,optional"`
	Timestamp            *int64   `parquet:"timestamp,optional"`
	Delay                *int32   `parquet:"delay,optional"`
	Latitude             *float64 `parquet:"latitude,optional"`
	Longitude            *float64 `parquet:"longitude,optional"`
	Speed                *float64 `parquet:"speed,optional"`
	Bearing              *float64 `parquet:"bearing,optional"`
	OccupancyStatus      *int32   `parquet:"occupancy_status,optional"`
	AlertStart           *int64   `parquet:"alert_start,optional"`
	AlertEnd             *int64   `parquet:"alert_end,optional"`
	Cause                *int32   `parquet:"cause,optional"`
	Effect               *int32   `parquet:"effect,optional"`
	URL                  *string  `parquet:"url,optional"`
	HeaderText           *string  `parquet:"header_text,optional"`
	DescriptionText      *string  `parquet:"description_text,optional"`
	AgencyID             *string  `parquet:"agency_id,optional"`
}

// Combined widens a trip update row into the combined schema.
func (r TripUpdateRow) Combined() CombinedRow {
	return CombinedRow{
		EntityID:             r.EntityID,
		IsDeleted:            r.IsDeleted,
		TripID:               &r.TripID,
		RouteID:              &r.RouteID,
		StartTime:            &r.StartTime,
		StartDate:            &r.StartDate,
		StopSequence:         &r.StopSequence,
		StopID:               r.StopID,
		ArrivalDelay:         r.ArrivalDelay,
		DepartureDelay:       r.DepartureDelay,
		ScheduleRelationship: &r.ScheduleRelationship,
		Timestamp:            &r.Timestamp,
		Delay:                r.Delay,
	}
}

// Combined widens a vehicle position row into the combined schema.
func (r VehiclePositionRow) Combined() CombinedRow {
	return CombinedRow{
		EntityID:        r.EntityID,
		IsDeleted:       r.IsDeleted,
		TripID:          r.TripID,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Speed:           r.Speed,
		Bearing:         r.Bearing,
		OccupancyStatus: &r.OccupancyStatus,
		Timestamp:       &r.Timestamp,
	}
}

// Combined widens an alert row into the combined schema.
func (r AlertRow) Combined() CombinedRow {
	return CombinedRow{
		EntityID:        r.EntityID,
		IsDeleted:       r.IsDeleted,
		TripID:          r.TripID,
		RouteID:         &r.RouteID,
		StopID:          &r.StopID,
		AlertStart:      &r.AlertStart,
		AlertEnd:        &r.AlertEnd,
		Cause:           &r.Cause,
		Effect:          &r.Effect,
		URL:             r.URL,
		HeaderText:      r.HeaderText,
		DescriptionText: r.DescriptionText,
		AgencyID:        &r.AgencyID,
	}
}
