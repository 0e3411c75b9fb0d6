package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// header maps CSV column names to their index in a record, case
// insensitively. GTFS feeds vary in column order and optional columns, so
// every lookup goes through the header.
type header struct {
	idx map[string]int
}

func newHeader(cols []string) header {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		// Some feeds ship a UTF-8 BOM on the first column name.
		idx[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "\ufeff"))] = i
	}
	return header{idx: idx}
}

func (h header) str(rec []string, col string) string {
	i, ok := h.idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// optStr treats a missing column and an empty value both as absent.
func (h header) optStr(rec []string, col string) *string {
	v := h.str(rec, col)
	if v == "" {
		return nil
	}
	return &v
}

func (h header) optInt(rec []string, col string) *int32 {
	v := h.str(rec, col)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return nil
	}
	i := int32(n)
	return &i
}

func (h header) reqInt(rec []string, col string) (int32, error) {
	v := h.str(rec, col)
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid integer %q", col, v)
	}
	return int32(n), nil
}

func (h header) reqFloat(rec []string, col string) (float64, error) {
	v := h.str(rec, col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid float %q", col, v)
	}
	return f, nil
}

// readRows decodes one GTFS CSV table into typed rows.
func readRows[T any](r io.Reader, parse func(header, []string) (T, error)) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	h := newHeader(records[0])
	rows := make([]T, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parse(h, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseAgency(h header, rec []string) (AgencyRow, error) {
	id := h.str(rec, "agency_id")
	if id == "" {
		return AgencyRow{}, fmt.Errorf("agency_id is required")
	}
	return AgencyRow{
		AgencyID:       id,
		AgencyName:     h.optStr(rec, "agency_name"),
		AgencyURL:      h.optStr(rec, "agency_url"),
		AgencyTimezone: h.optStr(rec, "agency_timezone"),
		AgencyPhone:    h.optStr(rec, "agency_phone"),
		AgencyLang:     h.optStr(rec, "agency_lang"),
	}, nil
}

func parseFeedInfo(h header, rec []string) (FeedInfoRow, error) {
	return FeedInfoRow{
		FeedPublisherName: h.optStr(rec, "feed_publisher_name"),
		FeedPublisherURL:  h.optStr(rec, "feed_publisher_url"),
		FeedLang:          h.optStr(rec, "feed_lang"),
		FeedStartDate:     h.optStr(rec, "feed_start_date"),
		FeedEndDate:       h.optStr(rec, "feed_end_date"),
	}, nil
}

func parseStop(h header, rec []string) (StopRow, error) {
	id := h.str(rec, "stop_id")
	if id == "" {
		return StopRow{}, fmt.Errorf("stop_id is required")
	}
	lat, err := h.reqFloat(rec, "stop_lat")
	if err != nil {
		return StopRow{}, err
	}
	lon, err := h.reqFloat(rec, "stop_lon")
	if err != nil {
		return StopRow{}, err
	}
	return StopRow{
		StopID:   id,
		StopCode: h.optStr(rec, "stop_code"),
		StopName: h.str(rec, "stop_name"),
		StopLat:  lat,
		StopLon:  lon,
		ZoneID:   h.optStr(rec, "zone_id"),
	}, nil
}

func parseRoute(h header, rec []string) (RouteRow, error) {
	id := h.str(rec, "route_id")
	if id == "" {
		return RouteRow{}, fmt.Errorf("route_id is required")
	}
	return RouteRow{
		RouteID:        id,
		AgencyID:       h.str(rec, "agency_id"),
		RouteShortName: h.str(rec, "route_short_name"),
		RouteLongName:  h.optStr(rec, "route_long_name"),
		RouteDesc:      h.optStr(rec, "route_desc"),
		RouteType:      h.optInt(rec, "route_type"),
		RouteColor:     h.optStr(rec, "route_color"),
		RouteTextColor: h.optStr(rec, "route_text_color"),
	}, nil
}

func parseCalendar(h header, rec []string) (CalendarRow, error) {
	id := h.str(rec, "service_id")
	if id == "" {
		return CalendarRow{}, fmt.Errorf("service_id is required")
	}
	return CalendarRow{
		ServiceID: id,
		Monday:    h.optInt(rec, "monday"),
		Tuesday:   h.optInt(rec, "tuesday"),
		Wednesday: h.optInt(rec, "wednesday"),
		Thursday:  h.optInt(rec, "thursday"),
		Friday:    h.optInt(rec, "friday"),
		Saturday:  h.optInt(rec, "saturday"),
		Sunday:    h.optInt(rec, "sunday"),
		StartDate: h.optStr(rec, "start_date"),
		EndDate:   h.optStr(rec, "end_date"),
	}, nil
}

func parseCalendarDate(h header, rec []string) (CalendarDateRow, error) {
	id := h.str(rec, "service_id")
	if id == "" {
		return CalendarDateRow{}, fmt.Errorf("service_id is required")
	}
	exc, err := h.reqInt(rec, "exception_type")
	if err != nil {
		return CalendarDateRow{}, err
	}
	return CalendarDateRow{
		ServiceID:     id,
		Date:          h.str(rec, "date"),
		ExceptionType: exc,
	}, nil
}

func parseShape(h header, rec []string) (ShapeRow, error) {
	id := h.str(rec, "shape_id")
	if id == "" {
		return ShapeRow{}, fmt.Errorf("shape_id is required")
	}
	lat, err := h.reqFloat(rec, "shape_pt_lat")
	if err != nil {
		return ShapeRow{}, err
	}
	lon, err := h.reqFloat(rec, "shape_pt_lon")
	if err != nil {
		return ShapeRow{}, err
	}
	seq, err := h.reqInt(rec, "shape_pt_sequence")
	if err != nil {
		return ShapeRow{}, err
	}
	return ShapeRow{
		ShapeID:         id,
		ShapePtLat:      lat,
		ShapePtLon:      lon,
		ShapePtSequence: seq,
	}, nil
}

func parseTrip(h header, rec []string) (TripRow, error) {
	id := h.str(rec, "trip_id")
	if id == "" {
		return TripRow{}, fmt.Errorf("trip_id is required")
	}
	return TripRow{
		TripID:               id,
		RouteID:              h.str(rec, "route_id"),
		ServiceID:            h.str(rec, "service_id"),
		TripHeadsign:         h.optStr(rec, "trip_headsign"),
		DirectionID:          h.optInt(rec, "direction_id"),
		BlockID:              h.optStr(rec, "block_id"),
		ShapeID:              h.optStr(rec, "shape_id"),
		WheelchairAccessible: h.optInt(rec, "wheelchair_accessible"),
		Brigade:              h.optInt(rec, "brigade"),
	}, nil
}

func parseStopTime(h header, rec []string) (StopTimeRow, error) {
	id := h.str(rec, "trip_id")
	if id == "" {
		return StopTimeRow{}, fmt.Errorf("trip_id is required")
	}
	seq, err := h.reqInt(rec, "stop_sequence")
	if err != nil {
		return StopTimeRow{}, err
	}
	return StopTimeRow{
		TripID:        id,
		ArrivalTime:   h.optStr(rec, "arrival_time"),
		DepartureTime: h.optStr(rec, "departure_time"),
		StopID:        h.str(rec, "stop_id"),
		StopSequence:  seq,
		StopHeadsign:  h.optStr(rec, "stop_headsign"),
		PickupType:    h.optInt(rec, "pickup_type"),
		DropOffType:   h.optInt(rec, "drop_off_type"),
	}, nil
}
