package gtfsrt

import (
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// entityBase carries the per-entity fields copied onto every normalized row.
type entityBase struct {
	ID        string
	IsDeleted bool
}

// Normalize decodes one captured feed message and fans its entities out into
// the three normalized record families. An entity may carry more than one
// payload kind; each present payload contributes rows to its family.
func Normalize(data []byte) (Batch, error) {
	var msg gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Batch{}, fmt.Errorf("failed to decode feed message: %w", err)
	}

	var batch Batch
	for _, entity := range msg.GetEntity() {
		base := entityBase{ID: entity.GetId(), IsDeleted: entity.GetIsDeleted()}
		if tu := entity.GetTripUpdate(); tu != nil {
			batch.TripUpdates = append(batch.TripUpdates, parseTripUpdate(base, tu)...)
		}
		if v := entity.GetVehicle(); v != nil {
			batch.VehiclePositions = append(batch.VehiclePositions, parseVehiclePosition(base, v))
		}
		if a := entity.GetAlert(); a != nil {
			batch.Alerts = append(batch.Alerts, parseAlert(base, a)...)
		}
	}
	return batch, nil
}

// parseTripUpdate emits one row per stop-time update, copying the
// trip-level fields onto each.
func parseTripUpdate(base entityBase, tu *gtfsrtpb.TripUpdate) []TripUpdateRow {
	trip := tu.GetTrip()

	rows := make([]TripUpdateRow, 0, len(tu.GetStopTimeUpdate()))
	for _, stu := range tu.GetStopTimeUpdate() {
		row := TripUpdateRow{
			EntityID:             base.ID,
			IsDeleted:            base.IsDeleted,
			TripID:               trip.GetTripId(),
			RouteID:              trip.GetRouteId(),
			StartTime:            trip.GetStartTime(),
			StartDate:            trip.GetStartDate(),
			StopSequence:         int32(stu.GetStopSequence()),
			StopID:               optionalString(stu.StopId),
			ScheduleRelationship: int32(stu.GetScheduleRelationship()),
			Timestamp:            int64(tu.GetTimestamp()),
			Delay:                tu.Delay,
		}
		if arrival := stu.GetArrival(); arrival != nil {
			row.ArrivalDelay = arrival.Delay
		}
		if departure := stu.GetDeparture(); departure != nil {
			row.DepartureDelay = departure.Delay
		}
		rows = append(rows, row)
	}
	return rows
}

// parseVehiclePosition emits exactly one row. Optional position fields stay
// nil when the wire format marks them unset, never coerced to zero.
func parseVehiclePosition(base entityBase, v *gtfsrtpb.VehiclePosition) VehiclePositionRow {
	row := VehiclePositionRow{
		EntityID:        base.ID,
		IsDeleted:       base.IsDeleted,
		OccupancyStatus: int32(v.GetOccupancyStatus()),
		Timestamp:       int64(v.GetTimestamp()),
	}
	if trip := v.GetTrip(); trip != nil {
		row.TripID = optionalString(trip.TripId)
	}
	if pos := v.GetPosition(); pos != nil {
		row.Latitude = optionalFloat(pos.Latitude)
		row.Longitude = optionalFloat(pos.Longitude)
		row.Speed = optionalFloat(pos.Speed)
		row.Bearing = optionalFloat(pos.Bearing)
	}
	return row
}

// parseAlert emits the cross product of active periods and informed
// entities.
func parseAlert(base entityBase, a *gtfsrtpb.Alert) []AlertRow {
	var rows []AlertRow
	for _, period := range a.GetActivePeriod() {
		for _, informed := range a.GetInformedEntity() {
			row := AlertRow{
				EntityID:        base.ID,
				IsDeleted:       base.IsDeleted,
				AlertStart:      int64(period.GetStart()),
				AlertEnd:        int64(period.GetEnd()),
				Cause:           int32(a.GetCause()),
				Effect:          int32(a.GetEffect()),
				URL:             firstTranslation(a.GetUrl()),
				HeaderText:      firstTranslation(a.GetHeaderText()),
				DescriptionText: firstTranslation(a.GetDescriptionText()),
				AgencyID:        informed.GetAgencyId(),
				RouteID:         informed.GetRouteId(),
				StopID:          informed.GetStopId(),
			}
			if trip := informed.GetTrip(); trip != nil {
				row.TripID = optionalString(trip.TripId)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// firstTranslation returns the first translation of a translated string, or
// nil when untranslated.
func firstTranslation(ts *gtfsrtpb.TranslatedString) *string {
	if ts == nil || len(ts.GetTranslation()) == 0 {
		return nil
	}
	text := ts.GetTranslation()[0].GetText()
	return &text
}

// optionalString treats both unset and empty wire values as absent.
func optionalString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func optionalFloat(f *float32) *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}
