package gtfs

// Typed rows for the static schedule tables. Parquet tags define the
// columnar schema written during static conversion and read back by the
// loader. Pointer fields are nullable columns; date fields stay in the
// feed's YYYYMMDD text form until database load.

type AgencyRow struct {
	AgencyID       string  `parquet:"agency_id"`
	AgencyName     *string `parquet:"agency_name,optional"`
	AgencyURL      *string `parquet:"agency_url,optional"`
	AgencyTimezone *string `parquet:"agency_timezone,optional"`
	AgencyPhone    *string `parquet:"agency_phone,optional"`
	AgencyLang     *string `parquet:"agency_lang,optional"`
}

type FeedInfoRow struct {
	FeedPublisherName *string `parquet:"feed_publisher_name,optional"`
	FeedPublisherURL  *string `parquet:"feed_publisher_url,optional"`
	FeedLang          *string `parquet:"feed_lang,optional"`
	FeedStartDate     *string `parquet:"feed_start_date,optional"`
	FeedEndDate       *string `parquet:"feed_end_date,optional"`
}

type StopRow struct {
	StopID   string  `parquet:"stop_id"`
	StopCode *string `parquet:"stop_code,optional"`
	StopName string  `parquet:"stop_name"`
	StopLat  float64 `parquet:"stop_lat"`
	StopLon  float64 `parquet:"stop_lon"`
	ZoneID   *string `parquet:"zone_id,optional"`
}

type RouteRow struct {
	RouteID        string  `parquet:"route_id"`
	AgencyID       string  `parquet:"agency_id"`
	RouteShortName string  `parquet:"route_short_name"`
	RouteLongName  *string `parquet:"route_long_name,optional"`
	RouteDesc      *string `parquet:"route_desc,optional"`
	RouteType      *int32  `parquet:"route_type,optional"`
	RouteColor     *string `parquet:"route_color,optional"`
	RouteTextColor *string `parquet:"route_text_color,optional"`
}

type CalendarRow struct {
	ServiceID string  `parquet:"service_id"`
	Monday    *int32  `parquet:"monday,optional"`
	Tuesday   *int32  `parquet:"tuesday,optional"`
	Wednesday *int32  `parquet:"wednesday,optional"`
	Thursday  *int32  `parquet:"thursday,optional"`
	Friday    *int32  `parquet:"friday,optional"`
	Saturday  *int32  `parquet:"saturday,optional"`
	Sunday    *int32  `parquet:"sunday,optional"`
	StartDate *string `parquet:"start_date,optional"`
	EndDate   *string `parquet:"end_date,optional"`
}

type CalendarDateRow struct {
	ServiceID     string `parquet:"service_id"`
	Date          string `parquet:"date"`
	ExceptionType int32  `parquet:"exception_type"`
}

type ShapeRow struct {
	ShapeID         string  `parquet:"shape_id"`
	ShapePtLat      float64 `parquet:"shape_pt_lat"`
	ShapePtLon      float64 `parquet:"shape_pt_lon"`
	ShapePtSequence int32   `parquet:"shape_pt_sequence"`
}

type TripRow struct {
	TripID               string  `parquet:"trip_id"`
	RouteID              string  `parquet:"route_id"`
	ServiceID            string  `parquet:"service_id"`
	TripHeadsign         *string `parquet:"trip_headsign,optional"`
	DirectionID          *int32  `parquet:"direction_id,optional"`
	BlockID              *string `parquet:"block_id,optional"`
	ShapeID              *string `parquet:"shape_id,optional"`
	WheelchairAccessible *int32  `parquet:"wheelchair_accessible,optional"`
	Brigade              *int32  `parquet:"brigade,optional"`
}

type StopTimeRow struct {
	TripID        string  `parquet:"trip_id"`
	ArrivalTime   *string `parquet:"arrival_time,optional"`
	DepartureTime *string `parquet:"departure_time,optional"`
	StopID        string  `parquet:"stop_id"`
	StopSequence  int32   `parquet:"stop_sequence"`
	StopHeadsign  *string `parquet:"stop_headsign,optional"`
	PickupType    *int32  `parquet:"pickup_type,optional"`
	DropOffType   *int32  `parquet:"drop_off_type,optional"`
}

// TableNames lists the static tables a schedule batch folder may carry, in
// referential load order (parents before children).
var TableNames = []string{
	"agency",
	"feed_info",
	"stops",
	"routes",
	"calendar",
	"calendar_dates",
	"shapes",
	"trips",
	"stop_times",
}
