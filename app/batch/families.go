package batch

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

// Record family directory names under the processed root.
const (
	FamilyTripUpdates      = "trip_updates"
	FamilyVehiclePositions = "vehicle_positions"
	FamilyAlerts           = "alerts"
	FamilyFeeds            = "feeds"
)

// WriteFamilies writes a normalized batch as per-family parquet files named
// by the batch stamp. The stamp must be unique per sealed capture folder or
// later batches overwrite earlier ones. Families with no rows produce no
// file. When the batch carries at least one alert an additional combined
// file with every row of all three families is written under the feeds
// family.
func WriteFamilies(outDir, stamp string, b gtfsrt.Batch) error {
	if b.Empty() {
		slog.Info("Batch is empty, nothing to write", "stamp", stamp)
		return nil
	}

	tripUpdates := Dedupe(b.TripUpdates)
	vehiclePositions := Dedupe(b.VehiclePositions)
	alerts := Dedupe(b.Alerts)

	if len(tripUpdates) > 0 {
		path := familyPath(outDir, FamilyTripUpdates, stamp)
		if err := WriteParquet(path, tripUpdates); err != nil {
			return fmt.Errorf("failed to write trip updates: %w", err)
		}
		slog.Info("Wrote batch file", "file", path, "rows", len(tripUpdates))
	}
	if len(vehiclePositions) > 0 {
		path := familyPath(outDir, FamilyVehiclePositions, stamp)
		if err := WriteParquet(path, vehiclePositions); err != nil {
			return fmt.Errorf("failed to write vehicle positions: %w", err)
		}
		slog.Info("Wrote batch file", "file", path, "rows", len(vehiclePositions))
	}
	if len(alerts) > 0 {
		path := familyPath(outDir, FamilyAlerts, stamp)
		if err := WriteParquet(path, alerts); err != nil {
			return fmt.Errorf("failed to write alerts: %w", err)
		}
		slog.Info("Wrote batch file", "file", path, "rows", len(alerts))

		combined := make([]gtfsrt.CombinedRow, 0, len(tripUpdates)+len(vehiclePositions)+len(alerts))
		for _, r := range tripUpdates {
			combined = append(combined, r.Combined())
		}
		for _, r := range vehiclePositions {
			combined = append(combined, r.Combined())
		}
		for _, r := range alerts {
			combined = append(combined, r.Combined())
		}
		path = familyPath(outDir, FamilyFeeds, stamp)
		if err := WriteParquet(path, combined); err != nil {
			return fmt.Errorf("failed to write combined batch: %w", err)
		}
		slog.Info("Wrote batch file", "file", path, "rows", len(combined))
	}
	return nil
}

func familyPath(outDir, family, stamp string) string {
	return filepath.Join(outDir, family, fmt.Sprintf("%s_%s.parquet", family, stamp))
}
