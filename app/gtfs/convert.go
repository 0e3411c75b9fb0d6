package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/acme-corp/data-pipeline/app/batch"
)

// ConvertZip extracts a static schedule ZIP and writes one parquet file per
// known table into outDir. A failure on one table is logged and does not
// abort the remaining tables; the error returned reflects only opening the
// archive itself.
func ConvertZip(zipPath, outDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", zipPath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	found := make(map[string]bool)
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		table := strings.TrimSuffix(name, ".txt")
		if !strings.HasSuffix(name, ".txt") || !knownTable(table) {
			continue
		}
		found[table] = true

		if err := convertZipEntry(f, table, outDir); err != nil {
			slog.Error("Failed to convert static table", "table", table, "zip", zipPath, "error", err)
		}
	}

	for _, table := range TableNames {
		if !found[table] {
			slog.Warn("Static table missing from archive", "table", table, "zip", zipPath)
		}
	}
	return nil
}

func knownTable(name string) bool {
	for _, t := range TableNames {
		if t == name {
			return true
		}
	}
	return false
}

func convertZipEntry(f *zip.File, table, outDir string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry: %w", err)
	}
	defer rc.Close()

	outFile := filepath.Join(outDir, table+".parquet")
	switch table {
	case "agency":
		return convertTable(rc, outFile, parseAgency)
	case "feed_info":
		return convertTable(rc, outFile, parseFeedInfo)
	case "stops":
		return convertTable(rc, outFile, parseStop)
	case "routes":
		return convertTable(rc, outFile, parseRoute)
	case "calendar":
		return convertTable(rc, outFile, parseCalendar)
	case "calendar_dates":
		return convertTable(rc, outFile, parseCalendarDate)
	case "shapes":
		return convertTable(rc, outFile, parseShape)
	case "trips":
		return convertTable(rc, outFile, parseTrip)
	case "stop_times":
		return convertTable(rc, outFile, parseStopTime)
	}
	return fmt.Errorf("unknown table %s", table)
}

func convertTable[T any](r io.Reader, outFile string, parse func(header, []string) (T, error)) error {
	rows, err := readRows(r, parse)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		slog.Warn("Static table is empty, skipping", "file", outFile)
		return nil
	}
	if err := batch.WriteParquet(outFile, rows); err != nil {
		return err
	}
	slog.Info("Converted static table", "file", outFile, "rows", len(rows))
	return nil
}

// ConvertCSV converts a one-table CSV resource (the vehicle dictionary)
// into a parquet file, treating every column as an optional string. The
// schema is built from the header so arbitrary dictionaries survive
// unmodeled.
func ConvertCSV(csvPath, outFile string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}
	if len(records) < 2 {
		slog.Warn("CSV resource has no data rows, skipping", "file", csvPath)
		return nil
	}

	cols := records[0]
	group := parquet.Group{}
	for _, col := range cols {
		group[strings.TrimSpace(col)] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema(strings.TrimSuffix(filepath.Base(outFile), ".parquet"), group)

	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if i < len(rec) && rec[i] != "" {
				row[strings.TrimSpace(col)] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp := outFile + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := parquet.NewGenericWriter[map[string]any](out, schema)
	if _, err := w.Write(rows); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, outFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}

	slog.Info("Converted CSV resource", "file", outFile, "rows", len(rows))
	return nil
}
