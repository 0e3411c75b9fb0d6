package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/gtfsrt"
)

type stubVersionRepo struct{ version int }

func (s *stubVersionRepo) CreateVersion(string) (int, error) { return s.version, nil }
func (s *stubVersionRepo) CurrentVersion() (int, bool, error) {
	return s.version, s.version > 0, nil
}
func (s *stubVersionRepo) DeleteVersion(int) error { return nil }

type stubLedgerRepo struct{ folders, files int }

func (s *stubLedgerRepo) IsFolderProcessed(string) (bool, error) { return false, nil }
func (s *stubLedgerRepo) MarkFolderProcessed(string) error       { return nil }
func (s *stubLedgerRepo) IsFileProcessed(string) (bool, error)   { return false, nil }
func (s *stubLedgerRepo) MarkFileProcessed(string) error         { return nil }
func (s *stubLedgerRepo) FolderCount() (int, error)              { return s.folders, nil }
func (s *stubLedgerRepo) FileCount() (int, error)                { return s.files, nil }

type stubDynamicRepo struct{ tripUpdates, vehiclePositions int }

func (s *stubDynamicRepo) ValidTripIDs(int) (map[string]struct{}, error) { return nil, nil }
func (s *stubDynamicRepo) ExistingTripUpdateKeys(int, []gtfsrt.TripUpdateKey) (map[gtfsrt.TripUpdateKey]struct{}, error) {
	return nil, nil
}
func (s *stubDynamicRepo) ExistingVehiclePositionKeys(int, []gtfsrt.VehiclePositionKey) (map[gtfsrt.VehiclePositionKey]struct{}, error) {
	return nil, nil
}
func (s *stubDynamicRepo) InsertTripUpdates(int, []gtfsrt.TripUpdateRow) error           { return nil }
func (s *stubDynamicRepo) InsertVehiclePositions(int, []gtfsrt.VehiclePositionRow) error { return nil }
func (s *stubDynamicRepo) TripUpdateCount() (int, error)                                 { return s.tripUpdates, nil }
func (s *stubDynamicRepo) VehiclePositionCount() (int, error)                            { return s.vehiclePositions, nil }

func TestGetStats(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &Handler{
		versionRepo: &stubVersionRepo{version: 3},
		ledgerRepo:  &stubLedgerRepo{folders: 4, files: 12},
		dynamicRepo: &stubDynamicRepo{tripUpdates: 100, vehiclePositions: 250},
		feeds: &config.Feeds{
			Dynamic: []config.DynamicFeed{{Key: "trip_updates", URL: "http://example.com/tu"}},
			Static:  []config.StaticFeed{{Key: "gtfs", URL: "http://example.com/gtfs", Kind: config.KindGTFSZip}},
		},
		version: "test",
	}

	r := gin.New()
	r.GET("/stats", handler.GetStats)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	checks := map[string]float64{
		"static_data_version": 3,
		"processed_folders":   4,
		"processed_files":     12,
		"trip_updates":        100,
		"vehicle_positions":   250,
		"dynamic_feeds":       1,
		"static_feeds":        1,
	}
	for key, want := range checks {
		got, ok := stats[key].(float64)
		if !ok || got != want {
			t.Errorf("Expected %s=%v, got %v", key, want, stats[key])
		}
	}
}

func TestGetStats_NoVersionYet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &Handler{
		versionRepo: &stubVersionRepo{},
		ledgerRepo:  &stubLedgerRepo{},
		dynamicRepo: &stubDynamicRepo{},
		feeds:       &config.Feeds{},
	}

	r := gin.New()
	r.GET("/stats", handler.GetStats)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, present := stats["static_data_version"]; present {
		t.Error("Version must be omitted before the first static load")
	}
}
