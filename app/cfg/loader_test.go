package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:               "8080",
		UserAgent:          "Test Agent",
		WorkerCount:        5,
		CheckInterval:      30,
		DynamicInterval:    20,
		StaticInterval:     3600,
		MaxFilesPerFolder:  10,
		MaxCapturesPerPass: 50,
		Version:            "test-version",
		FeedsFile:          "./feeds.yml",
		RawDir:             "./data/raw",
		ProcessedDir:       "./data/processed",
		DynamicDir:         "./data/processed/dynamic",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "test_user",
		DBPassword:         "test_password",
		DBName:             "test_db",
		Debug:              true,
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.CheckInterval != 30 {
		t.Errorf("Expected check interval 30, got %d", cfg.CheckInterval)
	}
	if cfg.MaxFilesPerFolder != 10 {
		t.Errorf("Expected max files per folder 10, got %d", cfg.MaxFilesPerFolder)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("Expected DB host 'localhost', got '%s'", cfg.DBHost)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestModuleEnabled(t *testing.T) {
	cfg := &Cfg{Modules: []string{"fetch_dynamic", "transform"}}

	if !cfg.ModuleEnabled("fetch_dynamic") {
		t.Error("Expected fetch_dynamic to be enabled")
	}
	if !cfg.ModuleEnabled("transform") {
		t.Error("Expected transform to be enabled")
	}
	if cfg.ModuleEnabled("load") {
		t.Error("Expected load to be disabled")
	}
	if cfg.ModuleEnabled("") {
		t.Error("Expected empty module name to be disabled")
	}
}
