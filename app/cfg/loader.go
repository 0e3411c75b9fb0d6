package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"transit_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"transit_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"transit" description:"Database name"`

	// Application configuration
	FeedsFile          string   `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file with static and dynamic feed definitions"`
	RawDir             string   `long:"raw-dir" env:"RAW_DIR" default:"./data/raw" description:"Directory for raw fetched files"`
	ProcessedDir       string   `long:"processed-dir" env:"PROCESSED_DIR" default:"./data/processed" description:"Directory for columnar static batches"`
	DynamicDir         string   `long:"dynamic-dir" env:"DYNAMIC_DIR" default:"./data/processed/dynamic" description:"Directory for columnar dynamic batches"`
	DynamicInterval    int      `long:"dynamic-interval" env:"DYNAMIC_INTERVAL" default:"20" description:"Dynamic feed fetch interval in seconds"`
	StaticInterval     int      `long:"static-interval" env:"STATIC_INTERVAL" default:"3600" description:"Static feed fetch interval in seconds"`
	MaxFilesPerFolder  int      `long:"max-files-per-folder" env:"MAX_FILES_PER_FOLDER" default:"10" description:"Capture files per folder before sealing"`
	MaxCapturesPerPass int      `long:"max-captures-per-pass" env:"MAX_CAPTURES_PER_PASS" default:"50" description:"Maximum capture files transformed per folder pass"`
	TransformInterval  int      `long:"transform-interval" env:"TRANSFORM_INTERVAL" default:"10" description:"Transform stage poll interval in seconds"`
	CheckInterval      int      `long:"check-interval" env:"CHECK_INTERVAL" default:"30" description:"Loader check interval in seconds"`
	WorkerCount        int      `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for fetch tasks"`
	Port               string   `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Modules            []string `long:"modules" env:"MODULES" env-delim:"," default:"fetch_dynamic" default:"fetch_static" default:"transform" default:"load" description:"Pipeline modules to run"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Transit Pipeline/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:             raw.DBHost,
		DBPort:             raw.DBPort,
		DBUser:             raw.DBUser,
		DBPassword:         raw.DBPassword,
		DBName:             raw.DBName,
		FeedsFile:          raw.FeedsFile,
		RawDir:             raw.RawDir,
		ProcessedDir:       raw.ProcessedDir,
		DynamicDir:         raw.DynamicDir,
		DynamicInterval:    raw.DynamicInterval,
		StaticInterval:     raw.StaticInterval,
		MaxFilesPerFolder:  raw.MaxFilesPerFolder,
		MaxCapturesPerPass: raw.MaxCapturesPerPass,
		TransformInterval:  raw.TransformInterval,
		CheckInterval:      raw.CheckInterval,
		WorkerCount:        raw.WorkerCount,
		Port:               raw.Port,
		Modules:            raw.Modules,
		UserAgent:          raw.UserAgent,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
