package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/acme-corp/data-pipeline/app/api"
	"github.com/acme-corp/data-pipeline/app/capture"
	"github.com/acme-corp/data-pipeline/app/cfg"
	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/database"
	"github.com/acme-corp/data-pipeline/app/loader"
	"github.com/acme-corp/data-pipeline/app/metadata"
	"github.com/acme-corp/data-pipeline/app/tasks"
	"github.com/acme-corp/data-pipeline/app/transform"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting transit data pipeline", "version", appCfg.Version, "modules", appCfg.Modules)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", migrationVersion, "dirty", dirty)

	feeds, err := config.NewLoader(appCfg.FeedsFile).Load()
	if err != nil {
		slog.Error("Failed to load feed definitions", "file", appCfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed definitions loaded", "dynamic", len(feeds.Dynamic), "static", len(feeds.Static))

	versionRepo := database.NewVersionRepository(db)
	ledgerRepo := database.NewLedgerRepository(db)
	staticRepo := database.NewStaticRepository(db)
	dynamicRepo := database.NewDynamicRepository(db)

	metadataStore, err := metadata.NewStore(filepath.Join(appCfg.RawDir, "metadata"))
	if err != nil {
		slog.Error("Failed to create metadata store", "error", err)
		os.Exit(1)
	}

	if appCfg.ModuleEnabled("fetch_dynamic") || appCfg.ModuleEnabled("fetch_static") {
		rotator := capture.NewRotator(filepath.Join(appCfg.RawDir, "dynamic"), appCfg.MaxFilesPerFolder)
		httpClient := &http.Client{Timeout: 60 * time.Second}

		scheduler := tasks.NewScheduler(feeds, rotator, metadataStore, httpClient)
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("Fetch scheduler started", "workers", appCfg.WorkerCount)
	}

	if appCfg.ModuleEnabled("transform") {
		transformer := transform.NewTransformer()
		transformer.Start()
		defer transformer.Stop()
		slog.Info("Transform stage started", "interval", appCfg.TransformInterval)
	}

	if appCfg.ModuleEnabled("load") {
		dataLoader := loader.NewLoader(versionRepo, ledgerRepo, staticRepo, dynamicRepo)
		dataLoader.Start()
		defer dataLoader.Stop()
		slog.Info("Loader started", "interval", appCfg.CheckInterval)
	}

	handler := api.NewHandler(db, versionRepo, ledgerRepo, dynamicRepo, feeds)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Pipeline stages are stopped via defers
	slog.Info("Shutdown complete")
}
