package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acme-corp/data-pipeline/app/cfg"
	"github.com/acme-corp/data-pipeline/app/config"
	"github.com/acme-corp/data-pipeline/app/database"
)

type Handler struct {
	db          *database.DB
	versionRepo database.VersionRepositoryInterface
	ledgerRepo  database.LedgerRepositoryInterface
	dynamicRepo database.DynamicRepositoryInterface
	feeds       *config.Feeds
	version     string
}

func NewHandler(db *database.DB, versionRepo database.VersionRepositoryInterface,
	ledgerRepo database.LedgerRepositoryInterface, dynamicRepo database.DynamicRepositoryInterface,
	feeds *config.Feeds) *Handler {
	return &Handler{
		db:          db,
		versionRepo: versionRepo,
		ledgerRepo:  ledgerRepo,
		dynamicRepo: dynamicRepo,
		feeds:       feeds,
		version:     cfg.Get().Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if err := h.db.Ping(); err != nil {
		health["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["database"] = "ok"

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"dynamic_feeds": len(h.feeds.Dynamic),
		"static_feeds":  len(h.feeds.Static),
	}

	if versionID, ok, err := h.versionRepo.CurrentVersion(); err == nil && ok {
		stats["static_data_version"] = versionID
	}
	if count, err := h.ledgerRepo.FolderCount(); err == nil {
		stats["processed_folders"] = count
	}
	if count, err := h.ledgerRepo.FileCount(); err == nil {
		stats["processed_files"] = count
	}
	if count, err := h.dynamicRepo.TripUpdateCount(); err == nil {
		stats["trip_updates"] = count
	}
	if count, err := h.dynamicRepo.VehiclePositionCount(); err == nil {
		stats["vehicle_positions"] = count
	}

	c.JSON(http.StatusOK, stats)
}
