package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"home-services-leads/internal/cleanup"
	"home-services-leads/internal/models"
	"home-services-leads/internal/scheduler"
	"home-services-leads/internal/territory"
	"home-services-leads/internal/zipstats"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db             *gorm.DB
	scheduler      *scheduler.Scheduler
	worker         *scheduler.QueueWorker
	cleanupService *cleanup.Service
	cleanupConfig  cleanup.Config
	refresher      *zipstats.Refresher
	ledger         *territory.Ledger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, worker *scheduler.QueueWorker,
	cleanupService *cleanup.Service, cleanupConfig cleanup.Config,
	refresher *zipstats.Refresher, ledger *territory.Ledger) *AdminHandler {
	return &AdminHandler{
		db:             db,
		scheduler:      sched,
		worker:         worker,
		cleanupService: cleanupService,
		cleanupConfig:  cleanupConfig,
		refresher:      refresher,
		ledger:         ledger,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	var propertyCount, signalCount, scoreCount int64
	h.db.Model(&models.Property{}).Count(&propertyCount)
	h.db.Model(&models.Signal{}).Count(&signalCount)
	h.db.Model(&models.LeadScore{}).Count(&scoreCount)
	stats["universe"] = map[string]interface{}{
		"properties": propertyCount,
		"signals":    signalCount,
		"scores":     scoreCount,
	}

	// Lead counts by status
	leadCounts := make(map[string]int64)
	for _, status := range []models.LeadStatus{
		models.LeadStatusGenerated, models.LeadStatusAssigned,
		models.LeadStatusDelivered, models.LeadStatusConverted, models.LeadStatusExpired,
	} {
		var n int64
		h.db.Model(&models.Lead{}).Where("status = ?", status).Count(&n)
		leadCounts[string(status)] = n
	}
	stats["leads"] = leadCounts

	// Score distribution bands per trade
	bands := make(map[string]map[string]int64)
	for _, trade := range models.Trades {
		var hot, warm, cold int64
		h.db.Model(&models.LeadScore{}).Where("trade = ? AND intent_score >= 0.8", trade).Count(&hot)
		h.db.Model(&models.LeadScore{}).Where("trade = ? AND intent_score >= 0.6 AND intent_score < 0.8", trade).Count(&warm)
		h.db.Model(&models.LeadScore{}).Where("trade = ? AND intent_score < 0.6", trade).Count(&cold)
		bands[string(trade)] = map[string]int64{"hot": hot, "warm": warm, "cold": cold}
	}
	stats["score_bands"] = bands

	// Territory coverage per trade
	coverage, err := h.ledger.CoverageByTrade()
	if err == nil {
		stats["territory_coverage"] = coverage
	}

	// Top signal ZIPs
	var topZips []models.ZipStats
	h.db.Model(&models.ZipStats{}).Order("signal_count DESC").Limit(10).Find(&topZips)
	stats["top_signal_zips"] = topZips

	// Recent signal activity
	last24h := time.Now().UTC().Add(-24 * time.Hour)
	var recentSignals int64
	h.db.Model(&models.Signal{}).Where("created_at >= ?", last24h).Count(&recentSignals)
	stats["recent_activity"] = map[string]interface{}{
		"signals_last_24h": recentSignals,
	}

	stats["rescore_queue"] = h.worker.GetQueueStats()

	c.JSON(http.StatusOK, stats)
}

// TriggerRescore manually runs the daily rescore enqueue
func (h *AdminHandler) TriggerRescore(c *gin.Context) {
	enqueued, err := h.scheduler.RunNow()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enqueued": enqueued})
}

// RefreshZipStats recomputes the per-ZIP aggregates
func (h *AdminHandler) RefreshZipStats(c *gin.Context) {
	n, err := h.refresher.RefreshAll(time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zips_refreshed": n})
}

// RunCleanup executes a cleanup pass. ?dry_run=true previews it.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	cfg := h.cleanupConfig
	cfg.DryRun = c.Query("dry_run") == "true"

	result, err := h.cleanupService.Run(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
