package scheduler

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/scores"
	"home-services-leads/internal/scoring"
)

// QueueWorker drains the score refresh queue. One batch per poll tick,
// so a full-universe rescore spreads out instead of spiking the DB.
type QueueWorker struct {
	db           *gorm.DB
	scores       *scores.Service
	stopChan     chan struct{}
	isRunning    bool
	pollInterval time.Duration
	batchSize    int
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(db *gorm.DB, scoreService *scores.Service, pollInterval time.Duration, batchSize int) *QueueWorker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &QueueWorker{
		db:           db,
		scores:       scoreService,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Start starts the queue worker
func (w *QueueWorker) Start() {
	if w.isRunning {
		logging.L().Warn("QueueWorker: already running")
		return
	}
	w.isRunning = true
	logging.L().Infof("QueueWorker: started (poll_interval=%v, batch_size=%d)", w.pollInterval, w.batchSize)
	go w.run()
}

// Stop stops the queue worker
func (w *QueueWorker) Stop() {
	if !w.isRunning {
		return
	}
	logging.L().Info("QueueWorker: stopping...")
	w.isRunning = false
	close(w.stopChan)
}

// run is the main worker loop
func (w *QueueWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			logging.L().Info("QueueWorker: stopped")
			return
		case <-ticker.C:
			w.ProcessNextBatch(context.Background())
		}
	}
}

// ProcessNextBatch claims and processes up to batchSize queue items.
// Returns the number processed.
func (w *QueueWorker) ProcessNextBatch(ctx context.Context) int {
	now := time.Now().UTC()

	var items []models.ScoreRefreshQueue
	err := w.db.
		Where("status = ?", models.RescoreStatusPending).
		Or("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.RescoreStatusFailed, now).
		Order("priority DESC, created_at ASC").
		Limit(w.batchSize).
		Find(&items).Error
	if err != nil {
		logging.L().Errorf("QueueWorker: failed to fetch queue items: %v", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	processed := 0
	for i := range items {
		select {
		case <-ctx.Done():
			return processed
		default:
		}
		w.processItem(ctx, &items[i], now)
		processed++
	}
	logging.L().Infof("QueueWorker: processed %d queue items", processed)
	return processed
}

// processItem runs one rescore and settles the queue row
func (w *QueueWorker) processItem(ctx context.Context, item *models.ScoreRefreshQueue, asOf time.Time) {
	item.Status = models.RescoreStatusProcessing
	item.Attempts++
	if err := w.db.Save(item).Error; err != nil {
		logging.L().Errorf("QueueWorker: failed to claim item %d: %v", item.ID, err)
		return
	}

	_, err := w.scores.ScoreProperty(ctx, item.PropertyID, item.Trade, asOf)
	if err != nil {
		w.handleError(item, err)
		return
	}

	completedAt := time.Now().UTC()
	item.Status = models.RescoreStatusDone
	item.LastError = ""
	item.CompletedAt = &completedAt
	item.NextRetryAt = nil
	if err := w.db.Save(item).Error; err != nil {
		logging.L().Errorf("QueueWorker: failed to mark item %d done: %v", item.ID, err)
	}
}

// handleError settles a failed item: permanent failures never retry,
// the rest back off exponentially until the attempt cap.
func (w *QueueWorker) handleError(item *models.ScoreRefreshQueue, err error) {
	logging.L().Warnf("QueueWorker: rescore failed for %s/%s: %v", item.PropertyID, item.Trade, err)

	if errors.Is(err, scoring.ErrUnknownTrade) || errors.Is(err, scores.ErrPropertyNotFound) {
		// Retrying cannot fix a bad trade or a vanished property
		item.Status = models.RescoreStatusPermanentFail
		item.LastError = err.Error()
		completedAt := time.Now().UTC()
		item.CompletedAt = &completedAt
		item.NextRetryAt = nil
		if saveErr := w.db.Save(item).Error; saveErr != nil {
			logging.L().Errorf("QueueWorker: failed to save permanent_fail: %v", saveErr)
		}
		return
	}

	if item.Attempts >= models.MaxRescoreAttempts {
		item.Status = models.RescoreStatusFailed
		item.LastError = "max retries exceeded: " + err.Error()
		completedAt := time.Now().UTC()
		item.CompletedAt = &completedAt
		item.NextRetryAt = nil
	} else {
		delay := models.NextRescoreRetryDelay(item.Attempts - 1)
		nextRetry := time.Now().UTC().Add(delay)
		item.Status = models.RescoreStatusFailed
		item.LastError = err.Error()
		item.NextRetryAt = &nextRetry
		logging.L().Infof("QueueWorker: retrying %s/%s in %v (attempt %d/%d)",
			item.PropertyID, item.Trade, delay, item.Attempts, models.MaxRescoreAttempts)
	}

	if saveErr := w.db.Save(item).Error; saveErr != nil {
		logging.L().Errorf("QueueWorker: failed to save retry status: %v", saveErr)
	}
}

// GetQueueStats returns current queue statistics
func (w *QueueWorker) GetQueueStats() map[string]interface{} {
	counts := make(map[string]int64)
	for _, status := range []string{
		models.RescoreStatusPending,
		models.RescoreStatusProcessing,
		models.RescoreStatusDone,
		models.RescoreStatusFailed,
		models.RescoreStatusPermanentFail,
	} {
		var n int64
		w.db.Model(&models.ScoreRefreshQueue{}).Where("status = ?", status).Count(&n)
		counts[status] = n
	}

	return map[string]interface{}{
		"pending":        counts[models.RescoreStatusPending],
		"processing":     counts[models.RescoreStatusProcessing],
		"done":           counts[models.RescoreStatusDone],
		"failed":         counts[models.RescoreStatusFailed],
		"permanent_fail": counts[models.RescoreStatusPermanentFail],
		"is_running":     w.isRunning,
	}
}
