package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"home-services-leads/internal/config"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/signals"
)

// Scheduler runs the nightly rescore enqueue. It never scores anything
// itself; it fills the refresh queue and lets the worker drain it at a
// bounded pace.
type Scheduler struct {
	cron      *cron.Cron
	db        *gorm.DB
	signals   *signals.Store
	config    *config.Config
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(db *gorm.DB, sigStore *signals.Store, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		db:      db,
		signals: sigStore,
		config:  cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.DailyRunEnabled {
		logging.L().Info("Scheduler: daily run is disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Scheduler.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		logging.L().Info("Scheduler: starting daily rescore enqueue...")
		enqueued, err := s.EnqueueDailyRescore()
		if err != nil {
			logging.L().Errorf("Scheduler: daily enqueue failed: %v", err)
			return
		}
		logging.L().Infof("Scheduler: daily enqueue completed, %d items queued", enqueued)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	logging.L().Infof("Scheduler: started with daily run at %s (cron: %s)", s.config.Scheduler.DailyRunTime, cronSpec)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		logging.L().Info("Scheduler: stopped")
	}
}

// EnqueueDailyRescore queues rescore work for every property with signal
// activity in the last day, across all trades, plus a decay refresh for
// properties whose scores are older than a week. Duplicate pending items
// are skipped.
func (s *Scheduler) EnqueueDailyRescore() (int, error) {
	now := time.Now().UTC()

	recentIDs, err := s.signals.PropertiesWithRecentSignals(now.Add(-24 * time.Hour))
	if err != nil {
		return 0, err
	}

	var staleIDs []string
	if err := s.db.Model(&models.LeadScore{}).
		Where("computed_at < ?", now.Add(-7*24*time.Hour)).
		Distinct().
		Pluck("property_id", &staleIDs).Error; err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	enqueued := 0
	enqueue := func(ids []string, priority int) error {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			for _, trade := range models.Trades {
				n, err := s.Enqueue(id, trade, priority)
				if err != nil {
					return err
				}
				enqueued += n
			}
		}
		return nil
	}

	// Signal activity outranks staleness refresh
	if err := enqueue(recentIDs, 10); err != nil {
		return enqueued, err
	}
	if err := enqueue(staleIDs, 0); err != nil {
		return enqueued, err
	}
	return enqueued, nil
}

// Enqueue adds one (property, trade) rescore item unless an equivalent
// pending item already exists. Returns 1 when a row was created.
func (s *Scheduler) Enqueue(propertyID string, trade models.Trade, priority int) (int, error) {
	var existing int64
	err := s.db.Model(&models.ScoreRefreshQueue{}).
		Where("property_id = ? AND trade = ? AND status IN ?",
			propertyID, trade, []string{models.RescoreStatusPending, models.RescoreStatusProcessing}).
		Count(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	item := models.ScoreRefreshQueue{
		PropertyID: propertyID,
		Trade:      trade,
		Status:     models.RescoreStatusPending,
		Priority:   priority,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return 0, err
	}
	return 1, nil
}

// RunNow immediately executes the daily enqueue (manual admin trigger)
func (s *Scheduler) RunNow() (int, error) {
	logging.L().Info("Scheduler: manual trigger - enqueueing rescore work...")
	return s.EnqueueDailyRescore()
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	logging.L().Warnf("Scheduler: failed to parse time '%s', using default 02:00", timeStr)
	return "0 2 * * *"
}
