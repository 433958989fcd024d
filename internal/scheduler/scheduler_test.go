package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
	"home-services-leads/internal/signals"
)

func newTestScheduler(t *testing.T) (*Scheduler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Property{}, &models.Signal{}, &models.LeadScore{},
		&models.ZipStats{}, &models.ScoreRefreshQueue{},
	))

	cfg := config.DefaultConfig()
	store := signals.NewStore(db, cfg.Scoring)
	return NewScheduler(db, store, cfg), db
}

func seedLinkedSignal(t *testing.T, db *gorm.DB, propID, naturalID string, occurredAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Signal{
		Variant:        models.SignalViolation,
		NaturalID:      naturalID,
		PropertyID:     &propID,
		LinkConfidence: 0.9,
		OccurredAt:     occurredAt,
		Source:         "code_enforcement",
	}).Error)
}

func TestEnqueueSkipsDuplicates(t *testing.T) {
	sched, db := newTestScheduler(t)

	n, err := sched.Enqueue("P1", models.TradeRoofing, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sched.Enqueue("P1", models.TradeRoofing, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A settled item no longer blocks re-enqueueing
	require.NoError(t, db.Model(&models.ScoreRefreshQueue{}).
		Where("property_id = ?", "P1").
		Update("status", models.RescoreStatusDone).Error)

	n, err = sched.Enqueue("P1", models.TradeRoofing, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnqueueDailyRescore(t *testing.T) {
	sched, db := newTestScheduler(t)
	now := time.Now().UTC()

	// P1 has fresh signal activity, P2's score has gone stale
	seedLinkedSignal(t, db, "P1", "V-1", now.Add(-2*time.Hour))
	require.NoError(t, db.Create(&models.LeadScore{
		PropertyID:  "P2",
		Trade:       models.TradeHVAC,
		IntentScore: 0.7,
		ComputedAt:  now.Add(-10 * 24 * time.Hour),
	}).Error)

	enqueued, err := sched.EnqueueDailyRescore()
	require.NoError(t, err)
	assert.Equal(t, 2*len(models.Trades), enqueued)

	var recent []models.ScoreRefreshQueue
	require.NoError(t, db.Where("property_id = ?", "P1").Find(&recent).Error)
	require.Len(t, recent, len(models.Trades))
	for _, item := range recent {
		assert.Equal(t, 10, item.Priority)
		assert.Equal(t, models.RescoreStatusPending, item.Status)
	}

	var stale []models.ScoreRefreshQueue
	require.NoError(t, db.Where("property_id = ?", "P2").Find(&stale).Error)
	require.Len(t, stale, len(models.Trades))
	for _, item := range stale {
		assert.Equal(t, 0, item.Priority)
	}
}

func TestEnqueueDailyRescoreIgnoresFreshScores(t *testing.T) {
	sched, db := newTestScheduler(t)
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.LeadScore{
		PropertyID:  "P3",
		Trade:       models.TradeRoofing,
		IntentScore: 0.8,
		ComputedAt:  now.Add(-time.Hour),
	}).Error)

	enqueued, err := sched.EnqueueDailyRescore()
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)
}

func TestParseDailyRunTime(t *testing.T) {
	sched, _ := newTestScheduler(t)

	assert.Equal(t, "0 2 * * *", sched.parseDailyRunTime("02:00"))
	assert.Equal(t, "30 23 * * *", sched.parseDailyRunTime("23:30"))
	assert.Equal(t, "0 2 * * *", sched.parseDailyRunTime("not-a-time"))
}
