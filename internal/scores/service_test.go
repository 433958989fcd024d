package scores

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"home-services-leads/internal/cache"
	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
	"home-services-leads/internal/signals"
)

func newTestService(t *testing.T, scoreCache *cache.ScoreCache) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Property{}, &models.Signal{}, &models.ZipStats{}, &models.LeadScore{},
	))

	cfg := config.DefaultConfig()
	store := signals.NewStore(db, cfg.Scoring)
	return NewService(db, cfg, store, scoreCache), db
}

func seedUniverse(t *testing.T, db *gorm.DB, propIDs ...string) {
	t.Helper()
	for _, id := range propIDs {
		value := 350000.0
		yearBuilt := 2007
		require.NoError(t, db.Create(&models.Property{
			PropID:        id,
			Address:       "10 Oak Ln",
			ZipCode:       "30301",
			MarketValue:   &value,
			YearBuilt:     &yearBuilt,
			OwnerOccupied: true,
		}).Error)
		pid := id
		require.NoError(t, db.Create(&models.Signal{
			Variant:        models.SignalViolation,
			NaturalID:      "V-" + id,
			PropertyID:     &pid,
			LinkConfidence: 0.9,
			OccurredAt:     time.Now().UTC().Add(-72 * time.Hour),
			Category:       "roof",
			ZipCode:        "30301",
			Source:         "code_enforcement",
		}).Error)
	}
}

func TestScorePropertyPersistsLatest(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedUniverse(t, db, "P1")
	ctx := context.Background()

	res, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.Greater(t, res.IntentScore, 0.0)

	var row models.LeadScore
	require.NoError(t, db.Where("property_id = ? AND trade = ?", "P1", models.TradeRoofing).First(&row).Error)
	assert.Equal(t, ScoreVersion, row.ScoreVersion)
	assert.InDelta(t, res.IntentScore, row.IntentScore, 1e-4)
	assert.Equal(t, res.SignalSetVersion, row.SignalSetVersion)

	// Rescoring overwrites in place instead of accumulating rows
	_, err = svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&models.LeadScore{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestScorePropertyMissing(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.ScoreProperty(context.Background(), "GONE", models.TradeRoofing, time.Now().UTC())
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestScorePropertyServesRepeatFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	scoreCache := cache.NewWithClient(client, "score", time.Hour)

	svc, db := newTestService(t, scoreCache)
	seedUniverse(t, db, "P1")
	ctx := context.Background()

	first, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)

	// Drop the persisted row; an unchanged signal set must hit the cache
	// and never reach the engine or the writer
	require.NoError(t, db.Where("1 = 1").Delete(&models.LeadScore{}).Error)

	second, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, first.IntentScore, second.IntentScore)
	assert.Equal(t, first.SignalSetVersion, second.SignalSetVersion)

	var n int64
	require.NoError(t, db.Model(&models.LeadScore{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)

	// A new signal changes the version and forces recomputation
	pid := "P1"
	require.NoError(t, db.Create(&models.Signal{
		Variant:        models.SignalStormEvent,
		NaturalID:      "S-NEW",
		PropertyID:     &pid,
		LinkConfidence: 0.9,
		OccurredAt:     time.Now().UTC().Add(-time.Hour),
		Magnitude:      1.2,
		MagnitudeUnit:  "inches",
		ZipCode:        "30301",
		Source:         "noaa",
	}).Error)

	third, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.NotEqual(t, first.SignalSetVersion, third.SignalSetVersion)
	assert.Greater(t, third.IntentScore, first.IntentScore)

	require.NoError(t, db.Model(&models.LeadScore{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCacheHitsDespiteAnomalousSignal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	scoreCache := cache.NewWithClient(client, "score", time.Hour)

	svc, db := newTestService(t, scoreCache)
	seedUniverse(t, db, "P1")

	// A future-dated signal is dropped before scoring, so the stored
	// version fingerprints the kept set; the lookup must do the same or
	// the key never matches
	pid := "P1"
	require.NoError(t, db.Create(&models.Signal{
		Variant:        models.SignalViolation,
		NaturalID:      "V-FUTURE",
		PropertyID:     &pid,
		LinkConfidence: 0.9,
		OccurredAt:     time.Now().UTC().Add(72 * time.Hour),
		ZipCode:        "30301",
		Source:         "code_enforcement",
	}).Error)

	ctx := context.Background()
	first, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, first.DegradedInput)

	require.NoError(t, db.Where("1 = 1").Delete(&models.LeadScore{}).Error)

	second, err := svc.ScoreProperty(ctx, "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, first.IntentScore, second.IntentScore)

	var n int64
	require.NoError(t, db.Model(&models.LeadScore{}).Count(&n).Error)
	assert.Equal(t, int64(0), n, "repeat call with an unchanged kept set is served from cache")
}

func TestScoreBatchPersistsAll(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedUniverse(t, db, "P1", "P2", "P3")

	results, itemErrs, err := svc.ScoreBatch(context.Background(),
		[]string{"P1", "P2", "P3", "MISSING"}, models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, itemErrs)
	assert.Len(t, results, 3)

	var n int64
	require.NoError(t, db.Model(&models.LeadScore{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestLatestFiltersByThreshold(t *testing.T) {
	svc, db := newTestService(t, nil)
	seedUniverse(t, db, "P1")

	_, err := svc.ScoreProperty(context.Background(), "P1", models.TradeRoofing, time.Now().UTC())
	require.NoError(t, err)

	all, err := svc.Latest(models.TradeRoofing, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)

	none, err := svc.Latest(models.TradeRoofing, 0.999, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
