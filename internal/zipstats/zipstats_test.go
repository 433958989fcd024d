package zipstats

import (
	"fmt"
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

func newTestRefresher(t *testing.T) (*Refresher, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Property{}, &models.Signal{}, &models.ZipStats{},
	))

	store := signals.NewStore(db, config.DefaultConfig().Scoring)
	return NewRefresher(db, store), db
}

func seedProperty(t *testing.T, db *gorm.DB, propID, zip string, value float64, yearBuilt int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Property{
		PropID:      propID,
		ZipCode:     zip,
		MarketValue: &value,
		YearBuilt:   &yearBuilt,
	}).Error)
}

func seedZipSignal(t *testing.T, db *gorm.DB, propID, zip string, n int, occurredAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.Signal{
			Variant:        models.SignalViolation,
			NaturalID:      fmt.Sprintf("V-%s-%d", propID, i),
			PropertyID:     &propID,
			LinkConfidence: 0.9,
			OccurredAt:     occurredAt,
			ZipCode:        zip,
			Source:         "code_enforcement",
		}).Error)
	}
}

func TestRefreshAllComputesAggregates(t *testing.T) {
	refresher, db := newTestRefresher(t)
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	seedProperty(t, db, "P1", "30301", 200000, 2006)
	seedProperty(t, db, "P2", "30301", 400000, 2010)
	seedProperty(t, db, "P3", "30301", 900000, 1990)

	n, err := refresher.RefreshAll(asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	zs, err := Get(db, "30301")
	require.NoError(t, err)
	require.NotNil(t, zs)

	assert.Equal(t, int64(3), zs.TotalProperties)
	assert.Equal(t, 200000.0, zs.MinMarketValue)
	assert.Equal(t, 900000.0, zs.MaxMarketValue)
	assert.Equal(t, 400000.0, zs.MedianMarketValue)
	assert.InDelta(t, 500000.0, zs.AvgMarketValue, 0.001)
	// 1990/2006/2010 builds, median built 2006 -> ~20.45 years old
	assert.InDelta(t, 20.45, zs.MedianAgeYears, 0.05)
	assert.WithinDuration(t, asOf, zs.RefreshedAt, time.Second)
}

func TestRefreshAllTiersByDensity(t *testing.T) {
	refresher, db := newTestRefresher(t)
	asOf := time.Now().UTC()

	// Hot zip: 2 properties, 3 signals
	seedProperty(t, db, "P1", "30301", 300000, 2005)
	seedProperty(t, db, "P2", "30301", 350000, 2008)
	seedZipSignal(t, db, "P1", "30301", 3, asOf.Add(-24*time.Hour))

	// Moderate zip: 2 properties, 1 signal
	seedProperty(t, db, "P3", "30307", 300000, 2005)
	seedProperty(t, db, "P4", "30307", 350000, 2008)
	seedZipSignal(t, db, "P3", "30307", 1, asOf.Add(-24*time.Hour))

	// Quiet zip: no signals
	seedProperty(t, db, "P5", "30316", 300000, 2005)

	n, err := refresher.RefreshAll(asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for zip, wantTier := range map[string]int{"30301": 1, "30307": 2, "30316": 3} {
		zs, err := Get(db, zip)
		require.NoError(t, err)
		require.NotNil(t, zs, zip)
		assert.Equal(t, wantTier, zs.Tier, zip)
	}
}

func TestRefreshAllUpsertsExistingRows(t *testing.T) {
	refresher, db := newTestRefresher(t)
	asOf := time.Now().UTC()

	seedProperty(t, db, "P1", "30301", 300000, 2005)
	_, err := refresher.RefreshAll(asOf)
	require.NoError(t, err)

	seedProperty(t, db, "P2", "30301", 500000, 2012)
	_, err = refresher.RefreshAll(asOf.Add(time.Hour))
	require.NoError(t, err)

	zs, err := Get(db, "30301")
	require.NoError(t, err)
	require.NotNil(t, zs)
	assert.Equal(t, int64(2), zs.TotalProperties)
	assert.Equal(t, 500000.0, zs.MaxMarketValue)
}

func TestGetMissingZipReturnsNil(t *testing.T) {
	_, db := newTestRefresher(t)

	zs, err := Get(db, "99999")
	require.NoError(t, err)
	assert.Nil(t, zs)
}

func TestGetMany(t *testing.T) {
	refresher, db := newTestRefresher(t)
	seedProperty(t, db, "P1", "30301", 300000, 2005)
	seedProperty(t, db, "P2", "30307", 400000, 2010)
	_, err := refresher.RefreshAll(time.Now().UTC())
	require.NoError(t, err)

	out, err := GetMany(db, []string{"30301", "30307", "99999"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NotNil(t, out["30301"])
	assert.Nil(t, out["99999"])
}
