package territory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"home-services-leads/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Contractor{}, &models.Territory{}))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_territory_active
		 ON territories (zip_code, trade) WHERE status = 'active'`,
	).Error)
	return db
}

func seedContractor(t *testing.T, db *gorm.DB, id, trades string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Contractor{
		ID:          id,
		CompanyName: "Test Roofing Co",
		Trades:      trades,
		Status:      "active",
	}).Error)
}

func TestAssignAndConflict(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)
	seedContractor(t, db, "C1", "roofing,hvac")
	seedContractor(t, db, "C2", "roofing")

	got, err := ledger.Assign("C1", "30301", models.TradeRoofing, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TerritoryStatusActive, got.Status)

	// Same key is taken
	_, err = ledger.Assign("C2", "30301", models.TradeRoofing, nil)
	assert.ErrorIs(t, err, ErrConflict)

	// Different trade on the same ZIP is a different key
	_, err = ledger.Assign("C1", "30301", models.TradeHVAC, nil)
	assert.NoError(t, err)

	holder, err := ledger.GetActive("30301", models.TradeRoofing)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "C1", holder.ContractorID)
}

func TestAssignIneligibleContractor(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)
	seedContractor(t, db, "C1", "hvac")

	// Wrong trade
	_, err := ledger.Assign("C1", "30301", models.TradeRoofing, nil)
	assert.ErrorIs(t, err, ErrContractorIneligible)

	// Unknown contractor
	_, err = ledger.Assign("NOPE", "30301", models.TradeHVAC, nil)
	assert.ErrorIs(t, err, ErrContractorIneligible)

	// Paused contractor
	require.NoError(t, db.Model(&models.Contractor{}).Where("id = ?", "C1").
		Update("status", "paused").Error)
	_, err = ledger.Assign("C1", "30301", models.TradeHVAC, nil)
	assert.ErrorIs(t, err, ErrContractorIneligible)
}

func TestRevokeReopensKey(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)
	seedContractor(t, db, "C1", "roofing")
	seedContractor(t, db, "C2", "roofing")

	first, err := ledger.Assign("C1", "30301", models.TradeRoofing, nil)
	require.NoError(t, err)

	revoked, err := ledger.Revoke(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TerritoryStatusRevoked, revoked.Status)
	assert.NotNil(t, revoked.RevokedAt)

	// Key is open again
	second, err := ledger.Assign("C2", "30301", models.TradeRoofing, nil)
	require.NoError(t, err)
	assert.Equal(t, "C2", second.ContractorID)

	// Revoking again is a no-op
	again, err := ledger.Revoke(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TerritoryStatusRevoked, again.Status)
}

func TestGetActiveOpenKey(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)

	holder, err := ledger.GetActive("99999", models.TradeRoofing)
	require.NoError(t, err)
	assert.Nil(t, holder, "open key returns nil, not an error")
}

func TestExpireDue(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)
	seedContractor(t, db, "C1", "roofing,siding")

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	expired, err := ledger.Assign("C1", "30301", models.TradeRoofing, &past)
	require.NoError(t, err)
	kept, err := ledger.Assign("C1", "30302", models.TradeSiding, &future)
	require.NoError(t, err)

	n, err := ledger.ExpireDue(time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var reloaded models.Territory
	require.NoError(t, db.First(&reloaded, "id = ?", expired.ID).Error)
	assert.Equal(t, models.TerritoryStatusExpired, reloaded.Status)

	stillActive, err := ledger.GetActive("30302", models.TradeSiding)
	require.NoError(t, err)
	require.NotNil(t, stillActive)
	assert.Equal(t, kept.ID, stillActive.ID)
}

func TestCoverageByTrade(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, true)
	seedContractor(t, db, "C1", "roofing,hvac")

	_, err := ledger.Assign("C1", "30301", models.TradeRoofing, nil)
	require.NoError(t, err)
	_, err = ledger.Assign("C1", "30302", models.TradeRoofing, nil)
	require.NoError(t, err)
	_, err = ledger.Assign("C1", "30301", models.TradeHVAC, nil)
	require.NoError(t, err)

	coverage, err := ledger.CoverageByTrade()
	require.NoError(t, err)
	assert.EqualValues(t, 2, coverage[models.TradeRoofing])
	assert.EqualValues(t, 1, coverage[models.TradeHVAC])
}
