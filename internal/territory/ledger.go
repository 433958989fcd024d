package territory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
)

// ErrConflict is returned when a (ZIP, trade) key already has an active
// holder. Callers branch on it with errors.Is to produce a 409.
var ErrConflict = errors.New("territory already held")

// ErrContractorIneligible is returned when the contractor is inactive or
// does not serve the requested trade
var ErrContractorIneligible = errors.New("contractor not eligible for territory")

// Ledger owns exclusive (ZIP, trade) territory bindings. At most one
// active holder per key, enforced at the storage level: a partial unique
// index on engines that support it, a locked read-then-insert transaction
// otherwise.
type Ledger struct {
	db              *gorm.DB
	hasPartialIndex bool
}

func NewLedger(db *gorm.DB, hasPartialIndex bool) *Ledger {
	return &Ledger{db: db, hasPartialIndex: hasPartialIndex}
}

// Assign grants a contractor the exclusive territory for (zipCode, trade).
// Concurrent assigns for the same key produce exactly one winner; the
// rest get ErrConflict.
func (l *Ledger) Assign(contractorID, zipCode string, trade models.Trade, expiresAt *time.Time) (*models.Territory, error) {
	var contractor models.Contractor
	if err := l.db.Where("id = ?", contractorID).First(&contractor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contractor %s not found", ErrContractorIneligible, contractorID)
		}
		return nil, err
	}
	if !contractor.IsActive() || !contractor.ServesTrade(trade) {
		return nil, fmt.Errorf("%w: contractor %s, trade %s", ErrContractorIneligible, contractorID, trade)
	}

	t := &models.Territory{
		ID:           uuid.NewString(),
		ContractorID: contractorID,
		ZipCode:      zipCode,
		Trade:        trade,
		Status:       models.TerritoryStatusActive,
		AssignedAt:   time.Now().UTC(),
		ExpiresAt:    expiresAt,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		holder := tx.Model(&models.Territory{}).
			Where("zip_code = ? AND trade = ? AND status = ?", zipCode, trade, models.TerritoryStatusActive)
		if !l.hasPartialIndex {
			// No partial unique index: serialize concurrent assigns on the
			// key rows themselves
			holder = holder.Clauses(forUpdate())
		}
		var count int64
		if err := holder.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s/%s", ErrConflict, zipCode, trade)
		}
		if err := tx.Create(t).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s/%s", ErrConflict, zipCode, trade)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.L().Infof("Territory: assigned %s/%s to contractor %s", zipCode, trade, contractorID)
	return t, nil
}

// Revoke releases a territory, making its key assignable again
func (l *Ledger) Revoke(territoryID string) (*models.Territory, error) {
	var t models.Territory
	if err := l.db.Where("id = ?", territoryID).First(&t).Error; err != nil {
		return nil, err
	}
	if t.Status != models.TerritoryStatusActive {
		return &t, nil
	}

	now := time.Now().UTC()
	t.Status = models.TerritoryStatusRevoked
	t.RevokedAt = &now
	if err := l.db.Save(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke territory %s: %w", territoryID, err)
	}

	logging.L().Infof("Territory: revoked %s/%s from contractor %s", t.ZipCode, t.Trade, t.ContractorID)
	return &t, nil
}

// GetActive returns the current holder for a key, or nil when the key is
// open
func (l *Ledger) GetActive(zipCode string, trade models.Trade) (*models.Territory, error) {
	var t models.Territory
	err := l.db.
		Where("zip_code = ? AND trade = ? AND status = ?", zipCode, trade, models.TerritoryStatusActive).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns territories matching the optional filters
func (l *Ledger) List(zipCode string, trade models.Trade, status models.TerritoryStatus) ([]models.Territory, error) {
	q := l.db.Model(&models.Territory{}).Order("assigned_at DESC")
	if zipCode != "" {
		q = q.Where("zip_code = ?", zipCode)
	}
	if trade != "" {
		q = q.Where("trade = ?", trade)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Territory
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireDue marks active territories past their expires_at as expired.
// Returns the number transitioned.
func (l *Ledger) ExpireDue(now time.Time) (int64, error) {
	res := l.db.Model(&models.Territory{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.TerritoryStatusActive, now).
		Updates(map[string]interface{}{"status": models.TerritoryStatusExpired})
	return res.RowsAffected, res.Error
}

// CoverageByTrade counts active territories per trade, for admin stats
func (l *Ledger) CoverageByTrade() (map[models.Trade]int64, error) {
	type row struct {
		Trade models.Trade
		N     int64
	}
	var rows []row
	err := l.db.Model(&models.Territory{}).
		Select("trade, COUNT(*) AS n").
		Where("status = ?", models.TerritoryStatusActive).
		Group("trade").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.Trade]int64, len(rows))
	for _, r := range rows {
		out[r.Trade] = r.N
	}
	return out, nil
}
