package signals

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// Store loads linked signals for scoring. Reads are horizon-bounded so
// batch prefetch cost stays proportional to the active signal window.
type Store struct {
	db  *gorm.DB
	cfg config.ScoringConfig
}

func NewStore(db *gorm.DB, cfg config.ScoringConfig) *Store {
	return &Store{db: db, cfg: cfg}
}

// Ingest upserts signals by their (variant, natural_id) identity, so
// re-delivered source batches stay idempotent. Returns the count of new
// rows.
func (s *Store) Ingest(signals []models.Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "variant"}, {Name: "natural_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"property_id", "link_confidence", "magnitude", "magnitude_unit",
			"category", "description", "zip_code",
		}),
	}).Create(&signals)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to ingest signals: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ForProperty returns one property's linked signals inside the horizon,
// oldest first
func (s *Store) ForProperty(propertyID string, asOf time.Time) ([]models.Signal, error) {
	var out []models.Signal
	err := s.db.
		Where("property_id = ?", propertyID).
		Where("occurred_at >= ?", asOf.Add(-s.cfg.SignalHorizon())).
		Order("occurred_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load signals for %s: %w", propertyID, err)
	}
	return out, nil
}

// ForProperties prefetches linked signals for a batch in one query,
// grouped by property
func (s *Store) ForProperties(propertyIDs []string, asOf time.Time) (map[string][]models.Signal, error) {
	grouped := make(map[string][]models.Signal, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return grouped, nil
	}

	var rows []models.Signal
	err := s.db.
		Where("property_id IN ?", propertyIDs).
		Where("occurred_at >= ?", asOf.Add(-s.cfg.SignalHorizon())).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to prefetch signals: %w", err)
	}

	for _, sig := range rows {
		if sig.PropertyID == nil {
			continue
		}
		grouped[*sig.PropertyID] = append(grouped[*sig.PropertyID], sig)
	}
	return grouped, nil
}

// PropertiesWithRecentSignals lists distinct property IDs with linked
// signals since the cutoff, for incremental rescore enqueueing
func (s *Store) PropertiesWithRecentSignals(since time.Time) ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Signal{}).
		Where("property_id IS NOT NULL AND occurred_at >= ?", since).
		Distinct().
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recently signaled properties: %w", err)
	}
	return ids, nil
}

// CountByZip aggregates linked signal counts per ZIP inside the horizon,
// feeding ZIP tiering
func (s *Store) CountByZip(asOf time.Time) (map[string]int64, error) {
	type row struct {
		ZipCode string
		N       int64
	}
	var rows []row
	err := s.db.Model(&models.Signal{}).
		Select("zip_code, COUNT(*) AS n").
		Where("property_id IS NOT NULL AND zip_code <> ''").
		Where("occurred_at >= ?", asOf.Add(-s.cfg.SignalHorizon())).
		Group("zip_code").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count signals by zip: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ZipCode] = r.N
	}
	return out, nil
}
