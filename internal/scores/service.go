package scores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"home-services-leads/internal/cache"
	"home-services-leads/internal/config"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/scoring"
	"home-services-leads/internal/signals"
	"home-services-leads/internal/zipstats"
)

// ErrPropertyNotFound is returned when the scored property does not exist
var ErrPropertyNotFound = errors.New("property not found")

// ScoreVersion tags persisted rows with the scoring weight generation
const ScoreVersion = "v1"

// Service orchestrates one scoring pass: prefetch inputs, run the pure
// engine, persist the latest row, refresh the cache. The engine itself
// never touches I/O.
type Service struct {
	db      *gorm.DB
	engine  *scoring.Engine
	signals *signals.Store
	cache   *cache.ScoreCache
}

func NewService(db *gorm.DB, cfg *config.Config, sigStore *signals.Store, scoreCache *cache.ScoreCache) *Service {
	return &Service{
		db:      db,
		engine:  scoring.NewEngine(cfg.Scoring, cfg.Trades),
		signals: sigStore,
		cache:   scoreCache,
	}
}

// Engine exposes the underlying pure engine
func (s *Service) Engine() *scoring.Engine {
	return s.engine
}

// ScoreProperty scores one (property, trade), persists the result as the
// latest authoritative row, and serves repeat calls for an unchanged
// signal set from cache.
func (s *Service) ScoreProperty(ctx context.Context, propertyID string, trade models.Trade, asOf time.Time) (*scoring.ScoreResult, error) {
	in, err := s.loadInputs(propertyID, asOf)
	if err != nil {
		return nil, err
	}

	version := s.engine.SignalSetVersion(in.Signals, asOf)
	if cached := s.cache.Get(ctx, propertyID, trade, version); cached != nil {
		return cached, nil
	}

	res, err := s.engine.Score(*in, trade, asOf)
	if err != nil {
		return nil, err
	}

	if err := s.persist(res); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, res)
	return res, nil
}

// ScoreBatch scores many properties for one trade on the engine's worker
// pool, persisting every completed result. Cancellation keeps what
// finished.
func (s *Service) ScoreBatch(ctx context.Context, propertyIDs []string, trade models.Trade, asOf time.Time) ([]*scoring.ScoreResult, []scoring.BatchError, error) {
	items, err := s.loadBatchInputs(propertyIDs, trade, asOf)
	if err != nil {
		return nil, nil, err
	}

	results, itemErrs, batchErr := s.engine.ScoreBatch(ctx, items, asOf)

	for _, res := range results {
		if err := s.persist(res); err != nil {
			itemErrs = append(itemErrs, scoring.BatchError{
				PropertyID: res.PropertyID,
				Trade:      res.Trade,
				Err:        err,
			})
			continue
		}
		s.cache.Set(ctx, res)
	}
	return results, itemErrs, batchErr
}

// Latest returns persisted scores for a trade above a threshold
func (s *Service) Latest(trade models.Trade, minScore float64, limit int) ([]models.LeadScore, error) {
	q := s.db.Where("trade = ? AND intent_score >= ?", trade, minScore).
		Order("intent_score DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.LeadScore
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadInputs(propertyID string, asOf time.Time) (*scoring.Inputs, error) {
	var prop models.Property
	if err := s.db.Where("prop_id = ?", propertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, propertyID)
		}
		return nil, err
	}

	sigs, err := s.signals.ForProperty(propertyID, asOf)
	if err != nil {
		return nil, err
	}

	zs, err := zipstats.Get(s.db, prop.ZipCode)
	if err != nil {
		return nil, err
	}

	return &scoring.Inputs{
		Property: prop,
		Signals:  sigs,
		ZipStats: zs,
	}, nil
}

// loadBatchInputs prefetches everything for a batch in three queries:
// properties, signals grouped by property, ZIP stats by ZIP
func (s *Service) loadBatchInputs(propertyIDs []string, trade models.Trade, asOf time.Time) ([]scoring.BatchItem, error) {
	var props []models.Property
	if err := s.db.Where("prop_id IN ?", propertyIDs).Find(&props).Error; err != nil {
		return nil, err
	}

	sigsByProp, err := s.signals.ForProperties(propertyIDs, asOf)
	if err != nil {
		return nil, err
	}

	zipSet := make(map[string]bool)
	for _, p := range props {
		if p.ZipCode != "" {
			zipSet[p.ZipCode] = true
		}
	}
	zips := make([]string, 0, len(zipSet))
	for zip := range zipSet {
		zips = append(zips, zip)
	}
	statsByZip, err := zipstats.GetMany(s.db, zips)
	if err != nil {
		return nil, err
	}

	items := make([]scoring.BatchItem, 0, len(props))
	for _, prop := range props {
		items = append(items, scoring.BatchItem{
			Inputs: scoring.Inputs{
				Property: prop,
				Signals:  sigsByProp[prop.PropID],
				ZipStats: statsByZip[prop.ZipCode],
			},
			Trade: trade,
		})
	}

	if len(items) < len(propertyIDs) {
		logging.L().Warnf("Scores: %d of %d requested properties missing", len(propertyIDs)-len(items), len(propertyIDs))
	}
	return items, nil
}

// persist upserts the latest score row; the newest computation always
// supersedes
func (s *Service) persist(res *scoring.ScoreResult) error {
	row, err := res.ToModel(ScoreVersion)
	if err != nil {
		return fmt.Errorf("failed to serialize score for %s/%s: %w", res.PropertyID, res.Trade, err)
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}, {Name: "trade"}},
		UpdateAll: true,
	}).Create(row).Error
}
