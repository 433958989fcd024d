package zipstats

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/signals"
)

// Tier thresholds on signals-per-property density. Tier 1 ZIPs are the
// hot markets dashboards surface first.
const (
	tier1Density = 1.0
	tier2Density = 0.3
)

// Refresher recomputes per-ZIP aggregates from the property universe.
// Runs out-of-band (admin trigger or nightly); scoring only reads the
// persisted rows.
type Refresher struct {
	db      *gorm.DB
	signals *signals.Store
}

func NewRefresher(db *gorm.DB, sigStore *signals.Store) *Refresher {
	return &Refresher{db: db, signals: sigStore}
}

// RefreshAll recomputes and upserts stats for every ZIP with properties.
// Returns the number of ZIP rows written.
func (r *Refresher) RefreshAll(asOf time.Time) (int, error) {
	type propRow struct {
		ZipCode     string
		MarketValue *float64
		YearBuilt   *int
	}
	var props []propRow
	if err := r.db.Model(&models.Property{}).
		Select("zip_code, market_value, year_built").
		Where("zip_code <> ''").
		Scan(&props).Error; err != nil {
		return 0, fmt.Errorf("failed to load properties for zip stats: %w", err)
	}

	signalCounts, err := r.signals.CountByZip(asOf)
	if err != nil {
		return 0, err
	}

	type zipAgg struct {
		values []float64
		ages   []float64
		total  int64
	}
	byZip := make(map[string]*zipAgg)
	for _, p := range props {
		agg := byZip[p.ZipCode]
		if agg == nil {
			agg = &zipAgg{}
			byZip[p.ZipCode] = agg
		}
		agg.total++
		if p.MarketValue != nil && *p.MarketValue > 0 {
			agg.values = append(agg.values, *p.MarketValue)
		}
		if p.YearBuilt != nil && *p.YearBuilt > 0 {
			age := asOf.Sub(time.Date(*p.YearBuilt, time.January, 1, 0, 0, 0, 0, time.UTC)).Hours() / (24 * 365.25)
			if age >= 0 {
				agg.ages = append(agg.ages, age)
			}
		}
	}

	rows := make([]models.ZipStats, 0, len(byZip))
	for zip, agg := range byZip {
		row := models.ZipStats{
			ZipCode:         zip,
			TotalProperties: agg.total,
			SignalCount:     signalCounts[zip],
			RefreshedAt:     asOf,
		}
		if len(agg.values) > 0 {
			sort.Float64s(agg.values)
			row.MinMarketValue = agg.values[0]
			row.MaxMarketValue = agg.values[len(agg.values)-1]
			row.MedianMarketValue = median(agg.values)
			row.AvgMarketValue = mean(agg.values)
		}
		if len(agg.ages) > 0 {
			sort.Float64s(agg.ages)
			row.MedianAgeYears = median(agg.ages)
		}
		if agg.total > 0 {
			row.AvgSignalCount = float64(row.SignalCount) / float64(agg.total)
		}
		row.Tier = tierFor(row.AvgSignalCount)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "zip_code"}},
		UpdateAll: true,
	}).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to upsert zip stats: %w", err)
	}

	logging.L().Infof("ZipStats: refreshed %d zips", len(rows))
	return len(rows), nil
}

// Get returns one ZIP's stats, or nil when none have been computed.
// A missing row is a normal condition for sparsely covered ZIPs.
func Get(db *gorm.DB, zipCode string) (*models.ZipStats, error) {
	var row models.ZipStats
	err := db.Where("zip_code = ?", zipCode).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load zip stats for %s: %w", zipCode, err)
	}
	return &row, nil
}

// GetMany prefetches stats for a set of ZIPs in one query
func GetMany(db *gorm.DB, zipCodes []string) (map[string]*models.ZipStats, error) {
	out := make(map[string]*models.ZipStats, len(zipCodes))
	if len(zipCodes) == 0 {
		return out, nil
	}
	var rows []models.ZipStats
	if err := db.Where("zip_code IN ?", zipCodes).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to prefetch zip stats: %w", err)
	}
	for i := range rows {
		out[rows[i].ZipCode] = &rows[i]
	}
	return out, nil
}

func tierFor(avgSignalCount float64) int {
	switch {
	case avgSignalCount >= tier1Density:
		return 1
	case avgSignalCount >= tier2Density:
		return 2
	default:
		return 3
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
