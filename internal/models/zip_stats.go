package models

import "time"

// ZipStats holds per-ZIP aggregates computed by the zipstats refresh job.
// The feature pipeline treats these as a static lookup; recomputation
// happens out-of-band.
type ZipStats struct {
	ZipCode string `gorm:"type:varchar(10);primaryKey" json:"zip_code"`

	TotalProperties   int64   `gorm:"not null;default:0" json:"total_properties"`
	AvgMarketValue    float64 `gorm:"type:decimal(15,2);not null;default:0" json:"avg_market_value"`
	MedianMarketValue float64 `gorm:"type:decimal(15,2);not null;default:0" json:"median_market_value"`
	MinMarketValue    float64 `gorm:"type:decimal(15,2);not null;default:0" json:"min_market_value"`
	MaxMarketValue    float64 `gorm:"type:decimal(15,2);not null;default:0" json:"max_market_value"`
	MedianAgeYears    float64 `gorm:"type:decimal(6,2);not null;default:0" json:"median_age_years"`

	// Signal density, used for ZIP tiering
	SignalCount    int64   `gorm:"not null;default:0" json:"signal_count"`
	AvgSignalCount float64 `gorm:"type:decimal(8,3);not null;default:0" json:"avg_signal_count"`
	Tier           int     `gorm:"not null;default:3;index" json:"tier"` // 1 = hottest

	RefreshedAt time.Time `gorm:"not null" json:"refreshed_at"`
}

// TableName specifies the table name for GORM
func (ZipStats) TableName() string {
	return "zip_stats"
}

// ValuePercentile interpolates a market value's percentile rank within the
// ZIP using min/median/max anchors. Returns 0.5 when the spread is flat.
func (z *ZipStats) ValuePercentile(value float64) float64 {
	if z.TotalProperties == 0 || z.MedianMarketValue <= 0 {
		return 0
	}
	if value >= z.MedianMarketValue {
		spread := z.MaxMarketValue - z.MedianMarketValue
		if spread <= 0 {
			return 0.5
		}
		p := 0.5 + (value-z.MedianMarketValue)/spread*0.5
		if p > 1 {
			p = 1
		}
		return p
	}
	spread := z.MedianMarketValue - z.MinMarketValue
	if spread <= 0 {
		return 0
	}
	p := (value - z.MinMarketValue) / spread * 0.5
	if p < 0 {
		p = 0
	}
	return p
}

// AgePercentile interpolates an age's percentile rank within the ZIP
// against the median, saturating at 100 years. ZIPs whose median stock
// is already a century old rank everything at or above it as 1.
func (z *ZipStats) AgePercentile(ageYears float64) float64 {
	if z.MedianAgeYears <= 0 {
		return 0
	}
	if ageYears >= z.MedianAgeYears {
		spread := 100 - z.MedianAgeYears
		if spread <= 0 {
			return 1
		}
		p := 0.5 + (ageYears-z.MedianAgeYears)/spread*0.5
		if p > 1 {
			p = 1
		}
		return p
	}
	return ageYears / z.MedianAgeYears * 0.5
}
