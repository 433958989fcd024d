package scoring

import (
	"crypto/md5"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// Feature group names used in score breakdowns
const (
	GroupTemporal    = "temporal"
	GroupAggregated  = "aggregated"
	GroupInteraction = "interaction"
	GroupLifecycle   = "lifecycle"
)

// Inputs carries everything the pipeline needs for one property. All
// fields are prefetched; nothing here triggers I/O.
type Inputs struct {
	Property models.Property
	Signals  []models.Signal
	ZipStats *models.ZipStats
}

// FeatureVector is the fixed-shape feature set for one (property, trade,
// as-of time). It is ephemeral: recomputed on demand, cached only under
// the (property, trade, signal set version) key.
type FeatureVector struct {
	PropertyID string
	Trade      models.Trade
	AsOf       time.Time

	Temporal    map[string]float64
	Aggregated  map[string]float64
	Interaction map[string]float64
	Lifecycle   map[string]float64

	// Anomalies lists signals dropped as bad input; non-empty means the
	// result is computed from degraded input
	Anomalies []Anomaly

	SignalCount    int
	ViolationCount int
	RequestCount   int
	LatestSignalAt *time.Time

	// SignalSetVersion fingerprints the input signal set for cache keys
	SignalSetVersion string
}

// GroupSum totals one feature group's values
func (v *FeatureVector) GroupSum(group string) float64 {
	var m map[string]float64
	switch group {
	case GroupTemporal:
		m = v.Temporal
	case GroupAggregated:
		m = v.Aggregated
	case GroupInteraction:
		m = v.Interaction
	case GroupLifecycle:
		m = v.Lifecycle
	default:
		return 0
	}
	sum := 0.0
	for _, val := range m {
		sum += val
	}
	return sum
}

// Degraded reports whether anomalous signals were dropped before scoring
func (v *FeatureVector) Degraded() bool {
	return len(v.Anomalies) > 0
}

// FeaturePipeline assembles feature vectors from prefetched inputs
type FeaturePipeline struct {
	cfg   config.ScoringConfig
	decay *DecayEngine
	corr  *CorrelationEngine
}

// NewFeaturePipeline creates a pipeline with its decay and correlation engines
func NewFeaturePipeline(cfg config.ScoringConfig) *FeaturePipeline {
	decay := NewDecayEngine(cfg)
	return &FeaturePipeline{
		cfg:   cfg,
		decay: decay,
		corr:  NewCorrelationEngine(cfg, decay),
	}
}

// Decay exposes the pipeline's decay engine for trade adjusters
func (p *FeaturePipeline) Decay() *DecayEngine {
	return p.decay
}

// Build computes the four feature groups for one (property, trade).
// Missing inputs evaluate to zero, never NaN, so downstream arithmetic
// stays total. A property with zero linked signals is a linkage gap,
// not an error: static groups still populate.
func (p *FeaturePipeline) Build(in Inputs, trade models.Trade, asOf time.Time) *FeatureVector {
	kept, anomalies := p.decay.Filter(in.Signals, asOf)

	v := &FeatureVector{
		PropertyID:       in.Property.PropID,
		Trade:            trade,
		AsOf:             asOf,
		Temporal:         make(map[string]float64),
		Aggregated:       make(map[string]float64),
		Interaction:      make(map[string]float64),
		Lifecycle:        make(map[string]float64),
		Anomalies:        anomalies,
		SignalCount:      len(kept),
		SignalSetVersion: SignalSetVersion(kept),
	}

	p.buildTemporal(v, kept, asOf)
	p.buildAggregated(v, in)
	p.buildInteraction(v, in, kept, trade, asOf)
	p.buildLifecycle(v, in, trade, asOf)

	return v
}

// effectiveStrength is the decayed strength scaled by link confidence
// for weakly-linked signals. Only the temporal group sees weak links;
// correlation excludes them entirely.
func (p *FeaturePipeline) effectiveStrength(sig *models.Signal, asOf time.Time) float64 {
	s := p.decay.Strength(sig, asOf)
	if sig.LinkConfidence < p.cfg.LinkConfidenceThreshold {
		s *= sig.LinkConfidence
	}
	return s
}

func (p *FeaturePipeline) buildTemporal(v *FeatureVector, signals []models.Signal, asOf time.Time) {
	latestByVariant := make(map[models.SignalVariant]*models.Signal)
	var window30, window60, window90 float64
	recentActivity := false

	for i := range signals {
		sig := &signals[i]

		switch sig.Variant {
		case models.SignalViolation:
			v.ViolationCount++
		case models.SignalServiceRequest:
			v.RequestCount++
		}

		if v.LatestSignalAt == nil || sig.OccurredAt.After(*v.LatestSignalAt) {
			t := sig.OccurredAt
			v.LatestSignalAt = &t
		}

		if prev, ok := latestByVariant[sig.Variant]; !ok || sig.OccurredAt.After(prev.OccurredAt) {
			latestByVariant[sig.Variant] = sig
		}

		ageDays := sig.AgeDays(asOf)
		strength := p.effectiveStrength(sig, asOf)
		if ageDays <= 30 {
			window30 += strength
			if sig.Variant == models.SignalViolation || sig.Variant == models.SignalServiceRequest {
				recentActivity = true
			}
		}
		if ageDays <= 60 {
			window60 += strength
		}
		if ageDays <= 90 {
			window90 += strength
		}
	}

	for variant, sig := range latestByVariant {
		v.Temporal[string(variant)+"_recency"] = p.effectiveStrength(sig, asOf)
	}

	// Window sums normalize against a 3-signal saturation point
	v.Temporal["signals_30d"] = math.Min(1, window30/3)
	v.Temporal["signals_60d"] = math.Min(1, window60/3)
	v.Temporal["signals_90d"] = math.Min(1, window90/3)
	if recentActivity {
		v.Temporal["recent_activity"] = 1
	}
}

func (p *FeaturePipeline) buildAggregated(v *FeatureVector, in Inputs) {
	zs := in.ZipStats
	if zs == nil {
		return
	}

	if in.Property.MarketValue != nil {
		v.Aggregated["value_percentile"] = zs.ValuePercentile(*in.Property.MarketValue)
	}
	if age, ok := in.Property.AgeYears(v.AsOf); ok {
		v.Aggregated["age_percentile"] = zs.AgePercentile(age)
	}
	if zs.AvgSignalCount > 0 {
		ratio := float64(v.SignalCount) / zs.AvgSignalCount
		v.Aggregated["signal_density_ratio"] = math.Min(1, ratio/3)
	}
	// Hotter ZIP tiers (1 is hottest) contribute more
	if zs.Tier >= 1 && zs.Tier <= 3 {
		v.Aggregated["zip_tier"] = float64(4-zs.Tier) / 3 * 0.5
	}
}

func (p *FeaturePipeline) buildInteraction(v *FeatureVector, in Inputs, signals []models.Signal, trade models.Trade, asOf time.Time) {
	for name, boost := range p.corr.Boosts(signals, trade, asOf) {
		v.Interaction[name] = boost
	}

	age, hasAge := in.Property.AgeYears(asOf)
	if hasAge {
		valuePct := v.Aggregated["value_percentile"]
		// Older, lower-value stock defers maintenance until it becomes a
		// service need
		v.Interaction["age_value_vulnerability"] = math.Min(1, age/100) * (1 - valuePct)

		maxStrength := 0.0
		for i := range signals {
			if s := p.decay.Strength(&signals[i], asOf); s > maxStrength {
				maxStrength = s
			}
		}
		v.Interaction["lifecycle_peak_strength"] = StageWeight(age, trade) * maxStrength
	}
}

func (p *FeaturePipeline) buildLifecycle(v *FeatureVector, in Inputs, trade models.Trade, asOf time.Time) {
	age, ok := in.Property.AgeYears(asOf)
	if !ok {
		return
	}
	v.Lifecycle["stage_weight"] = StageWeight(age, trade)
	v.Lifecycle["maintenance_urgency"] = MaintenanceUrgency(age)
	if in.Property.OwnerOccupied {
		v.Lifecycle["owner_occupied"] = 0.2
	}
}

// SignalSetVersion fingerprints a signal set so cached scores invalidate
// when the linked set changes. Order-insensitive.
func SignalSetVersion(signals []models.Signal) string {
	if len(signals) == 0 {
		return "empty"
	}
	keys := make([]string, 0, len(signals))
	for _, sig := range signals {
		keys = append(keys, fmt.Sprintf("%s:%s", sig.Variant, sig.NaturalID))
	}
	sort.Strings(keys)
	sum := md5.Sum([]byte(strings.Join(keys, "|")))
	return fmt.Sprintf("%x", sum)
}
