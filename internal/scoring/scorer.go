package scoring

import (
	"math"
	"time"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// ScoreResult is one completed scoring pass for a (property, trade) pair
type ScoreResult struct {
	PropertyID string
	Trade      models.Trade
	AsOf       time.Time

	// IntentScore is the final bounded score in [0,1]
	IntentScore float64
	// BaselineScore is the score from static features alone, for
	// measuring signal lift
	BaselineScore float64

	// Components maps every contributing feature and trade boost to its
	// weighted raw contribution, for explainability
	Components map[string]float64

	Anomalies      []Anomaly
	DegradedInput  bool
	SignalCount    int
	ViolationCount int
	RequestCount   int
	LatestSignalAt *time.Time

	SignalSetVersion string
}

// ToModel converts a result to its persisted row form
func (r *ScoreResult) ToModel(scoreVersion string) (*models.LeadScore, error) {
	row := &models.LeadScore{
		PropertyID:       r.PropertyID,
		Trade:            r.Trade,
		IntentScore:      r.IntentScore,
		BaselineScore:    r.BaselineScore,
		SignalCount:      r.SignalCount,
		ViolationCount:   r.ViolationCount,
		RequestCount:     r.RequestCount,
		DegradedInput:    r.DegradedInput,
		SignalSetVersion: r.SignalSetVersion,
		LatestSignalAt:   r.LatestSignalAt,
		ScoreVersion:     scoreVersion,
		ComputedAt:       r.AsOf,
	}
	if err := row.SetComponents(r.Components); err != nil {
		return nil, err
	}
	return row, nil
}

// Engine turns feature vectors into bounded intent scores using
// per-trade weight tables. Stateless and safe for concurrent use.
type Engine struct {
	cfg      config.ScoringConfig
	trades   config.TradesConfig
	pipeline *FeaturePipeline
}

// NewEngine builds a scoring engine. The trades config is assumed
// validated at startup.
func NewEngine(cfg config.ScoringConfig, trades config.TradesConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		trades:   trades,
		pipeline: NewFeaturePipeline(cfg),
	}
}

// Pipeline exposes the engine's feature pipeline
func (e *Engine) Pipeline() *FeaturePipeline {
	return e.pipeline
}

// SignalSetVersion fingerprints the signals that would actually reach
// scoring at asOf. Cache lookups must use this, not the raw prefetched
// set: an anomalous signal is dropped before the stored ScoreResult's
// version is stamped, and a mismatched key never hits.
func (e *Engine) SignalSetVersion(signals []models.Signal, asOf time.Time) string {
	return SignalSetVersion(keptSignals(signals, e.pipeline.Decay(), asOf))
}

// Score computes the intent score for one (property, trade). Unknown
// trades fail before any feature work.
func (e *Engine) Score(in Inputs, trade models.Trade, asOf time.Time) (*ScoreResult, error) {
	weights, ok := e.trades[string(trade)]
	if !ok {
		return nil, ErrUnknownTrade
	}

	v := e.pipeline.Build(in, trade, asOf)

	components := make(map[string]float64)
	raw := e.weightedSum(v, weights, components)

	age, hasAge := in.Property.AgeYears(asOf)
	adjuster := tradeAdjusters[trade]
	if adjuster != nil {
		boosts := adjuster(tradeContext{
			property: in.Property,
			signals:  keptSignals(in.Signals, e.pipeline.decay, asOf),
			age:      age,
			hasAge:   hasAge,
			asOf:     asOf,
		})
		for name, boost := range boosts {
			components["trade_"+name] = boost
			raw += boost
		}
	}

	staticRaw := weights.Aggregated*v.GroupSum(GroupAggregated) +
		weights.Lifecycle*v.GroupSum(GroupLifecycle)

	return &ScoreResult{
		PropertyID:       v.PropertyID,
		Trade:            trade,
		AsOf:             asOf,
		IntentScore:      squash(raw),
		BaselineScore:    squash(staticRaw),
		Components:       components,
		Anomalies:        v.Anomalies,
		DegradedInput:    v.Degraded(),
		SignalCount:      v.SignalCount,
		ViolationCount:   v.ViolationCount,
		RequestCount:     v.RequestCount,
		LatestSignalAt:   v.LatestSignalAt,
		SignalSetVersion: v.SignalSetVersion,
	}, nil
}

func (e *Engine) weightedSum(v *FeatureVector, w config.TradeWeights, components map[string]float64) float64 {
	raw := 0.0
	add := func(group string, m map[string]float64, weight float64) {
		for name, val := range m {
			contrib := weight * val
			components[group+"_"+name] = contrib
			raw += contrib
		}
	}
	add(GroupTemporal, v.Temporal, w.Temporal)
	add(GroupAggregated, v.Aggregated, w.Aggregated)
	add(GroupInteraction, v.Interaction, w.Interaction)
	add(GroupLifecycle, v.Lifecycle, w.Lifecycle)
	return raw
}

// keptSignals re-applies the horizon/validity filter so adjusters never
// see signals that scoring dropped
func keptSignals(signals []models.Signal, decay *DecayEngine, asOf time.Time) []models.Signal {
	kept, _ := decay.Filter(signals, asOf)
	return kept
}

// squash maps an unbounded non-negative raw sum into [0,1) while
// preserving ordering: more raw evidence always means a higher score,
// with diminishing returns
func squash(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return 1 - math.Exp(-raw)
}
