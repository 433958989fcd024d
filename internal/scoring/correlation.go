package scoring

import (
	"math"
	"time"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// PairRule describes a high-value co-occurrence of two signal variants.
// A rule fires when both variants are present within the co-occurrence
// window; the boost is min(strengthA, strengthB) * Weight, so a strong
// signal cannot carry a weak partner on its own.
type PairRule struct {
	Name     string
	VariantA models.SignalVariant
	VariantB models.SignalVariant
	// Trades restricts the rule; nil means relevant to every trade
	Trades []models.Trade
	Weight float64
}

// pairRules is the static co-occurrence table. Weights follow the
// relative ordering of the historical combination analysis: storm damage
// confirmed by a violation is the strongest joint evidence.
var pairRules = []PairRule{
	{
		Name:     "storm_violation",
		VariantA: models.SignalStormEvent,
		VariantB: models.SignalViolation,
		Trades:   []models.Trade{models.TradeRoofing, models.TradeSiding},
		Weight:   1.5,
	},
	{
		Name:     "violation_request",
		VariantA: models.SignalViolation,
		VariantB: models.SignalServiceRequest,
		Weight:   1.3,
	},
	{
		Name:     "deed_violation",
		VariantA: models.SignalDeedRecord,
		VariantB: models.SignalViolation,
		Weight:   1.1,
	},
}

// Count rule parameters. Counts saturate via 1-exp(-k*n) so signal spam
// cannot grow a boost without bound.
const (
	multiViolationWeight = 1.2
	multiViolationMin    = 2
	multiViolationK      = 0.7

	recentBurstWeight     = 1.4
	recentBurstMin        = 2
	recentBurstWindowDays = 30
	recentBurstK          = 0.5
)

// CorrelationEngine detects co-occurring signal combinations and emits
// named boost features
type CorrelationEngine struct {
	cfg   config.ScoringConfig
	decay *DecayEngine
}

// NewCorrelationEngine creates a correlation engine sharing the decay engine
func NewCorrelationEngine(cfg config.ScoringConfig, decay *DecayEngine) *CorrelationEngine {
	return &CorrelationEngine{cfg: cfg, decay: decay}
}

// Boosts computes the interaction boost map for a property's signals.
// Signals below the link-confidence threshold are excluded here entirely;
// they still reach the temporal feature group at reduced weight. A
// property with no co-occurring pairs yields an empty map.
func (e *CorrelationEngine) Boosts(signals []models.Signal, trade models.Trade, asOf time.Time) map[string]float64 {
	boosts := make(map[string]float64)

	eligible := make([]models.Signal, 0, len(signals))
	for _, sig := range signals {
		if sig.LinkConfidence >= e.cfg.LinkConfidenceThreshold {
			eligible = append(eligible, sig)
		}
	}
	if len(eligible) == 0 {
		return boosts
	}

	window := e.cfg.CoOccurrenceWindow()

	for _, rule := range pairRules {
		if !rule.appliesTo(trade) {
			continue
		}
		if boost := e.bestPairBoost(eligible, rule, window, asOf); boost > 0 {
			boosts[rule.Name] = boost
		}
	}

	// Multiple violations within the co-occurrence window
	violations := 0
	for _, sig := range eligible {
		if sig.Variant == models.SignalViolation && asOf.Sub(sig.OccurredAt) <= window {
			violations++
		}
	}
	if violations >= multiViolationMin {
		boosts["multiple_violations"] = multiViolationWeight * saturate(violations, multiViolationK)
	}

	// Burst of recent signals of any variant
	recent := 0
	for _, sig := range eligible {
		if asOf.Sub(sig.OccurredAt) <= recentBurstWindowDays*24*time.Hour {
			recent++
		}
	}
	if recent >= recentBurstMin {
		boosts["recent_signals"] = recentBurstWeight * saturate(recent, recentBurstK)
	}

	return boosts
}

// bestPairBoost finds the strongest qualifying (a, b) pair for a rule.
// Pairs must co-occur within the window; the boost takes the weaker
// member's decayed strength.
func (e *CorrelationEngine) bestPairBoost(signals []models.Signal, rule PairRule, window time.Duration, asOf time.Time) float64 {
	best := 0.0
	for i := range signals {
		if signals[i].Variant != rule.VariantA {
			continue
		}
		sa := e.decay.Strength(&signals[i], asOf)
		if sa <= 0 {
			continue
		}
		for j := range signals {
			if signals[j].Variant != rule.VariantB {
				continue
			}
			gap := signals[i].OccurredAt.Sub(signals[j].OccurredAt)
			if gap < 0 {
				gap = -gap
			}
			if gap > window {
				continue
			}
			sb := e.decay.Strength(&signals[j], asOf)
			pair := math.Min(sa, sb) * rule.Weight
			if pair > best {
				best = pair
			}
		}
	}
	return best
}

func (r PairRule) appliesTo(trade models.Trade) bool {
	if len(r.Trades) == 0 {
		return true
	}
	for _, t := range r.Trades {
		if t == trade {
			return true
		}
	}
	return false
}

// saturate maps a count to (0,1) monotonically: 1 - exp(-k*n)
func saturate(count int, k float64) float64 {
	return 1 - math.Exp(-k*float64(count))
}
