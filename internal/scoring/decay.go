package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// ErrUnknownTrade is returned when a caller passes a trade outside the
// recognized set. This is a configuration error and is surfaced before
// any scoring work runs.
var ErrUnknownTrade = errors.New("unknown trade")

// Anomaly records a signal dropped from scoring as bad input. Anomalies
// are never fatal; the property's result is flagged degraded instead.
type Anomaly struct {
	SignalID  int64                `json:"signal_id"`
	NaturalID string               `json:"natural_id"`
	Variant   models.SignalVariant `json:"variant"`
	Reason    string               `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s/%s: %s", a.Variant, a.NaturalID, a.Reason)
}

// DecayEngine converts signal age into a current strength multiplier
// using exponential decay with per-variant half-lives.
type DecayEngine struct {
	cfg config.ScoringConfig
}

// NewDecayEngine creates a decay engine from the scoring configuration
func NewDecayEngine(cfg config.ScoringConfig) *DecayEngine {
	return &DecayEngine{cfg: cfg}
}

// BaseWeight returns the pre-decay weight of a signal from its variant
// and magnitude. Storm weight scales with reported magnitude (hail inches
// or wind mph, by unit); other variants carry fixed weights.
func BaseWeight(sig *models.Signal) float64 {
	switch sig.Variant {
	case models.SignalViolation:
		return 1.0
	case models.SignalServiceRequest:
		return 0.9
	case models.SignalStormEvent:
		w := 0.6
		if hail, ok := sig.HailMagnitude(); ok {
			w += math.Min(0.4, hail*0.2)
		} else if wind, ok := sig.WindMagnitude(); ok {
			w += math.Min(0.4, wind/150)
		} else if sig.Magnitude > 0 {
			w += 0.1
		}
		return math.Min(1.0, w)
	case models.SignalDeedRecord:
		return 0.5
	default:
		return 0
	}
}

// Strength computes a signal's decayed strength at asOf.
//
// Examples with a 30-day half-life and base weight 1.0: 7 days old is
// roughly 0.85, 30 days is 0.5, 60 days is 0.25. Age clamps to zero,
// so signals inside the future tolerance score at full strength.
func (e *DecayEngine) Strength(sig *models.Signal, asOf time.Time) float64 {
	base := BaseWeight(sig)
	if base <= 0 {
		return 0
	}

	ageDays := sig.AgeDays(asOf)
	if ageDays < 0 {
		// Inside tolerance; Filter rejects anything beyond it
		ageDays = 0
	}

	halfLife := float64(e.cfg.HalfLifeFor(string(sig.Variant)))
	strength := base * math.Exp2(-ageDays/halfLife)

	if strength < e.cfg.MinStrengthFloor {
		strength = e.cfg.MinStrengthFloor
	}
	if strength > base {
		strength = base
	}
	return strength
}

// Filter drops signals that must not reach decay or feature computation:
// anything past the horizon (silently, to bound pipeline cost) and
// future-dated signals beyond the tolerance (recorded as anomalies).
func (e *DecayEngine) Filter(signals []models.Signal, asOf time.Time) ([]models.Signal, []Anomaly) {
	kept := make([]models.Signal, 0, len(signals))
	var anomalies []Anomaly

	horizon := e.cfg.SignalHorizon()
	tolerance := e.cfg.FutureTolerance()

	for _, sig := range signals {
		age := asOf.Sub(sig.OccurredAt)
		if age < -tolerance {
			anomalies = append(anomalies, Anomaly{
				SignalID:  sig.ID,
				NaturalID: sig.NaturalID,
				Variant:   sig.Variant,
				Reason:    fmt.Sprintf("occurred_at %s is beyond the future tolerance", sig.OccurredAt.Format(time.RFC3339)),
			})
			continue
		}
		if age > horizon {
			continue
		}
		kept = append(kept, sig)
	}

	return kept, anomalies
}
