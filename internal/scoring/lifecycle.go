package scoring

import "home-services-leads/internal/models"

// LifecycleStage buckets property age into a maintenance-likelihood band
type LifecycleStage string

const (
	StageWarranty         LifecycleStage = "warranty"          // 0-5y
	StageRoutine          LifecycleStage = "routine"           // 5-15y
	StageMajorReplacement LifecycleStage = "major_replacement" // 15-25y
	StageOngoing          LifecycleStage = "ongoing"           // 25y+
	StageUnknown          LifecycleStage = "unknown"
)

// StageForAge classifies a property age into its lifecycle stage.
// Intervals are half-open [lo, hi): exactly 15.0 years is
// major_replacement, 14.99 is routine.
func StageForAge(ageYears float64) LifecycleStage {
	switch {
	case ageYears < 0:
		return StageUnknown
	case ageYears < 5:
		return StageWarranty
	case ageYears < 15:
		return StageRoutine
	case ageYears < 25:
		return StageMajorReplacement
	default:
		return StageOngoing
	}
}

// StageWeight returns the trade-specific lifecycle multiplier for a
// property age. Each trade peaks in a different replacement window:
// roofing at 15-25 years, HVAC earlier at 10-20, siding and electrical
// later at 20-30.
func StageWeight(ageYears float64, trade models.Trade) float64 {
	if ageYears < 0 {
		return 0
	}

	switch trade {
	case models.TradeRoofing:
		return windowWeight(ageYears, 15, 25)
	case models.TradeHVAC:
		return windowWeight(ageYears, 10, 20)
	case models.TradeSiding:
		return windowWeight(ageYears, 20, 30)
	case models.TradeElectrical:
		return windowWeight(ageYears, 20, 30)
	default:
		return MaintenanceUrgency(ageYears)
	}
}

// windowWeight scores an age against a trade's peak window: 0.9 inside
// [lo, hi], 0.6 in the 5-year shoulders on either side, 0.3 elsewhere.
// Boundaries are inclusive on the peak side.
func windowWeight(age, lo, hi float64) float64 {
	switch {
	case age >= lo && age <= hi:
		return 0.9
	case age >= lo-5 && age < lo:
		return 0.6
	case age > hi && age <= hi+5:
		return 0.6
	default:
		return 0.3
	}
}

// MaintenanceUrgency is the trade-agnostic urgency curve: peaks in the
// 15-25 year replacement window, stays elevated for older stock.
func MaintenanceUrgency(ageYears float64) float64 {
	switch {
	case ageYears < 0:
		return 0
	case ageYears >= 15 && ageYears <= 25:
		return 0.8
	case ageYears > 25 && ageYears <= 35:
		return 0.6
	case ageYears > 35:
		return 0.7
	case ageYears >= 10:
		return 0.4
	default:
		return 0.2
	}
}
