package scoring

import (
	"strings"
	"time"

	"home-services-leads/internal/models"
)

// tradeContext is the shared input for trade adjusters
type tradeContext struct {
	property models.Property
	signals  []models.Signal
	age      float64
	hasAge   bool
	asOf     time.Time
}

// tradeAdjuster returns additive raw-space boosts for one trade. Boosts
// are applied before squashing so a stronger signal never lowers a score.
type tradeAdjuster func(tc tradeContext) map[string]float64

var tradeAdjusters = map[models.Trade]tradeAdjuster{
	models.TradeRoofing:    roofingAdjuster,
	models.TradeHVAC:       hvacAdjuster,
	models.TradeSiding:     sidingAdjuster,
	models.TradeElectrical: electricalAdjuster,
}

func roofingAdjuster(tc tradeContext) map[string]float64 {
	boosts := make(map[string]float64)

	for i := range tc.signals {
		sig := &tc.signals[i]
		switch sig.Variant {
		case models.SignalStormEvent:
			if hail, ok := sig.HailMagnitude(); ok {
				switch {
				case hail > 1.0:
					boosts["severe_hail"] = max(boosts["severe_hail"], 0.4)
				case hail > 0.5:
					boosts["moderate_hail"] = max(boosts["moderate_hail"], 0.2)
				}
			}
		case models.SignalViolation, models.SignalServiceRequest:
			if containsAny(sig.Category, sig.Description, "roof", "shingle", "gutter", "leak") {
				boosts["roof_keyword"] = max(boosts["roof_keyword"], 0.3)
			}
		}
	}

	if tc.hasAge && tc.age >= 15 && tc.age < 25 {
		boosts["replacement_window"] = 0.2
	}
	return boosts
}

func hvacAdjuster(tc tradeContext) map[string]float64 {
	boosts := make(map[string]float64)

	requests := 0
	for i := range tc.signals {
		sig := &tc.signals[i]
		if sig.Variant == models.SignalServiceRequest {
			requests++
			if containsAny(sig.Category, sig.Description, "heat", "cooling", "furnace", "ac", "hvac") {
				boosts["hvac_keyword"] = max(boosts["hvac_keyword"], 0.3)
			}
		}
	}
	if requests >= 2 {
		boosts["repeat_requests"] = 0.2
	}

	// Shoulder seasons are when failing systems get replaced preemptively
	switch tc.asOf.Month() {
	case time.April, time.May, time.October, time.November:
		boosts["seasonal"] = 0.1
	}

	if tc.hasAge && tc.age >= 10 && tc.age < 20 {
		boosts["replacement_window"] = 0.2
	}
	return boosts
}

func sidingAdjuster(tc tradeContext) map[string]float64 {
	boosts := make(map[string]float64)

	for i := range tc.signals {
		sig := &tc.signals[i]
		switch sig.Variant {
		case models.SignalStormEvent:
			if wind, ok := sig.WindMagnitude(); ok && wind > 60 {
				boosts["high_wind"] = max(boosts["high_wind"], 0.3)
			}
		case models.SignalViolation:
			if containsAny(sig.Category, sig.Description, "siding", "exterior", "paint", "facade") {
				boosts["exterior_violation"] = max(boosts["exterior_violation"], 0.3)
			}
		}
	}

	if tc.hasAge && tc.age >= 20 && tc.age < 30 {
		boosts["replacement_window"] = 0.2
	}
	return boosts
}

func electricalAdjuster(tc tradeContext) map[string]float64 {
	boosts := make(map[string]float64)

	for i := range tc.signals {
		sig := &tc.signals[i]
		if sig.Variant == models.SignalViolation || sig.Variant == models.SignalServiceRequest {
			if containsAny(sig.Category, sig.Description, "electric", "wiring", "panel", "outlet", "breaker") {
				boosts["electrical_keyword"] = max(boosts["electrical_keyword"], 0.4)
			}
		}
	}

	// Pre-modern-code wiring ages out around the 20-30 year mark
	if tc.hasAge && tc.age >= 20 && tc.age < 30 {
		boosts["rewiring_window"] = 0.2
	}
	return boosts
}

func containsAny(category, description string, terms ...string) bool {
	haystack := strings.ToLower(category + " " + description)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
