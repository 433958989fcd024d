package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"home-services-leads/internal/models"
)

func newCorrelationEngine() *CorrelationEngine {
	cfg := testScoringConfig()
	return NewCorrelationEngine(cfg, NewDecayEngine(cfg))
}

func TestBoostsStormViolationPair(t *testing.T) {
	engine := newCorrelationEngine()

	signals := []models.Signal{
		stormSignal("S1", 10, 1.5, "inches"),
		linkedSignal(models.SignalViolation, "V1", 5),
	}

	boosts := engine.Boosts(signals, models.TradeRoofing, testAsOf)
	require.Contains(t, boosts, "storm_violation")

	// Boost takes the weaker member's strength: storm is 0.9 base with
	// a 45-day half-life at 10 days, violation 1.0 at 5 days
	storm := 0.9 * math.Exp2(-10.0/45)
	violation := math.Exp2(-5.0 / 30)
	assert.InDelta(t, math.Min(storm, violation)*1.5, boosts["storm_violation"], 1e-9)
}

func TestBoostsPairRuleTradeRestriction(t *testing.T) {
	engine := newCorrelationEngine()

	signals := []models.Signal{
		stormSignal("S1", 10, 1.5, "inches"),
		linkedSignal(models.SignalViolation, "V1", 5),
	}

	// storm_violation only applies to roofing and siding
	boosts := engine.Boosts(signals, models.TradeHVAC, testAsOf)
	assert.NotContains(t, boosts, "storm_violation")
}

func TestBoostsPairOutsideWindow(t *testing.T) {
	engine := newCorrelationEngine()

	// 120 days apart, beyond the 90-day co-occurrence window
	signals := []models.Signal{
		stormSignal("S1", 130, 1.5, "inches"),
		linkedSignal(models.SignalViolation, "V1", 10),
	}

	boosts := engine.Boosts(signals, models.TradeRoofing, testAsOf)
	assert.NotContains(t, boosts, "storm_violation")
}

func TestBoostsExcludesWeakLinks(t *testing.T) {
	engine := newCorrelationEngine()

	storm := stormSignal("S1", 10, 1.5, "inches")
	storm.LinkConfidence = 0.3
	signals := []models.Signal{
		storm,
		linkedSignal(models.SignalViolation, "V1", 5),
	}

	boosts := engine.Boosts(signals, models.TradeRoofing, testAsOf)
	assert.NotContains(t, boosts, "storm_violation")
}

func TestBoostsMultipleViolations(t *testing.T) {
	engine := newCorrelationEngine()

	one := []models.Signal{linkedSignal(models.SignalViolation, "V1", 5)}
	assert.NotContains(t, engine.Boosts(one, models.TradeRoofing, testAsOf), "multiple_violations")

	three := []models.Signal{
		linkedSignal(models.SignalViolation, "V1", 5),
		linkedSignal(models.SignalViolation, "V2", 15),
		linkedSignal(models.SignalViolation, "V3", 40),
	}
	boosts := engine.Boosts(three, models.TradeRoofing, testAsOf)
	require.Contains(t, boosts, "multiple_violations")
	assert.InDelta(t, 1.2*(1-math.Exp(-0.7*3)), boosts["multiple_violations"], 1e-9)
}

func TestBoostsRecentBurstSaturates(t *testing.T) {
	engine := newCorrelationEngine()

	two := []models.Signal{
		linkedSignal(models.SignalViolation, "V1", 5),
		linkedSignal(models.SignalServiceRequest, "R1", 10),
	}
	small := engine.Boosts(two, models.TradeHVAC, testAsOf)["recent_signals"]
	require.Greater(t, small, 0.0)

	five := append(two,
		linkedSignal(models.SignalServiceRequest, "R2", 1),
		linkedSignal(models.SignalServiceRequest, "R3", 2),
		linkedSignal(models.SignalDeedRecord, "D1", 3),
	)
	large := engine.Boosts(five, models.TradeHVAC, testAsOf)["recent_signals"]

	assert.Greater(t, large, small)
	assert.Less(t, large, recentBurstWeight, "saturating boost stays under its cap")
}

func TestBoostsEmptyInput(t *testing.T) {
	engine := newCorrelationEngine()

	boosts := engine.Boosts(nil, models.TradeRoofing, testAsOf)
	assert.Empty(t, boosts)
}
