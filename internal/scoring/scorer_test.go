package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

func newTestEngine() *Engine {
	cfg := config.DefaultConfig()
	return NewEngine(cfg.Scoring, cfg.Trades)
}

func TestScoreUnknownTrade(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Score(Inputs{Property: testProperty(2006, 450000)}, "plumbing", testAsOf)
	assert.ErrorIs(t, err, ErrUnknownTrade)
}

func TestScoreBounds(t *testing.T) {
	engine := newTestEngine()

	// Pile on strong evidence; the squash keeps the score under 1
	in := Inputs{
		Property: testProperty(2006, 600000),
		ZipStats: testZipStats(),
		Signals: []models.Signal{
			stormSignal("S1", 2, 2.5, "inches"),
			linkedSignal(models.SignalViolation, "V1", 3),
			linkedSignal(models.SignalViolation, "V2", 8),
			linkedSignal(models.SignalViolation, "V3", 12),
			linkedSignal(models.SignalServiceRequest, "R1", 5),
			linkedSignal(models.SignalServiceRequest, "R2", 9),
		},
	}

	res, err := engine.Score(in, models.TradeRoofing, testAsOf)
	require.NoError(t, err)

	assert.Greater(t, res.IntentScore, 0.9)
	assert.Less(t, res.IntentScore, 1.0)
	assert.GreaterOrEqual(t, res.BaselineScore, 0.0)
	assert.Less(t, res.BaselineScore, res.IntentScore)
}

func TestScoreMonotonicInEvidence(t *testing.T) {
	engine := newTestEngine()

	base := Inputs{
		Property: testProperty(2006, 450000),
		ZipStats: testZipStats(),
		Signals:  []models.Signal{linkedSignal(models.SignalViolation, "V1", 10)},
	}
	withMore := base
	withMore.Signals = append([]models.Signal{}, base.Signals...)
	withMore.Signals = append(withMore.Signals, linkedSignal(models.SignalViolation, "V2", 20))

	lo, err := engine.Score(base, models.TradeRoofing, testAsOf)
	require.NoError(t, err)
	hi, err := engine.Score(withMore, models.TradeRoofing, testAsOf)
	require.NoError(t, err)

	assert.Greater(t, hi.IntentScore, lo.IntentScore, "added evidence never lowers a score")
}

func TestScoreHailPlusViolationOutranksViolationOnly(t *testing.T) {
	engine := newTestEngine()

	violationOnly := Inputs{
		Property: testProperty(2006, 450000),
		ZipStats: testZipStats(),
		Signals:  []models.Signal{linkedSignal(models.SignalViolation, "V1", 5)},
	}
	hailAndViolation := violationOnly
	hailAndViolation.Signals = []models.Signal{
		linkedSignal(models.SignalViolation, "V1", 5),
		stormSignal("S1", 7, 1.8, "inches"),
	}

	plain, err := engine.Score(violationOnly, models.TradeRoofing, testAsOf)
	require.NoError(t, err)
	combined, err := engine.Score(hailAndViolation, models.TradeRoofing, testAsOf)
	require.NoError(t, err)

	assert.Greater(t, combined.IntentScore, plain.IntentScore)
	assert.Contains(t, combined.Components, "interaction_storm_violation")
	assert.InDelta(t, 0.4, combined.Components["trade_severe_hail"], 1e-9)
}

func TestScoreZeroSignals(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Property: testProperty(2018, 450000),
		ZipStats: testZipStats(),
	}

	res, err := engine.Score(in, models.TradeHVAC, testAsOf)
	require.NoError(t, err)

	assert.Equal(t, 0, res.SignalCount)
	assert.Greater(t, res.IntentScore, 0.0, "static features alone produce a low score")
	assert.Less(t, res.IntentScore, 0.6)
}

func TestScoreDegradedInput(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Property: testProperty(2006, 450000),
		ZipStats: testZipStats(),
		Signals: []models.Signal{
			linkedSignal(models.SignalViolation, "V1", 5),
			linkedSignal(models.SignalViolation, "FUTURE", -30),
		},
	}

	res, err := engine.Score(in, models.TradeRoofing, testAsOf)
	require.NoError(t, err)

	assert.True(t, res.DegradedInput)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, 1, res.SignalCount)
}

func TestScoreResultToModel(t *testing.T) {
	engine := newTestEngine()

	in := Inputs{
		Property: testProperty(2006, 450000),
		ZipStats: testZipStats(),
		Signals:  []models.Signal{linkedSignal(models.SignalViolation, "V1", 5)},
	}

	res, err := engine.Score(in, models.TradeRoofing, testAsOf)
	require.NoError(t, err)

	row, err := res.ToModel("v1")
	require.NoError(t, err)

	assert.Equal(t, "P100", row.PropertyID)
	assert.Equal(t, models.TradeRoofing, row.Trade)
	assert.Equal(t, res.IntentScore, row.IntentScore)
	assert.Equal(t, res.SignalSetVersion, row.SignalSetVersion)
	assert.Equal(t, "v1", row.ScoreVersion)

	components, err := row.GetComponents()
	require.NoError(t, err)
	assert.InDelta(t, res.Components["temporal_violation_recency"], components["temporal_violation_recency"], 1e-9)
}

func TestSquash(t *testing.T) {
	assert.Zero(t, squash(0))
	assert.Zero(t, squash(-1))
	assert.Less(t, squash(10), 1.0)
	assert.Greater(t, squash(2.0), squash(1.0))
}
