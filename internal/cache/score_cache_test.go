package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"home-services-leads/internal/models"
	"home-services-leads/internal/scoring"
)

func newTestCache(t *testing.T) (*ScoreCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, "score", time.Hour), mr
}

func sampleResult(propertyID string, trade models.Trade) *scoring.ScoreResult {
	return &scoring.ScoreResult{
		PropertyID:       propertyID,
		Trade:            trade,
		IntentScore:      0.82,
		Components:       map[string]float64{"temporal_violation_recency": 0.7},
		SignalCount:      2,
		SignalSetVersion: "abc123",
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	res := sampleResult("P100", models.TradeRoofing)
	c.Set(ctx, res)

	got := c.Get(ctx, "P100", models.TradeRoofing, "abc123")
	require.NotNil(t, got)
	assert.Equal(t, res.IntentScore, got.IntentScore)
	assert.Equal(t, res.Components, got.Components)
}

func TestCacheMissOnVersionChange(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("P100", models.TradeRoofing))

	// New signal set version means a different key, so a miss
	assert.Nil(t, c.Get(ctx, "P100", models.TradeRoofing, "def456"))
	assert.Nil(t, c.Get(ctx, "P100", models.TradeHVAC, "abc123"))
	assert.Nil(t, c.Get(ctx, "P999", models.TradeRoofing, "abc123"))
}

func TestCacheInvalidateProperty(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("P100", models.TradeRoofing))
	c.Set(ctx, sampleResult("P100", models.TradeHVAC))
	c.Set(ctx, sampleResult("P200", models.TradeRoofing))

	deleted := c.InvalidateProperty(ctx, "P100")
	assert.Equal(t, 2, deleted)

	assert.Nil(t, c.Get(ctx, "P100", models.TradeRoofing, "abc123"))
	assert.NotNil(t, c.Get(ctx, "P200", models.TradeRoofing, "abc123"))
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("P100", models.TradeRoofing))
	mr.FastForward(2 * time.Hour)

	assert.Nil(t, c.Get(ctx, "P100", models.TradeRoofing, "abc123"))
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *ScoreCache

	ctx := context.Background()
	c.Set(ctx, sampleResult("P100", models.TradeRoofing))
	assert.Nil(t, c.Get(ctx, "P100", models.TradeRoofing, "abc123"))
	assert.Zero(t, c.InvalidateProperty(ctx, "P100"))
	assert.NoError(t, c.Close())
}
