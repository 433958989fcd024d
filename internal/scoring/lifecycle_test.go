package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"home-services-leads/internal/models"
)

func TestStageForAgeBoundaries(t *testing.T) {
	tests := []struct {
		age  float64
		want LifecycleStage
	}{
		{-1, StageUnknown},
		{0, StageWarranty},
		{4.99, StageWarranty},
		{5, StageRoutine},
		{14.99, StageRoutine},
		{15, StageMajorReplacement},
		{24.99, StageMajorReplacement},
		{25, StageOngoing},
		{100, StageOngoing},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageForAge(tt.age), "age %.2f", tt.age)
	}
}

func TestStageWeightTradeWindows(t *testing.T) {
	tests := []struct {
		name  string
		age   float64
		trade models.Trade
		want  float64
	}{
		{"roofing in peak", 20, models.TradeRoofing, 0.9},
		{"roofing at peak start", 15, models.TradeRoofing, 0.9},
		{"roofing lower shoulder", 12, models.TradeRoofing, 0.6},
		{"roofing upper shoulder", 27, models.TradeRoofing, 0.6},
		{"roofing outside", 5, models.TradeRoofing, 0.3},
		{"hvac peaks earlier", 15, models.TradeHVAC, 0.9},
		{"hvac outside roofing peak", 25, models.TradeHVAC, 0.6},
		{"siding peaks later", 25, models.TradeSiding, 0.9},
		{"electrical peaks later", 22, models.TradeElectrical, 0.9},
		{"negative age", -1, models.TradeRoofing, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StageWeight(tt.age, tt.trade), 1e-9)
		})
	}
}

func TestMaintenanceUrgency(t *testing.T) {
	tests := []struct {
		age  float64
		want float64
	}{
		{-1, 0},
		{2, 0.2},
		{12, 0.4},
		{20, 0.8},
		{30, 0.6},
		{40, 0.7},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, MaintenanceUrgency(tt.age), 1e-9, "age %.1f", tt.age)
	}
}
