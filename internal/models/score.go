package models

import (
	"encoding/json"
	"time"
)

// LeadScore stores the latest computed intent score per (property, trade).
// Only the newest row per key is authoritative; a rescore overwrites it.
type LeadScore struct {
	PropertyID string `gorm:"type:varchar(32);primaryKey" json:"property_id"`
	Trade      Trade  `gorm:"type:varchar(20);primaryKey" json:"trade"`

	IntentScore   float64 `gorm:"type:decimal(6,4);not null;index" json:"intent_score"`
	BaselineScore float64 `gorm:"type:decimal(6,4);not null" json:"baseline_score"`

	// Components holds the per-group contribution breakdown as JSON
	Components string `gorm:"type:text" json:"components,omitempty"`

	// Signal summary at computation time
	SignalCount    int `gorm:"not null;default:0" json:"signal_count"`
	ViolationCount int `gorm:"not null;default:0" json:"violation_count"`
	RequestCount   int `gorm:"not null;default:0" json:"request_count"`

	// DegradedInput is set when anomalous signals were dropped before scoring
	DegradedInput bool `gorm:"not null;default:false" json:"degraded_input"`

	// SignalSetVersion changes whenever the property's linked signal set
	// changes; it keys cache invalidation
	SignalSetVersion string `gorm:"type:varchar(64)" json:"signal_set_version,omitempty"`

	// LatestSignalAt breaks score ties during lead generation (freshest wins)
	LatestSignalAt *time.Time `gorm:"index" json:"latest_signal_at,omitempty"`

	ScoreVersion string    `gorm:"type:varchar(20);not null;default:'v1'" json:"score_version"`
	ComputedAt   time.Time `gorm:"not null;index" json:"computed_at"`
}

// TableName specifies the table name for GORM
func (LeadScore) TableName() string {
	return "lead_scores"
}

// SetComponents serializes a contribution breakdown into the row
func (s *LeadScore) SetComponents(components map[string]float64) error {
	data, err := json.Marshal(components)
	if err != nil {
		return err
	}
	s.Components = string(data)
	return nil
}

// GetComponents deserializes the stored contribution breakdown
func (s *LeadScore) GetComponents() (map[string]float64, error) {
	if s.Components == "" {
		return map[string]float64{}, nil
	}
	var components map[string]float64
	if err := json.Unmarshal([]byte(s.Components), &components); err != nil {
		return nil, err
	}
	return components, nil
}
