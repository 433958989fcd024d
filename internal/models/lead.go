package models

import "time"

// LeadStatus is a lead's lifecycle state
type LeadStatus string

const (
	LeadStatusGenerated LeadStatus = "generated"
	LeadStatusAssigned  LeadStatus = "assigned"
	LeadStatusDelivered LeadStatus = "delivered"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusExpired   LeadStatus = "expired"
)

// NonTerminalLeadStatuses are the states that block re-generation for the
// same (property, trade)
var NonTerminalLeadStatuses = []LeadStatus{
	LeadStatusGenerated,
	LeadStatusAssigned,
	LeadStatusDelivered,
}

// Lead is a trackable sales opportunity derived from a scored property.
// It snapshots the ScoreResult at generation time; scores are never
// recomputed for an existing lead.
type Lead struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID string `gorm:"type:varchar(32);not null;index:idx_lead_prop_trade,priority:1" json:"property_id"`
	Trade      Trade  `gorm:"type:varchar(20);not null;index:idx_lead_prop_trade,priority:2;index" json:"trade"`

	IntentScore  float64 `gorm:"type:decimal(6,4);not null;index" json:"intent_score"`
	QualityScore float64 `gorm:"type:decimal(6,4);not null" json:"quality_score"`

	Status LeadStatus `gorm:"type:varchar(20);not null;default:'generated';index" json:"status"`

	// Assignment via TerritoryLedger
	ContractorID *string    `gorm:"type:varchar(36);index" json:"contractor_id,omitempty"`
	TerritoryID  *string    `gorm:"type:varchar(36)" json:"territory_id,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	AssignedBy   string     `gorm:"type:varchar(100)" json:"assigned_by,omitempty"`

	// Delivery and conversion tracking (execution is out of scope; the
	// states are owned here)
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	DeliveryMethod  string     `gorm:"type:varchar(50)" json:"delivery_method,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	ConversionValue *float64   `gorm:"type:decimal(12,2)" json:"conversion_value,omitempty"`

	// Property snapshot fields for downstream consumers
	ZipCode     string   `gorm:"type:varchar(10);index" json:"zip_code,omitempty"`
	MarketValue *float64 `gorm:"type:decimal(15,2)" json:"market_value,omitempty"`
	SignalCount int      `gorm:"not null;default:0" json:"signal_count"`

	GeneratedAt time.Time  `gorm:"not null;autoCreateTime;index" json:"generated_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for GORM
func (Lead) TableName() string {
	return "leads"
}

// IsTerminal reports whether the lead has reached a final state
func (l *Lead) IsTerminal() bool {
	return l.Status == LeadStatusConverted || l.Status == LeadStatusExpired
}

// CanExpire reports whether the lead may transition to expired
func (l *Lead) CanExpire() bool {
	return !l.IsTerminal()
}
