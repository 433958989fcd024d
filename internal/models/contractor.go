package models

import (
	"strings"
	"time"
)

// Contractor represents a contractor customer holding territories
type Contractor struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyName string `gorm:"type:varchar(255);not null;index" json:"company_name"`
	ContactName string `gorm:"type:varchar(255)" json:"contact_name,omitempty"`
	Email       string `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone       string `gorm:"type:varchar(50)" json:"phone,omitempty"`

	// Trades is a comma-separated list (roofing,hvac)
	Trades string `gorm:"type:varchar(255);not null" json:"trades"`

	// SubscriptionTier affects lead eligibility, never scoring
	SubscriptionTier string `gorm:"type:varchar(50);not null;default:'starter'" json:"subscription_tier"` // starter, growth, pro, scale

	Status    string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // active, paused, cancelled
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for GORM
func (Contractor) TableName() string {
	return "contractors"
}

// ServesTrade reports whether the contractor services the given trade
func (c *Contractor) ServesTrade(trade Trade) bool {
	for _, t := range strings.Split(c.Trades, ",") {
		if Trade(strings.ToLower(strings.TrimSpace(t))) == trade {
			return true
		}
	}
	return false
}

// IsActive reports whether the contractor can receive leads
func (c *Contractor) IsActive() bool {
	return c.Status == "active"
}

// TerritoryStatus is a territory's lifecycle state
type TerritoryStatus string

const (
	TerritoryStatusActive  TerritoryStatus = "active"
	TerritoryStatusRevoked TerritoryStatus = "revoked"
	TerritoryStatusExpired TerritoryStatus = "expired"
)

// Territory is an exclusive binding of a contractor to a (ZIP, trade) key.
// At most one active row may exist per key; the ledger enforces this with
// a partial unique index on (zip_code, trade) restricted to active rows.
type Territory struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ContractorID string `gorm:"type:varchar(36);not null;index" json:"contractor_id"`
	ZipCode      string `gorm:"type:varchar(10);not null;index:idx_territory_key,priority:1" json:"zip_code"`
	Trade        Trade  `gorm:"type:varchar(20);not null;index:idx_territory_key,priority:2" json:"trade"`

	Status TerritoryStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	AssignedAt time.Time  `gorm:"not null;autoCreateTime" json:"assigned_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Territory) TableName() string {
	return "territories"
}

// IsActive reports whether the territory currently holds the key
func (t *Territory) IsActive() bool {
	return t.Status == TerritoryStatusActive
}
