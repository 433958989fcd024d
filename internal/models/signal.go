package models

import "time"

// SignalVariant identifies the source event type of a signal
type SignalVariant string

const (
	SignalViolation      SignalVariant = "violation"
	SignalStormEvent     SignalVariant = "storm_event"
	SignalServiceRequest SignalVariant = "service_request"
	SignalDeedRecord     SignalVariant = "deed_record"
)

// SignalVariants lists all recognized variants
var SignalVariants = []SignalVariant{
	SignalViolation,
	SignalStormEvent,
	SignalServiceRequest,
	SignalDeedRecord,
}

// Signal is a timestamped, typed event linked to a property by the
// upstream address-matching collaborator. Immutable once linked.
type Signal struct {
	ID      int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Variant SignalVariant `gorm:"type:varchar(30);not null;uniqueIndex:idx_signal_natural,priority:1;index:idx_signal_variant" json:"variant"`

	// NaturalID is the source system's identifier (violation ID, NOAA event
	// ID, 311 case number, deed number)
	NaturalID string `gorm:"type:varchar(100);not null;uniqueIndex:idx_signal_natural,priority:2" json:"natural_id"`

	// PropertyID is nil until the linkage collaborator resolves the address
	PropertyID     *string `gorm:"type:varchar(32);index" json:"property_id,omitempty"`
	LinkConfidence float64 `gorm:"type:decimal(4,3);not null;default:0" json:"link_confidence"`

	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`

	// Magnitude is variant-specific: hail diameter (inches), wind speed
	// (mph), severity code. Zero when the source reports none.
	Magnitude     float64 `gorm:"type:decimal(10,3);not null;default:0" json:"magnitude"`
	MagnitudeUnit string  `gorm:"type:varchar(20)" json:"magnitude_unit,omitempty"`

	// Category and Description carry the source classification used by
	// trade-specific keyword matching (e.g. "roof", "heating")
	Category    string `gorm:"type:varchar(100);index" json:"category,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	ZipCode string `gorm:"type:varchar(10);index" json:"zip_code,omitempty"`
	Source  string `gorm:"type:varchar(50);not null" json:"source"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Signal) TableName() string {
	return "signals"
}

// IsLinked reports whether the signal has been resolved to a property
func (s *Signal) IsLinked() bool {
	return s.PropertyID != nil && *s.PropertyID != ""
}

// AgeDays returns the signal age in fractional days as of the given time.
// Negative values mean the signal is future-dated.
func (s *Signal) AgeDays(asOf time.Time) float64 {
	return asOf.Sub(s.OccurredAt).Hours() / 24
}

// HailMagnitude returns the reported hail diameter in inches, and whether
// the storm signal carries one. NOAA feeds abbreviate the unit
// inconsistently ("in" vs "inches").
func (s *Signal) HailMagnitude() (float64, bool) {
	if s.Variant != SignalStormEvent {
		return 0, false
	}
	switch s.MagnitudeUnit {
	case "in", "inches":
		return s.Magnitude, true
	}
	return 0, false
}

// WindMagnitude returns the reported wind speed in mph, and whether the
// storm signal carries one
func (s *Signal) WindMagnitude() (float64, bool) {
	if s.Variant != SignalStormEvent || s.MagnitudeUnit != "mph" {
		return 0, false
	}
	return s.Magnitude, true
}
