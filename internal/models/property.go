package models

import "time"

// Property represents a parcel in the scoring universe.
// Properties are created by the ingestion pipeline and are read-only
// to the scoring core.
type Property struct {
	PropID  string `gorm:"type:varchar(32);primaryKey" json:"prop_id"`
	Address string `gorm:"type:text" json:"address,omitempty"`
	ZipCode string `gorm:"type:varchar(10);index" json:"zip_code,omitempty"`

	// Valuation and age attributes used by the feature pipeline
	MarketValue   *float64 `gorm:"type:decimal(15,2);index" json:"market_value,omitempty"`
	YearBuilt     *int     `gorm:"type:int" json:"year_built,omitempty"`
	OwnerOccupied bool     `gorm:"type:boolean;not null;default:false" json:"owner_occupied"`

	// Parcel centroid, opaque to scoring (kept for delivery consumers)
	CentroidX *float64 `gorm:"type:decimal(12,7)" json:"centroid_x,omitempty"`
	CentroidY *float64 `gorm:"type:decimal(12,7)" json:"centroid_y,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// HasContact reports whether a lead on this property is plausibly
// reachable: an owner-occupant at a known address. The universe carries
// no phone or email fields, so this is the contact-availability proxy
// lead quality uses.
func (p *Property) HasContact() bool {
	return p.OwnerOccupied && p.Address != ""
}

// AgeYears returns the property age in fractional years as of the given time.
// Returns false when the build year is unknown.
func (p *Property) AgeYears(asOf time.Time) (float64, bool) {
	if p.YearBuilt == nil || *p.YearBuilt <= 0 {
		return 0, false
	}
	built := time.Date(*p.YearBuilt, time.January, 1, 0, 0, 0, 0, time.UTC)
	age := asOf.Sub(built).Hours() / (24 * 365.25)
	if age < 0 {
		age = 0
	}
	return age, true
}
