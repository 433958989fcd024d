package models

import "time"

// ScoreRefreshQueue holds pending (property, trade) rescore work.
// The scheduler enqueues rows and the queue worker drains them; deferring
// work here keeps API calls fast and bounds scoring bursts.
type ScoreRefreshQueue struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID string `gorm:"type:varchar(32);not null;index:idx_rescore_lookup,priority:1" json:"property_id"`
	Trade      Trade  `gorm:"type:varchar(20);not null;index:idx_rescore_lookup,priority:2" json:"trade"`

	Status   string `gorm:"type:varchar(20);not null;default:'pending';index:idx_rescore_status" json:"status"` // pending, processing, done, failed
	Priority int    `gorm:"default:0;index:idx_rescore_priority" json:"priority"`                               // Higher = process first

	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt *time.Time `gorm:"index:idx_rescore_retry" json:"next_retry_at,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (ScoreRefreshQueue) TableName() string {
	return "score_refresh_queue"
}

// Queue status constants
const (
	RescoreStatusPending       = "pending"
	RescoreStatusProcessing    = "processing"
	RescoreStatusDone          = "done"
	RescoreStatusFailed        = "failed"
	RescoreStatusPermanentFail = "permanent_fail" // unknown trade or vanished property
)

// MaxRescoreAttempts before marking an item permanently failed
const MaxRescoreAttempts = 5

// NextRescoreRetryDelay calculates exponential backoff for rescore retries
func NextRescoreRetryDelay(attempts int) time.Duration {
	// 1min, 5min, 15min, 1h, 4h
	delays := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		1 * time.Hour,
		4 * time.Hour,
	}

	if attempts >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempts]
}
