package cleanup

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"home-services-leads/internal/leads"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/territory"
)

// Service expires stale leads and territories and prunes settled queue
// rows. Expiry is a status transition; physical deletion only ever
// touches terminal leads past retention and completed queue items.
type Service struct {
	db     *gorm.DB
	leads  *leads.Generator
	ledger *territory.Ledger
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, gen *leads.Generator, ledger *territory.Ledger) *Service {
	return &Service{db: db, leads: gen, ledger: ledger}
}

// Config holds configuration for one cleanup run
type Config struct {
	LeadRetentionDays  int  // Days to keep terminal leads before physical deletion
	QueueRetentionDays int  // Days to keep settled queue rows
	MaxDeletionCount   int  // Safety limit per run
	DryRun             bool // Log what would happen without doing it
}

// DefaultConfig returns default cleanup configuration
func DefaultConfig() Config {
	return Config{
		LeadRetentionDays:  90,
		QueueRetentionDays: 14,
		MaxDeletionCount:   10000,
		DryRun:             false,
	}
}

// Result holds the outcome of a cleanup run
type Result struct {
	LeadsExpired        int64     `json:"leads_expired"`
	TerritoriesExpired  int64     `json:"territories_expired"`
	LeadsDeleted        int64     `json:"leads_deleted"`
	QueueRowsDeleted    int64     `json:"queue_rows_deleted"`
	DryRun              bool      `json:"dry_run"`
	ExecutedAt          time.Time `json:"executed_at"`
	Errors              []string  `json:"errors,omitempty"`
}

// Run executes one cleanup pass
func (s *Service) Run(cfg Config) (*Result, error) {
	now := time.Now().UTC()
	result := &Result{DryRun: cfg.DryRun, ExecutedAt: now}

	if cfg.DryRun {
		return s.dryRun(cfg, now, result)
	}

	var err error
	if result.LeadsExpired, err = s.leads.ExpireDue(now); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("lead expiry: %v", err))
	}
	if result.TerritoriesExpired, err = s.ledger.ExpireDue(now); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("territory expiry: %v", err))
	}

	leadCutoff := now.AddDate(0, 0, -cfg.LeadRetentionDays)
	deletable, err := s.countDeletableLeads(leadCutoff)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("lead retention count: %v", err))
	} else if deletable > int64(cfg.MaxDeletionCount) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("safety check failed: %d leads exceed deletion limit of %d", deletable, cfg.MaxDeletionCount))
	} else if deletable > 0 {
		res := s.db.Where("status IN ? AND updated_at < ?", terminalLeadStatuses(), leadCutoff).
			Delete(&models.Lead{})
		if res.Error != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("lead deletion: %v", res.Error))
		}
		result.LeadsDeleted = res.RowsAffected
	}

	queueCutoff := now.AddDate(0, 0, -cfg.QueueRetentionDays)
	res := s.db.Where("status IN ? AND completed_at IS NOT NULL AND completed_at < ?",
		settledQueueStatuses(), queueCutoff).
		Delete(&models.ScoreRefreshQueue{})
	if res.Error != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("queue pruning: %v", res.Error))
	}
	result.QueueRowsDeleted = res.RowsAffected

	logging.L().Infof("Cleanup: expired %d leads, %d territories; deleted %d leads, %d queue rows",
		result.LeadsExpired, result.TerritoriesExpired, result.LeadsDeleted, result.QueueRowsDeleted)
	return result, nil
}

// dryRun reports what a real run would do
func (s *Service) dryRun(cfg Config, now time.Time, result *Result) (*Result, error) {
	var n int64
	s.db.Model(&models.Lead{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?", models.NonTerminalLeadStatuses, now).
		Count(&n)
	result.LeadsExpired = n

	s.db.Model(&models.Territory{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.TerritoryStatusActive, now).
		Count(&n)
	result.TerritoriesExpired = n

	deletable, err := s.countDeletableLeads(now.AddDate(0, 0, -cfg.LeadRetentionDays))
	if err == nil {
		result.LeadsDeleted = deletable
	}

	s.db.Model(&models.ScoreRefreshQueue{}).
		Where("status IN ? AND completed_at IS NOT NULL AND completed_at < ?",
			settledQueueStatuses(), now.AddDate(0, 0, -cfg.QueueRetentionDays)).
		Count(&n)
	result.QueueRowsDeleted = n

	logging.L().Infof("Cleanup (dry-run): would expire %d leads, %d territories; delete %d leads, %d queue rows",
		result.LeadsExpired, result.TerritoriesExpired, result.LeadsDeleted, result.QueueRowsDeleted)
	return result, nil
}

func (s *Service) countDeletableLeads(cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&models.Lead{}).
		Where("status IN ? AND updated_at < ?", terminalLeadStatuses(), cutoff).
		Count(&n).Error
	return n, err
}

func terminalLeadStatuses() []models.LeadStatus {
	return []models.LeadStatus{models.LeadStatusConverted, models.LeadStatusExpired}
}

func settledQueueStatuses() []string {
	return []string{models.RescoreStatusDone, models.RescoreStatusFailed, models.RescoreStatusPermanentFail}
}
