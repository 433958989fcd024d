package leads

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"home-services-leads/internal/config"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/territory"
)

// ErrBadTransition is returned when a lifecycle operation does not apply
// to the lead's current status
var ErrBadTransition = errors.New("invalid lead status transition")

// GenerateRequest filters one generation run
type GenerateRequest struct {
	Trade    models.Trade
	MinScore float64 // 0 means the trade's configured threshold
	MaxLeads int     // 0 means the configured default
	ZipCodes []string
}

// Generator turns persisted scores into leads and owns lead lifecycle
// transitions
type Generator struct {
	db     *gorm.DB
	ledger *territory.Ledger
	trades config.TradesConfig
	cfg    config.LeadGenConfig
}

func NewGenerator(db *gorm.DB, ledger *territory.Ledger, trades config.TradesConfig, cfg config.LeadGenConfig) *Generator {
	return &Generator{db: db, ledger: ledger, trades: trades, cfg: cfg}
}

// Generate creates leads for every qualified property without an open
// lead for the trade. Re-running with the same inputs is idempotent:
// properties with a non-terminal lead are skipped.
func (g *Generator) Generate(req GenerateRequest) ([]models.Lead, error) {
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = g.trades.MinScoreFor(string(req.Trade))
	}
	maxLeads := req.MaxLeads
	if maxLeads <= 0 {
		maxLeads = g.cfg.DefaultMaxLeads
	}

	var scores []models.LeadScore
	q := g.db.Where("trade = ? AND intent_score >= ?", req.Trade, minScore)
	if len(req.ZipCodes) > 0 {
		q = q.Where("property_id IN (?)",
			g.db.Model(&models.Property{}).Select("prop_id").Where("zip_code IN ?", req.ZipCodes))
	}
	if err := q.Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to load qualified scores: %w", err)
	}
	if len(scores) == 0 {
		return nil, nil
	}

	// Deterministic ranking: score desc, freshest signal, then property
	// ID as the final tiebreak
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].IntentScore != scores[j].IntentScore {
			return scores[i].IntentScore > scores[j].IntentScore
		}
		ti, tj := scores[i].LatestSignalAt, scores[j].LatestSignalAt
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return scores[i].PropertyID < scores[j].PropertyID
	})

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(g.cfg.ExpiryDays) * 24 * time.Hour)

	var created []models.Lead
	err := g.db.Transaction(func(tx *gorm.DB) error {
		// Properties already holding an open lead for this trade
		var openIDs []string
		if err := tx.Model(&models.Lead{}).
			Where("trade = ? AND status IN ?", req.Trade, models.NonTerminalLeadStatuses).
			Pluck("property_id", &openIDs).Error; err != nil {
			return err
		}
		open := make(map[string]bool, len(openIDs))
		for _, id := range openIDs {
			open[id] = true
		}

		for _, score := range scores {
			if len(created) >= maxLeads {
				break
			}
			if open[score.PropertyID] {
				continue
			}

			var prop models.Property
			if err := tx.Where("prop_id = ?", score.PropertyID).First(&prop).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // score outlived its property
				}
				return err
			}

			lead := models.Lead{
				ID:           uuid.NewString(),
				PropertyID:   score.PropertyID,
				Trade:        req.Trade,
				IntentScore:  score.IntentScore,
				QualityScore: QualityScore(score.IntentScore, prop.MarketValue, score.SignalCount, prop.HasContact()),
				Status:       models.LeadStatusGenerated,
				ZipCode:      prop.ZipCode,
				MarketValue:  prop.MarketValue,
				SignalCount:  score.SignalCount,
				GeneratedAt:  now,
				ExpiresAt:    &expiresAt,
			}
			if err := tx.Create(&lead).Error; err != nil {
				return err
			}
			open[score.PropertyID] = true
			created = append(created, lead)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lead generation failed: %w", err)
	}

	logging.L().Infof("LeadGen: generated %d %s leads (min_score=%.2f)", len(created), req.Trade, minScore)
	return created, nil
}

// AssignToTerritoryHolder routes a generated lead to the active holder of
// its (ZIP, trade) key. A key with no holder is not an error; the lead
// stays generated and assigned=false comes back.
func (g *Generator) AssignToTerritoryHolder(leadID string) (*models.Lead, bool, error) {
	lead, err := g.Get(leadID)
	if err != nil {
		return nil, false, err
	}
	if lead.Status != models.LeadStatusGenerated {
		return nil, false, fmt.Errorf("%w: %s is %s", ErrBadTransition, leadID, lead.Status)
	}

	holder, err := g.ledger.GetActive(lead.ZipCode, lead.Trade)
	if err != nil {
		return nil, false, err
	}
	if holder == nil {
		return lead, false, nil
	}

	now := time.Now().UTC()
	lead.Status = models.LeadStatusAssigned
	lead.ContractorID = &holder.ContractorID
	lead.TerritoryID = &holder.ID
	lead.AssignedAt = &now
	lead.AssignedBy = "territory_ledger"
	if err := g.db.Save(lead).Error; err != nil {
		return nil, false, fmt.Errorf("failed to assign lead %s: %w", leadID, err)
	}
	return lead, true, nil
}

// Deliver marks an assigned lead as handed to its contractor. Delivery
// execution lives elsewhere; only the state is owned here.
func (g *Generator) Deliver(leadID, method string) (*models.Lead, error) {
	lead, err := g.Get(leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status != models.LeadStatusAssigned {
		return nil, fmt.Errorf("%w: %s is %s", ErrBadTransition, leadID, lead.Status)
	}
	now := time.Now().UTC()
	lead.Status = models.LeadStatusDelivered
	lead.DeliveredAt = &now
	lead.DeliveryMethod = method
	if err := g.db.Save(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to deliver lead %s: %w", leadID, err)
	}
	return lead, nil
}

// Convert records a closed deal on a delivered lead
func (g *Generator) Convert(leadID string, value *float64) (*models.Lead, error) {
	lead, err := g.Get(leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status != models.LeadStatusDelivered {
		return nil, fmt.Errorf("%w: %s is %s", ErrBadTransition, leadID, lead.Status)
	}
	now := time.Now().UTC()
	lead.Status = models.LeadStatusConverted
	lead.ConvertedAt = &now
	lead.ConversionValue = value
	if err := g.db.Save(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to convert lead %s: %w", leadID, err)
	}
	return lead, nil
}

// ExpireDue expires non-terminal leads past their expires_at. Returns the
// number transitioned.
func (g *Generator) ExpireDue(now time.Time) (int64, error) {
	res := g.db.Model(&models.Lead{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?", models.NonTerminalLeadStatuses, now).
		Updates(map[string]interface{}{"status": models.LeadStatusExpired})
	return res.RowsAffected, res.Error
}

// Get loads a lead by ID
func (g *Generator) Get(leadID string) (*models.Lead, error) {
	var lead models.Lead
	if err := g.db.Where("id = ?", leadID).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// List returns leads matching the optional filters, newest first
func (g *Generator) List(trade models.Trade, status models.LeadStatus, zipCode string, limit int) ([]models.Lead, error) {
	q := g.db.Model(&models.Lead{}).Order("generated_at DESC")
	if trade != "" {
		q = q.Where("trade = ?", trade)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if zipCode != "" {
		q = q.Where("zip_code = ?", zipCode)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Lead
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
