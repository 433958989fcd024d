package search

import (
	"github.com/meilisearch/meilisearch-go"

	"home-services-leads/internal/models"
)

// LeadDocument is the indexed shape of a lead, flattened for the
// delivery dashboards that query the index
type LeadDocument struct {
	ID           string   `json:"id"`
	PropertyID   string   `json:"property_id"`
	Address      string   `json:"address,omitempty"`
	ZipCode      string   `json:"zip_code"`
	Trade        string   `json:"trade"`
	Status       string   `json:"status"`
	IntentScore  float64  `json:"intent_score"`
	QualityScore float64  `json:"quality_score"`
	MarketValue  *float64 `json:"market_value,omitempty"`
	SignalCount  int      `json:"signal_count"`
	ContractorID string   `json:"contractor_id,omitempty"`
	GeneratedAt  int64    `json:"generated_at"` // unix seconds, sortable
}

// NewLeadDocument flattens a lead and its property address into the
// indexed form
func NewLeadDocument(lead *models.Lead, address string) LeadDocument {
	doc := LeadDocument{
		ID:           lead.ID,
		PropertyID:   lead.PropertyID,
		Address:      address,
		ZipCode:      lead.ZipCode,
		Trade:        string(lead.Trade),
		Status:       string(lead.Status),
		IntentScore:  lead.IntentScore,
		QualityScore: lead.QualityScore,
		MarketValue:  lead.MarketValue,
		SignalCount:  lead.SignalCount,
		GeneratedAt:  lead.GeneratedAt.Unix(),
	}
	if lead.ContractorID != nil {
		doc.ContractorID = *lead.ContractorID
	}
	return doc
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "leads",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"address",
		"zip_code",
		"property_id",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"trade",
		"status",
		"zip_code",
		"intent_score",
		"quality_score",
		"contractor_id",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"intent_score",
		"quality_score",
		"generated_at",
	})
	return err
}

// IndexLead indexes a single lead
func (s *SearchClient) IndexLead(doc LeadDocument) error {
	_, err := s.client.Index(s.index).AddDocuments([]LeadDocument{doc})
	return err
}

// IndexLeads indexes a batch of leads
func (s *SearchClient) IndexLeads(docs []LeadDocument) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// UpdateLeadStatus patches a lead's status in the index after a
// lifecycle transition
func (s *SearchClient) UpdateLeadStatus(leadID string, status models.LeadStatus, contractorID string) error {
	doc := map[string]interface{}{
		"id":     leadID,
		"status": string(status),
	}
	if contractorID != "" {
		doc["contractor_id"] = contractorID
	}
	_, err := s.client.Index(s.index).UpdateDocuments([]map[string]interface{}{doc})
	return err
}

// DeleteLead removes a lead from the index
func (s *SearchClient) DeleteLead(leadID string) error {
	_, err := s.client.Index(s.index).DeleteDocument(leadID)
	return err
}
