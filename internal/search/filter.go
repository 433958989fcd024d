package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

type FilterParams struct {
	Query        string
	Trade        string
	Status       string
	ZipCodes     []string
	MinScore     *float64
	MaxScore     *float64
	ContractorID string
	SortBy       string
	Limit        int64
}

// FilterSearch queries the lead index with structured filters
func (s *SearchClient) FilterSearch(params FilterParams) ([]LeadDocument, error) {
	var filters []string

	if params.Trade != "" {
		filters = append(filters, fmt.Sprintf("trade = '%s'", params.Trade))
	}
	if params.Status != "" {
		filters = append(filters, fmt.Sprintf("status = '%s'", params.Status))
	}
	if len(params.ZipCodes) > 0 {
		zipFilters := make([]string, len(params.ZipCodes))
		for i, zip := range params.ZipCodes {
			zipFilters[i] = fmt.Sprintf("zip_code = '%s'", zip)
		}
		filters = append(filters, fmt.Sprintf("(%s)", strings.Join(zipFilters, " OR ")))
	}
	if params.MinScore != nil {
		filters = append(filters, fmt.Sprintf("intent_score >= %f", *params.MinScore))
	}
	if params.MaxScore != nil {
		filters = append(filters, fmt.Sprintf("intent_score <= %f", *params.MaxScore))
	}
	if params.ContractorID != "" {
		filters = append(filters, fmt.Sprintf("contractor_id = '%s'", params.ContractorID))
	}

	var filterStr string
	if len(filters) > 0 {
		filterStr = strings.Join(filters, " AND ")
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = "intent_score:desc"
	}

	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit: params.Limit,
		Sort:  []string{sortBy},
	}
	if filterStr != "" {
		searchReq.Filter = filterStr
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	var docs []LeadDocument
	for _, hit := range searchRes.Hits {
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc LeadDocument
		if err := json.Unmarshal(hitJSON, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
