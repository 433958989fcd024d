package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"home-services-leads/internal/leads"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/search"
)

// LeadsHandler handles lead generation and lifecycle requests
type LeadsHandler struct {
	db        *gorm.DB
	generator *leads.Generator
	search    *search.SearchClient
}

// NewLeadsHandler creates a new leads handler. The search client may be
// nil; indexing is then skipped.
func NewLeadsHandler(db *gorm.DB, generator *leads.Generator, searchClient *search.SearchClient) *LeadsHandler {
	return &LeadsHandler{db: db, generator: generator, search: searchClient}
}

type generateRequest struct {
	Trade    string   `json:"trade" binding:"required"`
	MinScore float64  `json:"min_score"`
	MaxLeads int      `json:"max_leads"`
	ZipCodes []string `json:"zip_codes"`
}

// Generate creates leads from qualified scores
func (h *LeadsHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, ok := models.ParseTrade(req.Trade)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + req.Trade})
		return
	}

	created, err := h.generator.Generate(leads.GenerateRequest{
		Trade:    trade,
		MinScore: req.MinScore,
		MaxLeads: req.MaxLeads,
		ZipCodes: req.ZipCodes,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.indexLeads(created)

	c.JSON(http.StatusOK, gin.H{"leads": created, "count": len(created)})
}

// List returns leads matching query filters
func (h *LeadsHandler) List(c *gin.Context) {
	var trade models.Trade
	if s := c.Query("trade"); s != "" {
		t, ok := models.ParseTrade(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + s})
			return
		}
		trade = t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	out, err := h.generator.List(trade, models.LeadStatus(c.Query("status")), c.Query("zip"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out, "count": len(out)})
}

// Assign routes a lead to its ZIP's territory holder
func (h *LeadsHandler) Assign(c *gin.Context) {
	lead, assigned, err := h.generator.AssignToTerritoryHolder(c.Param("id"))
	if err != nil {
		h.leadError(c, err)
		return
	}

	if assigned {
		h.updateIndexStatus(lead)
	}

	c.JSON(http.StatusOK, gin.H{"lead": lead, "assigned": assigned})
}

type deliverRequest struct {
	Method string `json:"method"`
}

// Deliver marks an assigned lead as delivered
func (h *LeadsHandler) Deliver(c *gin.Context) {
	var req deliverRequest
	_ = c.ShouldBindJSON(&req)
	if req.Method == "" {
		req.Method = "api"
	}

	lead, err := h.generator.Deliver(c.Param("id"), req.Method)
	if err != nil {
		h.leadError(c, err)
		return
	}

	h.updateIndexStatus(lead)
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

type convertRequest struct {
	Value *float64 `json:"value"`
}

// Convert records a conversion on a delivered lead
func (h *LeadsHandler) Convert(c *gin.Context) {
	var req convertRequest
	_ = c.ShouldBindJSON(&req)

	lead, err := h.generator.Convert(c.Param("id"), req.Value)
	if err != nil {
		h.leadError(c, err)
		return
	}

	h.updateIndexStatus(lead)
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// Search queries the lead search index
func (h *LeadsHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	params := search.FilterParams{
		Query:        c.Query("q"),
		Trade:        c.Query("trade"),
		Status:       c.Query("status"),
		ContractorID: c.Query("contractor_id"),
		SortBy:       c.Query("sort"),
	}
	if zip := c.Query("zip"); zip != "" {
		params.ZipCodes = []string{zip}
	}
	if s := c.Query("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score"})
			return
		}
		params.MinScore = &v
	}
	if limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64); err == nil {
		params.Limit = limit
	}

	docs, err := h.search.FilterSearch(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": docs, "count": len(docs)})
}

func (h *LeadsHandler) leadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
	case errors.Is(err, leads.ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// indexLeads pushes freshly generated leads into the search index.
// Index failures never fail the API call.
func (h *LeadsHandler) indexLeads(created []models.Lead) {
	if h.search == nil || len(created) == 0 {
		return
	}

	docs := make([]search.LeadDocument, 0, len(created))
	for i := range created {
		var prop models.Property
		address := ""
		if err := h.db.Where("prop_id = ?", created[i].PropertyID).First(&prop).Error; err == nil {
			address = prop.Address
		}
		docs = append(docs, search.NewLeadDocument(&created[i], address))
	}
	if err := h.search.IndexLeads(docs); err != nil {
		logging.L().Warnf("Leads: failed to index %d leads: %v", len(docs), err)
	}
}

func (h *LeadsHandler) updateIndexStatus(lead *models.Lead) {
	if h.search == nil {
		return
	}
	contractorID := ""
	if lead.ContractorID != nil {
		contractorID = *lead.ContractorID
	}
	if err := h.search.UpdateLeadStatus(lead.ID, lead.Status, contractorID); err != nil {
		logging.L().Warnf("Leads: failed to update index for %s: %v", lead.ID, err)
	}
}
