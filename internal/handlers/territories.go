package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"home-services-leads/internal/models"
	"home-services-leads/internal/territory"
)

// TerritoriesHandler handles territory and contractor requests
type TerritoriesHandler struct {
	db     *gorm.DB
	ledger *territory.Ledger
}

// NewTerritoriesHandler creates a new territories handler
func NewTerritoriesHandler(db *gorm.DB, ledger *territory.Ledger) *TerritoriesHandler {
	return &TerritoriesHandler{db: db, ledger: ledger}
}

type assignTerritoryRequest struct {
	ContractorID string     `json:"contractor_id" binding:"required"`
	ZipCode      string     `json:"zip_code" binding:"required"`
	Trade        string     `json:"trade" binding:"required"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Assign grants an exclusive territory. A taken key returns 409.
func (h *TerritoriesHandler) Assign(c *gin.Context) {
	var req assignTerritoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, ok := models.ParseTrade(req.Trade)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + req.Trade})
		return
	}

	t, err := h.ledger.Assign(req.ContractorID, req.ZipCode, trade, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, territory.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, territory.ErrContractorIneligible):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"territory": t})
}

// List returns territories matching query filters
func (h *TerritoriesHandler) List(c *gin.Context) {
	var trade models.Trade
	if s := c.Query("trade"); s != "" {
		t, ok := models.ParseTrade(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + s})
			return
		}
		trade = t
	}

	out, err := h.ledger.List(c.Query("zip"), trade, models.TerritoryStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"territories": out, "count": len(out)})
}

// Revoke releases a territory
func (h *TerritoriesHandler) Revoke(c *gin.Context) {
	t, err := h.ledger.Revoke(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "territory not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"territory": t})
}

type createContractorRequest struct {
	CompanyName      string   `json:"company_name" binding:"required"`
	ContactName      string   `json:"contact_name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Trades           []string `json:"trades" binding:"required"`
	SubscriptionTier string   `json:"subscription_tier"`
}

// CreateContractor registers a contractor customer
func (h *TerritoriesHandler) CreateContractor(c *gin.Context) {
	var req createContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades := ""
	for i, name := range req.Trades {
		t, ok := models.ParseTrade(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + name})
			return
		}
		if i > 0 {
			trades += ","
		}
		trades += string(t)
	}

	tier := req.SubscriptionTier
	if tier == "" {
		tier = "starter"
	}

	contractor := models.Contractor{
		ID:               uuid.NewString(),
		CompanyName:      req.CompanyName,
		ContactName:      req.ContactName,
		Email:            req.Email,
		Phone:            req.Phone,
		Trades:           trades,
		SubscriptionTier: tier,
		Status:           "active",
	}
	if err := h.db.Create(&contractor).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contractor": contractor})
}
