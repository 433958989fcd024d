package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"home-services-leads/internal/models"
	"home-services-leads/internal/scores"
	"home-services-leads/internal/scoring"
)

// ScoringHandler handles on-demand scoring requests
type ScoringHandler struct {
	scores *scores.Service
}

// NewScoringHandler creates a new scoring handler
func NewScoringHandler(scoreService *scores.Service) *ScoringHandler {
	return &ScoringHandler{scores: scoreService}
}

type scoreRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	Trade      string `json:"trade" binding:"required"`
}

// ScoreProperty scores a single (property, trade) on demand
func (h *ScoringHandler) ScoreProperty(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, ok := models.ParseTrade(req.Trade)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + req.Trade})
		return
	}

	res, err := h.scores.ScoreProperty(c.Request.Context(), req.PropertyID, trade, time.Now().UTC())
	if err != nil {
		if errors.Is(err, scores.ErrPropertyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, scoring.ErrUnknownTrade) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

type batchScoreRequest struct {
	PropertyIDs []string `json:"property_ids" binding:"required"`
	Trade       string   `json:"trade" binding:"required"`
}

// ScoreBatch scores many properties for one trade
func (h *ScoringHandler) ScoreBatch(c *gin.Context) {
	var req batchScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.PropertyIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "property_ids must not be empty"})
		return
	}

	trade, ok := models.ParseTrade(req.Trade)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trade: " + req.Trade})
		return
	}

	results, itemErrs, err := h.scores.ScoreBatch(c.Request.Context(), req.PropertyIDs, trade, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	errMsgs := make([]string, 0, len(itemErrs))
	for _, e := range itemErrs {
		errMsgs = append(errMsgs, e.Error())
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"errors":  errMsgs,
		"scored":  len(results),
	})
}

// GetScores lists persisted latest scores for a trade
func (h *ScoringHandler) GetScores(c *gin.Context) {
	trade, ok := models.ParseTrade(c.Query("trade"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trade query parameter is required"})
		return
	}

	minScore := 0.0
	if s := c.Query("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score"})
			return
		}
		minScore = v
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := h.scores.Latest(trade, minScore, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scores": rows, "count": len(rows)})
}
