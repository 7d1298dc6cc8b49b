package handlers

import (
	"net/http"

	"lec-market/internal/analysis"
	"lec-market/internal/api/models"
	"lec-market/internal/data"

	"github.com/gin-gonic/gin"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	cache *data.RunCache
}

// NewRankHandler creates a new rank handler
func NewRankHandler(cache *data.RunCache) *RankHandler {
	return &RankHandler{cache: cache}
}

// RankAgents handles GET /api/v1/simulations/:id/rank
func (h *RankHandler) RankAgents(c *gin.Context) {
	run, ok := lookupRun(c, h.cache)
	if !ok {
		return
	}
	var req models.RankQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	if req.By == "" {
		req.By = "balance"
	}

	agents := analysis.Summarize(run.Result, run.Grid).Agents
	var ranked []analysis.RankedAgent
	switch req.By {
	case "balance":
		ranked = analysis.RankByBalance(agents)
	case "savings":
		ranked = analysis.RankBySavings(agents)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "by must be one of: balance, savings",
			},
		})
		return
	}
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}

	c.JSON(http.StatusOK, models.RankResponse{ID: run.ID, By: req.By, Rankings: ranked})
}
