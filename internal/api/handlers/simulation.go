package handlers

import (
	"errors"
	"net/http"
	"strings"

	"lec-market/internal/analysis"
	"lec-market/internal/api/models"
	"lec-market/internal/data"
	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultRecordsLimit = 1000

// SimulationHandler handles simulation-related requests
type SimulationHandler struct {
	cache  *data.RunCache
	logger *zap.Logger
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(cache *data.RunCache, logger *zap.Logger) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{cache: cache, logger: logger}
}

// RunSimulation handles POST /api/v1/simulations
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req models.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	cfg := req.Config
	// Requests must be self-contained; the server never reads files on a
	// client's behalf.
	if refs := cfg.FileRefs(); len(refs) > 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "FILE_REFERENCE_NOT_ALLOWED",
				Message: "inline the referenced data: " + strings.Join(refs, ", "),
			},
		})
		return
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		configError(c, err)
		return
	}
	sc, err := cfg.Build()
	if err != nil {
		configError(c, err)
		return
	}

	runner, err := simulation.New(sc, simulation.Options{
		MaxPeriods: req.Options.MaxPeriods,
		Workers:    cfg.Workers,
	}, h.logger, nil)
	if err != nil {
		configError(c, err)
		return
	}

	result, err := runner.Run(c.Request.Context())
	if err != nil {
		details := map[string]interface{}{}
		if result != nil {
			details["completed_periods"] = result.Periods
		}
		var pe *simulation.PeriodError
		if errors.As(err, &pe) {
			details["period"] = pe.Period
		}
		h.logger.Error("simulation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "SIMULATION_ERROR",
				Message: err.Error(),
				Details: details,
			},
		})
		return
	}

	run := h.cache.Put(result, sc.Grid.Schedule())
	resp := models.SimulationResponse{
		ID:      run.ID,
		Status:  "completed",
		Summary: buildSummary(run),
	}
	if req.Options.IncludeRecords {
		resp.Records = result.Records
	}
	if req.Options.IncludeClearing {
		resp.Clearing = result.Clearing
	}
	c.JSON(http.StatusOK, resp)
}

// GetSimulation handles GET /api/v1/simulations/:id
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.SimulationResponse{
		ID:      run.ID,
		Status:  "completed",
		Summary: buildSummary(run),
	})
}

// GetRecords handles GET /api/v1/simulations/:id/records
func (h *SimulationHandler) GetRecords(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	var q models.RecordsQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.Offset < 0 || q.Limit < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_QUERY",
				Message: "offset and limit must be non-negative integers",
			},
		})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultRecordsLimit
	}

	records := run.Result.Records
	if q.AgentID != "" {
		filtered := make([]simulation.Record, 0)
		for _, r := range records {
			if r.AgentID == q.AgentID {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	total := len(records)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	c.JSON(http.StatusOK, models.RecordsResponse{
		ID:      run.ID,
		Total:   total,
		Offset:  start,
		Limit:   q.Limit,
		Records: records[start:end],
	})
}

// GetClearing handles GET /api/v1/simulations/:id/clearing
func (h *SimulationHandler) GetClearing(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": run.ID, "clearing": run.Result.Clearing})
}

// DeleteSimulation handles DELETE /api/v1/simulations/:id
func (h *SimulationHandler) DeleteSimulation(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	h.cache.Delete(run.ID)
	c.Status(http.StatusNoContent)
}

func (h *SimulationHandler) lookup(c *gin.Context) (*data.Run, bool) {
	return lookupRun(c, h.cache)
}

func lookupRun(c *gin.Context, cache *data.RunCache) (*data.Run, bool) {
	id := c.Param("id")
	run, ok := cache.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "simulation " + id + " not found or expired",
			},
		})
		return nil, false
	}
	return run, true
}

func configError(c *gin.Context, err error) {
	detail := models.ErrorDetail{Code: "INVALID_CONFIG", Message: err.Error()}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Field != "" {
		detail.Details = map[string]interface{}{"field": cfgErr.Field}
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: detail})
}

func buildSummary(run *data.Run) models.SimulationSummary {
	res := run.Result
	s := analysis.Summarize(res, run.Grid)
	out := models.SimulationSummary{
		CreatedAt:        run.CreatedAt,
		Periods:          s.Periods,
		CommunityBalance: s.CommunityBalance,
		Agents:           s.Agents,
		Resources:        s.Resources,
		FinalSOC:         res.FinalSOC,
	}
	for _, p := range res.Summaries {
		out.DroppedBids += p.Dropped
		out.StorageViolations += p.Violations
	}
	return out
}
