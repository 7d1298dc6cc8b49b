package models

import (
	"time"

	"lec-market/internal/analysis"
	"lec-market/internal/config"
	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"github.com/shopspring/decimal"
)

// SimulationResponse represents the response from a simulation run
type SimulationResponse struct {
	ID       string                 `json:"id,omitempty"`
	Status   string                 `json:"status"`
	Summary  SimulationSummary      `json:"summary"`
	Records  []simulation.Record    `json:"records,omitempty"`
	Clearing []model.ClearingResult `json:"clearing,omitempty"`
}

// SimulationSummary contains aggregated run results
type SimulationSummary struct {
	CreatedAt         time.Time                  `json:"created_at"`
	Periods           int                        `json:"periods"`
	CommunityBalance  decimal.Decimal            `json:"community_balance"`
	Agents            []analysis.AgentSummary    `json:"agents"`
	Resources         []analysis.ResourceSummary `json:"resources"`
	FinalSOC          map[string]float64         `json:"final_soc,omitempty"`
	DroppedBids       int                        `json:"dropped_bids"`
	StorageViolations int                        `json:"storage_violations"`
}

// RecordsResponse is one page of a run's record stream
type RecordsResponse struct {
	ID      string              `json:"id"`
	Total   int                 `json:"total"`
	Offset  int                 `json:"offset"`
	Limit   int                 `json:"limit"`
	Records []simulation.Record `json:"records"`
}

// RankResponse represents the response from ranking agents
type RankResponse struct {
	ID       string                 `json:"id"`
	By       string                 `json:"by"`
	Rankings []analysis.RankedAgent `json:"rankings"`
}

// AgentTypeInfo represents information about a configurable agent type
type AgentTypeInfo struct {
	Type         string          `json:"type"`
	Description  string          `json:"description"`
	Capabilities []string        `json:"capabilities"`
	Parameters   []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes an agent parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string", "bool", "object"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StoragePreset is a named set of storage parameters
type StoragePreset struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Storage config.StorageConfig `json:"storage"`
}
