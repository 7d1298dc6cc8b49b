package models

import "lec-market/internal/config"

// SimulationRequest represents the request body for running a simulation
type SimulationRequest struct {
	Config  config.Config     `json:"config" binding:"required"`
	Options SimulationOptions `json:"options,omitempty"`
}

// SimulationOptions contains optional run parameters
type SimulationOptions struct {
	MaxPeriods      int  `json:"max_periods,omitempty"`      // 0 = full horizon
	IncludeRecords  bool `json:"include_records,omitempty"`  // default: false
	IncludeClearing bool `json:"include_clearing,omitempty"` // default: false
}

// RecordsQuery pages through a cached run's record stream
type RecordsQuery struct {
	Offset  int    `form:"offset"`
	Limit   int    `form:"limit"` // default: 1000
	AgentID string `form:"agent_id"`
}

// RankQuery selects the ranking key
type RankQuery struct {
	By    string `form:"by"`    // "balance" (default) or "savings"
	Limit int    `form:"limit"` // 0 = all
}
