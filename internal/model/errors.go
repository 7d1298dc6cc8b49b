package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBid       = errors.New("invalid bid")
	ErrMissingGridPrice = errors.New("missing grid price")
	ErrInfeasibleMarket = errors.New("infeasible market")
)

// ConfigurationError is fatal and is raised before a run starts.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// BidValidationError describes a bid that was dropped at construction.
type BidValidationError struct {
	AgentID  string
	Resource Resource
	Period   int
	Reason   string
}

func (e *BidValidationError) Error() string {
	return fmt.Sprintf("bid from %s for %s in period %d: %s", e.AgentID, e.Resource, e.Period, e.Reason)
}

func (e *BidValidationError) Unwrap() error { return ErrInvalidBid }

// StorageConstraintViolation records a charge/discharge that had to be
// clipped to the feasible bound. It is informational, never fatal.
type StorageConstraintViolation struct {
	AgentID   string
	Period    int
	Requested float64 // signed SOC change, kWh
	Applied   float64 // signed SOC change after clipping, kWh
}

func (e *StorageConstraintViolation) Error() string {
	return fmt.Sprintf("storage %s in period %d: requested SOC change %.6f clipped to %.6f",
		e.AgentID, e.Period, e.Requested, e.Applied)
}

// InfeasibleMarketError aborts a run. GridProxy absorbs every residual, so
// seeing one of these means an internal invariant was broken.
type InfeasibleMarketError struct {
	Period   int
	Resource Resource
	Reason   string
}

func (e *InfeasibleMarketError) Error() string {
	return fmt.Sprintf("infeasible market for %s in period %d: %s", e.Resource, e.Period, e.Reason)
}

func (e *InfeasibleMarketError) Unwrap() error { return ErrInfeasibleMarket }
