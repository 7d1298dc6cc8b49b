package agent

import (
	"errors"
	"fmt"
	"math"

	"lec-market/internal/model"
)

const (
	DefaultLookback            = 24 * 7
	DefaultChargePercentile    = 20
	DefaultDischargePercentile = 80
)

// StorageParams configures a storage agent.
type StorageParams struct {
	ID   string
	Unit model.Storage
	// Lookback is the number of past periods of grid prices kept.
	Lookback            int
	ChargePercentile    float64
	DischargePercentile float64
	// Policy overrides the percentile policy built from the fields above.
	Policy Policy
}

// Storage charges when the grid price is low relative to its recent history
// and discharges when it is high. It trades electricity only.
type Storage struct {
	base
	unit     model.Storage
	lookback int
	policy   Policy
	history  []float64
}

func NewStorage(p StorageParams) (*Storage, error) {
	if p.ID == "" {
		return nil, errors.New("storage id is required")
	}
	if err := p.Unit.Validate(); err != nil {
		return nil, fmt.Errorf("storage %s: %w", p.ID, err)
	}
	if p.Lookback <= 0 {
		p.Lookback = DefaultLookback
	}
	policy := p.Policy
	if policy == nil {
		if p.ChargePercentile == 0 && p.DischargePercentile == 0 {
			p.ChargePercentile = DefaultChargePercentile
			p.DischargePercentile = DefaultDischargePercentile
		}
		if p.ChargePercentile < 0 || p.DischargePercentile > 100 || p.ChargePercentile > p.DischargePercentile {
			return nil, fmt.Errorf("storage %s: percentiles must satisfy 0<=charge<=discharge<=100", p.ID)
		}
		policy = PercentilePolicy{ChargePercentile: p.ChargePercentile, DischargePercentile: p.DischargePercentile}
	}
	return &Storage{
		base:     base{id: p.ID, capability: StorageUnit},
		unit:     p.Unit,
		lookback: p.Lookback,
		policy:   policy,
	}, nil
}

func (s *Storage) Resources() []model.Resource { return []model.Resource{model.Electricity} }

func (s *Storage) Storage() model.Storage { return s.unit }

func (s *Storage) Policy() Policy { return s.policy }

// Forecast returns the requested change in position: negative = energy the
// unit wants to charge, positive = energy it wants to discharge. Requests are
// rate-limited here and bounded by SOC in MakeBids.
func (s *Storage) Forecast(p Period) Forecast {
	params := s.unit.Params
	switch s.policy.Decide(p, s.history) {
	case model.ActionCharging:
		return Forecast{model.Electricity: -params.CapacityKWh * params.ChargeRate}
	case model.ActionDischarging:
		return Forecast{model.Electricity: params.CapacityKWh * params.DischargeRate}
	default:
		return Forecast{model.Electricity: 0}
	}
}

// MakeBids bounds the request by min(requested, capacity-SOC) when charging
// and min(requested, SOC*efficiency) when discharging.
func (s *Storage) MakeBids(p Period, f Forecast) ([]model.Bid, error) {
	set := newBidSet(s.id, p.Index)
	want := f[model.Electricity]
	if want == 0 {
		return set.result()
	}
	g, ok := p.Price(model.Electricity)
	if !ok {
		set.errs = append(set.errs, &model.BidValidationError{
			AgentID: s.id, Resource: model.Electricity, Period: p.Index, Reason: "no grid price for resource",
		})
		return set.result()
	}
	switch {
	case math.IsNaN(want):
		set.add(model.Electricity, model.Buy, want, g.BuyPrice)
	case want < 0:
		set.add(model.Electricity, model.Buy, s.unit.BoundCharge(-want), g.BuyPrice)
	default:
		set.add(model.Electricity, model.Sell, s.unit.BoundDischarge(want), g.SellPrice)
	}
	return set.result()
}

// ApplySettlement takes the storage value computed by the ledger and
// records this period's grid price in the lookback window.
func (s *Storage) ApplySettlement(d Delta) {
	s.applyCash(d)
	if d.Storage != nil {
		s.unit = *d.Storage
	}
	if g, ok := d.Grid[model.Electricity]; ok {
		s.history = append(s.history, g.BuyPrice)
		if len(s.history) > s.lookback {
			s.history = s.history[len(s.history)-s.lookback:]
		}
	}
}
