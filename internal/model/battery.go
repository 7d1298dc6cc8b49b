package model

import (
	"errors"
	"math"
)

// StorageParams defines the physical parameters of a storage unit.
// Units:
// - CapacityKWh: kWh
// - Charge/DischargeRate: fraction of capacity movable in one period
// - Efficiencies: 0..1, applied at settlement
type StorageParams struct {
	CapacityKWh         float64
	ChargeRate          float64
	DischargeRate       float64
	ChargeEfficiency    float64
	DischargeEfficiency float64
}

// StorageState captures mutable state.
type StorageState struct {
	// SOC is the stored energy in kWh, in [0, CapacityKWh].
	SOC float64
}

// Storage bundles params + state. Only the settlement ledger computes a new
// state; agents hold the value it hands back.
type Storage struct {
	Params StorageParams
	State  StorageState
}

func NewStorage(params StorageParams, initialSOC float64) (Storage, error) {
	s := Storage{Params: params, State: StorageState{SOC: initialSOC}}
	if err := s.Validate(); err != nil {
		return Storage{}, err
	}
	return s, nil
}

func (s Storage) Validate() error {
	p := s.Params
	if p.CapacityKWh <= 0 || math.IsInf(p.CapacityKWh, 0) {
		return errors.New("capacity_kwh must be > 0")
	}
	if p.ChargeRate <= 0 || p.ChargeRate > 1 {
		return errors.New("charge_rate must be in (0, 1]")
	}
	if p.DischargeRate <= 0 || p.DischargeRate > 1 {
		return errors.New("discharge_rate must be in (0, 1]")
	}
	if p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1 {
		return errors.New("charge_efficiency must be in (0, 1]")
	}
	if p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1 {
		return errors.New("discharge_efficiency must be in (0, 1]")
	}
	if s.State.SOC < 0 || s.State.SOC > p.CapacityKWh {
		return errors.New("initial SOC must be within [0, capacity_kwh]")
	}
	return nil
}

// ChargeLimit is the most energy that can be accepted from the market this
// period, given the rate limit and the remaining headroom.
func (s Storage) ChargeLimit() float64 {
	headroom := s.Params.CapacityKWh - s.State.SOC
	return math.Max(0, math.Min(s.Params.CapacityKWh*s.Params.ChargeRate, headroom))
}

// DischargeLimit is the most energy that can be delivered to the market this
// period. Delivering q removes q/eff from SOC, so the bound is SOC*eff.
func (s Storage) DischargeLimit() float64 {
	deliverable := s.State.SOC * s.Params.DischargeEfficiency
	return math.Max(0, math.Min(s.Params.CapacityKWh*s.Params.DischargeRate, deliverable))
}

// BoundCharge clips a requested charge quantity to the feasible bound.
func (s Storage) BoundCharge(requested float64) float64 {
	return math.Max(0, math.Min(requested, s.ChargeLimit()))
}

// BoundDischarge clips a requested discharge quantity to the feasible bound.
func (s Storage) BoundDischarge(requested float64) float64 {
	return math.Max(0, math.Min(requested, s.DischargeLimit()))
}

// StorageUpdate is the outcome of applying traded quantities to a unit.
type StorageUpdate struct {
	SOCStart float64
	SOCEnd   float64
	// Requested is the signed SOC change implied by the trades; Applied is
	// the change after clipping into [0, capacity].
	Requested float64
	Applied   float64
}

func (u StorageUpdate) Clipped() bool {
	return u.Requested != u.Applied
}

// Apply returns the state after charging `charged` kWh and discharging
// `discharged` kWh at the grid side, with efficiency losses:
// - SOC increases by charged * ChargeEfficiency
// - SOC decreases by discharged / DischargeEfficiency
// The receiver is not modified.
func (s Storage) Apply(charged, discharged float64) (Storage, StorageUpdate) {
	u := StorageUpdate{SOCStart: s.State.SOC}
	u.Requested = charged*s.Params.ChargeEfficiency - discharged/s.Params.DischargeEfficiency
	end := clampRange(s.State.SOC+u.Requested, 0, s.Params.CapacityKWh)
	u.Applied = end - s.State.SOC
	if math.Abs(u.Applied-u.Requested) < 1e-12 {
		u.Applied = u.Requested
	}
	u.SOCEnd = end
	out := s
	out.State.SOC = end
	return out, u
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
