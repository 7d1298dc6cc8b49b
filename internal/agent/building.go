package agent

import (
	"errors"
	"fmt"
	"math"

	"lec-market/internal/model"
)

// quantities below this are treated as zero after unit conversions
const epsilon = 1e-9

// BuildingParams configures a building.
// A heat pump requires both electricity and heating in Resources and a
// capability that can buy.
type BuildingParams struct {
	ID         string
	Capability Capability // Consumer, Producer or ConsumerProducer
	Resources  []model.Resource
	HeatPump   *model.HeatPump
	// SellHeat allows converting an electricity surplus into heat for sale.
	SellHeat bool
}

// Building bids its net position per resource against the grid's prices,
// so trading locally is never worse than trading with the grid directly.
type Building struct {
	base
	resources []model.Resource
	heatPump  *model.HeatPump
	sellHeat  bool
}

func NewBuilding(p BuildingParams, provider Provider) (*Building, error) {
	if p.ID == "" {
		return nil, errors.New("building id is required")
	}
	switch p.Capability {
	case Consumer, Producer, ConsumerProducer:
	default:
		return nil, fmt.Errorf("building %s: capability %q not supported", p.ID, p.Capability)
	}
	if provider == nil {
		return nil, fmt.Errorf("building %s: forecast provider is nil", p.ID)
	}
	resources := p.Resources
	if len(resources) == 0 {
		resources = []model.Resource{model.Electricity}
	}
	if p.HeatPump != nil {
		if err := p.HeatPump.Validate(); err != nil {
			return nil, fmt.Errorf("building %s heat pump: %w", p.ID, err)
		}
		if !contains(resources, model.Electricity) || !contains(resources, model.Heating) {
			return nil, fmt.Errorf("building %s: heat pump needs electricity and heating resources", p.ID)
		}
		// The pump's input has to be bought; a producer could never pay for it.
		if !p.Capability.CanBuy() {
			return nil, fmt.Errorf("building %s: heat pump requires a capability that can buy electricity, got %q", p.ID, p.Capability)
		}
	}
	return &Building{
		base:      base{id: p.ID, capability: p.Capability, provider: provider},
		resources: append([]model.Resource(nil), resources...),
		heatPump:  p.HeatPump,
		sellHeat:  p.SellHeat,
	}, nil
}

func (b *Building) Resources() []model.Resource { return b.resources }

func (b *Building) Forecast(p Period) Forecast {
	return b.forecast(p, b.resources...)
}

func (b *Building) MakeBids(p Period, f Forecast) ([]model.Bid, error) {
	net := make(Forecast, len(b.resources))
	for _, r := range b.resources {
		net[r] = f[r]
	}
	if b.heatPump != nil {
		net[model.Electricity], net[model.Heating] = b.convert(p, net[model.Electricity], net[model.Heating])
	}
	set := newBidSet(b.id, p.Index)
	for _, r := range b.resources {
		bidNet(set, b.capability, p, r, net[r])
	}
	return set.result()
}

func (b *Building) ApplySettlement(d Delta) {
	b.applyCash(d)
}

// convert runs the heat pump on electricity. A heat deficit is covered
// first; leftover pump input can turn an electricity surplus into heat for
// sale when selling heat is allowed.
func (b *Building) convert(p Period, elec, heat float64) (float64, float64) {
	hp := b.heatPump
	temp := p.NetworkTemperatureC
	remaining := hp.MaxInputKWh

	if heat < 0 {
		input := hp.InputForHeat(-heat, temp)
		heat += hp.HeatFromInput(input, temp)
		elec -= input
		remaining -= input
	}
	if b.sellHeat && b.capability.CanSell() && elec > 0 && remaining > epsilon {
		input := math.Min(elec, remaining)
		elec -= input
		heat += hp.HeatFromInput(input, temp)
	}
	return snap(elec), snap(heat)
}

// bidNet turns a signed net position into at most one bid.
func bidNet(set *bidSet, c Capability, p Period, r model.Resource, net float64) {
	if net == 0 {
		return
	}
	g, ok := p.Price(r)
	if !ok {
		set.errs = append(set.errs, &model.BidValidationError{
			AgentID: set.agentID, Resource: r, Period: p.Index, Reason: "no grid price for resource",
		})
		return
	}
	switch {
	case math.IsNaN(net) || math.IsInf(net, 0):
		// surfaces as a validation error
		set.add(r, model.Buy, math.Abs(net), g.BuyPrice)
	case net > 0 && c.CanSell():
		set.add(r, model.Sell, net, g.SellPrice)
	case net < 0 && c.CanBuy():
		set.add(r, model.Buy, -net, g.BuyPrice)
	}
}

func snap(x float64) float64 {
	if math.Abs(x) < epsilon {
		return 0
	}
	return x
}

func contains(rs []model.Resource, r model.Resource) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
