package agent

import (
	"errors"
	"fmt"

	"lec-market/internal/model"

	"github.com/shopspring/decimal"
)

// Capability tags what an agent can do in the market.
type Capability string

const (
	Consumer         Capability = "consumer"
	Producer         Capability = "producer"
	ConsumerProducer Capability = "consumer_producer"
	StorageUnit      Capability = "storage"
	GridProxyUnit    Capability = "grid"
)

func ParseCapability(s string) (Capability, error) {
	switch Capability(s) {
	case Consumer, Producer, ConsumerProducer, StorageUnit, GridProxyUnit:
		return Capability(s), nil
	default:
		return "", fmt.Errorf("unknown capability %q", s)
	}
}

func (c Capability) CanBuy() bool  { return c != Producer && c != GridProxyUnit }
func (c Capability) CanSell() bool { return c != Consumer && c != GridProxyUnit }

// Period is the immutable snapshot an agent sees while bidding: the state of
// the world as finalized at the end of the previous period plus this
// period's exogenous inputs.
type Period struct {
	Index int
	// Grid holds this period's grid price pair per resource.
	Grid map[model.Resource]model.GridPrice
	// NetworkTemperatureC is the district heating network's operating
	// (forward) temperature.
	NetworkTemperatureC float64
}

// Price returns the grid price pair for a resource.
func (p Period) Price(r model.Resource) (model.GridPrice, bool) {
	g, ok := p.Grid[r]
	return g, ok
}

// Forecast is the signed quantity per resource: positive = surplus to sell,
// negative = deficit to buy.
type Forecast map[model.Resource]float64

// Delta is what the settlement ledger hands back to an agent after a period.
type Delta struct {
	Period int
	// Cash is the net money flow (positive = received).
	Cash decimal.Decimal
	// Storage is the new storage value for storage agents, nil otherwise.
	Storage *model.Storage
	// Grid is the period's grid price pair per resource.
	Grid    map[model.Resource]model.GridPrice
	Results []model.ClearingResult
}

// Agent is a forecaster/bidder in the community.
type Agent interface {
	ID() string
	Capability() Capability
	// Resources lists the resources the agent may bid in.
	Resources() []model.Resource
	Forecast(p Period) Forecast
	// MakeBids is a pure function of the period snapshot, the forecast and the
	// agent's carried state. Bids that fail validation are left out; their
	// errors are joined into the returned error.
	MakeBids(p Period, f Forecast) ([]model.Bid, error)
	// ApplySettlement mutates only the receiver's own state.
	ApplySettlement(d Delta)
}

// StorageHolder is implemented by agents that own a storage unit.
type StorageHolder interface {
	Storage() model.Storage
}

// base carries the fields all bidding agents share.
type base struct {
	id         string
	capability Capability
	provider   Provider
	balance    decimal.Decimal
}

func (b *base) ID() string             { return b.id }
func (b *base) Capability() Capability { return b.capability }

// Balance is the agent's cumulative cash balance.
func (b *base) Balance() decimal.Decimal { return b.balance }

func (b *base) forecast(p Period, resources ...model.Resource) Forecast {
	f := make(Forecast, len(resources))
	for _, r := range resources {
		v, _ := b.provider.Forecast(b.id, r, p.Index)
		f[r] = v
	}
	return f
}

func (b *base) applyCash(d Delta) {
	b.balance = b.balance.Add(d.Cash)
}

// bidSet accumulates bids for one agent and period, dropping invalid ones.
type bidSet struct {
	agentID string
	period  int
	bids    []model.Bid
	errs    []error
}

func newBidSet(agentID string, period int) *bidSet {
	return &bidSet{agentID: agentID, period: period}
}

// add builds a bid; zero quantities are skipped silently.
func (s *bidSet) add(r model.Resource, side model.Side, quantity, price float64) {
	if quantity == 0 {
		return
	}
	b, err := model.NewBid(s.agentID, s.period, r, side, quantity, price)
	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	b.Seq = len(s.bids)
	s.bids = append(s.bids, b)
}

func (s *bidSet) result() ([]model.Bid, error) {
	return s.bids, errors.Join(s.errs...)
}
