package agent

import "lec-market/internal/model"

// GridProxy is the external grid. It is not a true bidder: it publishes a
// buy/sell price per period and absorbs any residual local supply or demand
// at those prices, in unlimited quantity.
type GridProxy struct {
	id       string
	schedule model.GridPriceSchedule
}

func NewGridProxy(id string, schedule model.GridPriceSchedule) *GridProxy {
	if id == "" {
		id = "grid"
	}
	return &GridProxy{id: id, schedule: schedule}
}

func (g *GridProxy) ID() string                  { return g.id }
func (g *GridProxy) Capability() Capability      { return GridProxyUnit }
func (g *GridProxy) Resources() []model.Resource { return g.schedule.Resources() }
func (g *GridProxy) Forecast(Period) Forecast    { return Forecast{} }
func (g *GridProxy) ApplySettlement(Delta)       {}

func (g *GridProxy) MakeBids(Period, Forecast) ([]model.Bid, error) { return nil, nil }

func (g *GridProxy) Schedule() model.GridPriceSchedule { return g.schedule }

// BuyPrice is what the community pays to import from the grid.
func (g *GridProxy) BuyPrice(period int, r model.Resource) (float64, bool) {
	p, ok := g.schedule.Price(r, period)
	return p.BuyPrice, ok
}

// SellPrice is what the community receives for exporting to the grid.
func (g *GridProxy) SellPrice(period int, r model.Resource) (float64, bool) {
	p, ok := g.schedule.Price(r, period)
	return p.SellPrice, ok
}

// Prices returns the price pairs of every scheduled resource for a period.
func (g *GridProxy) Prices(period int) map[model.Resource]model.GridPrice {
	out := make(map[model.Resource]model.GridPrice)
	for _, r := range g.schedule.Resources() {
		if p, ok := g.schedule.Price(r, period); ok {
			out[r] = p
		}
	}
	return out
}
