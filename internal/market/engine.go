package market

import (
	"fmt"
	"math"
	"sort"

	"lec-market/internal/model"
)

// Tolerance for the post-clearing balance checks.
const Tolerance = 1e-9

// Engine clears one (resource, period) at a time. It holds no state between
// calls apart from the trade sequence counter.
type Engine struct {
	nextTrade int
}

func New() *Engine { return &Engine{} }

// order is a bid with its unfilled remainder.
type order struct {
	bid       model.Bid
	remaining float64
}

// Clear matches the bids for one resource and period and routes any residual
// to the grid. Bids for other resources or periods are ignored. The returned
// results are ordered: local legs in match order (seller leg first), then
// grid legs for buyers, then grid legs for sellers.
func (e *Engine) Clear(period int, r model.Resource, grid model.GridPrice, bids []model.Bid) ([]model.ClearingResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, &model.InfeasibleMarketError{Period: period, Resource: r, Reason: err.Error()}
	}

	var buys, sells []*order
	for _, b := range bids {
		if b.Resource != r || b.Period != period || b.Quantity == 0 {
			continue
		}
		if err := b.Validate(); err != nil {
			return nil, &model.InfeasibleMarketError{Period: period, Resource: r, Reason: err.Error()}
		}
		o := &order{bid: b, remaining: b.Quantity}
		if b.Side == model.Buy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}

	// Cheapest seller first, highest buyer first.
	sort.SliceStable(sells, func(i, j int) bool {
		return lessBid(sells[i].bid, sells[j].bid, false)
	})
	sort.SliceStable(buys, func(i, j int) bool {
		return lessBid(buys[i].bid, buys[j].bid, true)
	})

	results := make([]model.ClearingResult, 0, len(buys)+len(sells))
	i, j := 0, 0
	for i < len(sells) && j < len(buys) {
		s, b := sells[i], buys[j]
		if s.bid.Price > b.bid.Price {
			break
		}
		q := math.Min(s.remaining, b.remaining)
		price := grid.Clamp((s.bid.Price + b.bid.Price) / 2)
		e.nextTrade++
		results = append(results,
			leg(period, r, s.bid.AgentID, model.Sell, q, price, model.Local, e.nextTrade),
			leg(period, r, b.bid.AgentID, model.Buy, q, price, model.Local, e.nextTrade),
		)
		s.remaining -= q
		b.remaining -= q
		if s.remaining <= Tolerance {
			s.remaining = 0
			i++
		}
		if b.remaining <= Tolerance {
			b.remaining = 0
			j++
		}
	}

	// The grid takes whatever is left, in unlimited quantity.
	for _, b := range buys {
		if b.remaining > 0 {
			results = append(results, leg(period, r, b.bid.AgentID, model.Buy, b.remaining, grid.BuyPrice, model.Grid, 0))
		}
	}
	for _, s := range sells {
		if s.remaining > 0 {
			results = append(results, leg(period, r, s.bid.AgentID, model.Sell, s.remaining, grid.SellPrice, model.Grid, 0))
		}
	}

	if err := check(period, r, grid, buys, sells, results); err != nil {
		return nil, err
	}
	return results, nil
}

func leg(period int, r model.Resource, agentID string, side model.Side, q, price float64, cp model.Counterparty, trade int) model.ClearingResult {
	return model.ClearingResult{
		Period:       period,
		AgentID:      agentID,
		Resource:     r,
		Side:         side,
		Quantity:     q,
		Price:        price,
		Counterparty: cp,
		TradeID:      trade,
	}
}

// lessBid orders by price (descending when desc is set), then agent id, then seq.
func lessBid(a, b model.Bid, desc bool) bool {
	if a.Price != b.Price {
		if desc {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	if a.AgentID != b.AgentID {
		return a.AgentID < b.AgentID
	}
	return a.Seq < b.Seq
}

// check verifies the allocation: every bid is filled exactly, local buys
// equal local sells and every price is finite and within the grid bounds.
func check(period int, r model.Resource, grid model.GridPrice, buys, sells []*order, results []model.ClearingResult) error {
	fail := func(format string, args ...any) error {
		return &model.InfeasibleMarketError{Period: period, Resource: r, Reason: fmt.Sprintf(format, args...)}
	}

	filled := make(map[string]map[model.Side]float64)
	var localBuy, localSell float64
	for _, res := range results {
		if math.IsNaN(res.Price) || math.IsInf(res.Price, 0) {
			return fail("non-finite price for %s", res.AgentID)
		}
		if res.Counterparty == model.Local && (res.Price > grid.BuyPrice || res.Price < grid.SellPrice) {
			return fail("local price %v outside grid bounds [%v, %v]", res.Price, grid.SellPrice, grid.BuyPrice)
		}
		if filled[res.AgentID] == nil {
			filled[res.AgentID] = make(map[model.Side]float64)
		}
		filled[res.AgentID][res.Side] += res.Quantity
		if res.Counterparty == model.Local {
			if res.Side == model.Buy {
				localBuy += res.Quantity
			} else {
				localSell += res.Quantity
			}
		}
	}
	if math.Abs(localBuy-localSell) > Tolerance {
		return fail("local buys %v != local sells %v", localBuy, localSell)
	}

	want := make(map[string]map[model.Side]float64)
	for _, o := range append(append([]*order(nil), buys...), sells...) {
		if want[o.bid.AgentID] == nil {
			want[o.bid.AgentID] = make(map[model.Side]float64)
		}
		want[o.bid.AgentID][o.bid.Side] += o.bid.Quantity
	}
	for id, sides := range want {
		for side, q := range sides {
			if math.Abs(filled[id][side]-q) > Tolerance*math.Max(1, q) {
				return fail("%s %s filled %v of %v", id, side, filled[id][side], q)
			}
		}
	}
	return nil
}
