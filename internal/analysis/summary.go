package analysis

import (
	"sort"

	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"github.com/shopspring/decimal"
)

// AgentSummary is an agent-level summary of a run you can use for ranking.
type AgentSummary struct {
	AgentID string `json:"agent_id"`

	Bought map[model.Resource]float64 `json:"bought"`
	Sold   map[model.Resource]float64 `json:"sold"`
	// BoughtLocal / SoldLocal are the parts traded inside the community.
	BoughtLocal map[model.Resource]float64 `json:"bought_local"`
	SoldLocal   map[model.Resource]float64 `json:"sold_local"`

	// Balance is the cumulative cash balance (positive = net income).
	Balance decimal.Decimal `json:"balance"`
	// GridOnlyBalance is the balance the agent would have had trading the
	// same quantities with the grid only.
	GridOnlyBalance decimal.Decimal `json:"grid_only_balance"`
	// Savings = Balance - GridOnlyBalance; never negative under the bounded
	// clearing price.
	Savings decimal.Decimal `json:"savings"`
}

// ResourceSummary is a per-resource summary across the community.
type ResourceSummary struct {
	Resource    model.Resource `json:"resource"`
	Demand      float64        `json:"demand"`
	LocalVolume float64        `json:"local_volume"`
	GridImport  float64        `json:"grid_import"`
	GridExport  float64        `json:"grid_export"`
	// SelfSufficiency is the share of demand met locally, in [0, 1].
	SelfSufficiency float64 `json:"self_sufficiency"`

	// MeanLocalPrice is weighted by traded volume; the percentiles are
	// taken over individual trades.
	MeanLocalPrice float64 `json:"mean_local_price"`
	P05LocalPrice  float64 `json:"p05_local_price"`
	P95LocalPrice  float64 `json:"p95_local_price"`
}

type Summary struct {
	Periods   int               `json:"periods"`
	Agents    []AgentSummary    `json:"agents"`
	Resources []ResourceSummary `json:"resources"`
	// CommunityBalance is export revenue minus import cost.
	CommunityBalance decimal.Decimal `json:"community_balance"`
}

// Summarize aggregates a run. grid is used for the grid-only comparison;
// legs for periods it does not cover are left out of that comparison.
func Summarize(res *simulation.Result, grid model.GridPriceSchedule) Summary {
	if res == nil {
		return Summary{CommunityBalance: decimal.Zero}
	}
	s := Summary{Periods: res.Periods, CommunityBalance: res.TotalBalance()}

	agents := map[string]*AgentSummary{}
	get := func(id string) *AgentSummary {
		a := agents[id]
		if a == nil {
			a = &AgentSummary{
				AgentID:         id,
				Bought:          map[model.Resource]float64{},
				Sold:            map[model.Resource]float64{},
				BoughtLocal:     map[model.Resource]float64{},
				SoldLocal:       map[model.Resource]float64{},
				Balance:         decimal.Zero,
				GridOnlyBalance: decimal.Zero,
			}
			agents[id] = a
		}
		return a
	}
	for id := range res.Balances {
		get(id)
	}

	resources := map[model.Resource]*ResourceSummary{}
	prices := map[model.Resource][]float64{}
	// value and volume of local buy legs, for the volume-weighted mean
	localValue := map[model.Resource]float64{}
	for _, c := range res.Clearing {
		rs := resources[c.Resource]
		if rs == nil {
			rs = &ResourceSummary{Resource: c.Resource}
			resources[c.Resource] = rs
		}
		a := get(c.AgentID)
		gp, hasGrid := grid.Price(c.Resource, c.Period)
		q := decimal.NewFromFloat(c.Quantity)

		switch c.Side {
		case model.Buy:
			a.Bought[c.Resource] += c.Quantity
			rs.Demand += c.Quantity
			if c.Counterparty == model.Local {
				a.BoughtLocal[c.Resource] += c.Quantity
				rs.LocalVolume += c.Quantity
				localValue[c.Resource] += c.Quantity * c.Price
				prices[c.Resource] = append(prices[c.Resource], c.Price)
			} else {
				rs.GridImport += c.Quantity
			}
			if hasGrid {
				a.GridOnlyBalance = a.GridOnlyBalance.Sub(q.Mul(decimal.NewFromFloat(gp.BuyPrice)))
			}
		case model.Sell:
			a.Sold[c.Resource] += c.Quantity
			if c.Counterparty == model.Local {
				a.SoldLocal[c.Resource] += c.Quantity
			} else {
				rs.GridExport += c.Quantity
			}
			if hasGrid {
				a.GridOnlyBalance = a.GridOnlyBalance.Add(q.Mul(decimal.NewFromFloat(gp.SellPrice)))
			}
		}
	}

	for id, a := range agents {
		a.Balance = res.Balances[id]
		a.Savings = a.Balance.Sub(a.GridOnlyBalance)
		s.Agents = append(s.Agents, *a)
	}
	sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].AgentID < s.Agents[j].AgentID })

	for _, r := range model.Resources {
		rs, ok := resources[r]
		if !ok {
			continue
		}
		if rs.Demand > 0 {
			rs.SelfSufficiency = rs.LocalVolume / rs.Demand
		}
		if vals := prices[r]; len(vals) > 0 {
			if rs.LocalVolume > 0 {
				rs.MeanLocalPrice = localValue[r] / rs.LocalVolume
			}
			rs.P05LocalPrice = model.Percentile(vals, 5)
			rs.P95LocalPrice = model.Percentile(vals, 95)
		}
		s.Resources = append(s.Resources, *rs)
	}
	return s
}
