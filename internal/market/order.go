package market

import (
	"sort"

	"lec-market/internal/model"
)

// SortBids orders a merged bid set by resource, price, agent id and seq.
// The sort is stable, so the result does not depend on the order in which
// the bids were collected.
func SortBids(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		a, b := bids[i], bids[j]
		if a.Resource != b.Resource {
			return resourceRank(a.Resource) < resourceRank(b.Resource)
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.AgentID != b.AgentID {
			return a.AgentID < b.AgentID
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Seq < b.Seq
	})
}

// ByResource splits a sorted bid set into per-resource slices.
func ByResource(bids []model.Bid) map[model.Resource][]model.Bid {
	out := make(map[model.Resource][]model.Bid)
	for _, b := range bids {
		out[b.Resource] = append(out[b.Resource], b)
	}
	return out
}

func resourceRank(r model.Resource) int {
	for i, x := range model.Resources {
		if x == r {
			return i
		}
	}
	return len(model.Resources)
}

// Summary aggregates one (resource, period) clearing.
type Summary struct {
	Resource    model.Resource `json:"resource"`
	LocalVolume float64        `json:"local_volume"`
	GridImport  float64        `json:"grid_import"`
	GridExport  float64        `json:"grid_export"`
	Trades      int            `json:"trades"`
	// AvgLocalPrice is volume-weighted; zero when nothing traded locally.
	AvgLocalPrice float64 `json:"avg_local_price"`
}

func Summarize(r model.Resource, results []model.ClearingResult) Summary {
	s := Summary{Resource: r}
	var value float64
	for _, res := range results {
		switch {
		case res.Counterparty == model.Local && res.Side == model.Buy:
			s.LocalVolume += res.Quantity
			value += res.Value()
			s.Trades++
		case res.Counterparty == model.Grid && res.Side == model.Buy:
			s.GridImport += res.Quantity
		case res.Counterparty == model.Grid && res.Side == model.Sell:
			s.GridExport += res.Quantity
		}
	}
	if s.LocalVolume > 0 {
		s.AvgLocalPrice = value / s.LocalVolume
	}
	return s
}
