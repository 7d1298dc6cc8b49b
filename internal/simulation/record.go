package simulation

import (
	"lec-market/internal/market"
	"lec-market/internal/model"
	"lec-market/internal/settlement"

	"github.com/shopspring/decimal"
)

// Record is one row of per-(period, agent, resource) output.
// This is the primary artifact for "what happened" in a run.
type Record struct {
	Period   int            `json:"period"`
	AgentID  string         `json:"agent_id"`
	Resource model.Resource `json:"resource"`

	BoughtLocal float64 `json:"bought_local"`
	SoldLocal   float64 `json:"sold_local"`
	BoughtGrid  float64 `json:"bought_grid"`
	SoldGrid    float64 `json:"sold_grid"`

	// Cost is the net money paid this period (positive = paid).
	Cost decimal.Decimal `json:"cost"`
	// Balance is the agent's cumulative cash balance after the period.
	Balance decimal.Decimal `json:"balance"`

	// Storage agents only.
	SOC    *float64     `json:"soc,omitempty"`
	Action model.Action `json:"action,omitempty"`
}

// PeriodSummary aggregates one period across resources.
type PeriodSummary struct {
	Index      int              `json:"index"`
	Markets    []market.Summary `json:"markets"`
	Bids       int              `json:"bids"`
	Dropped    int              `json:"dropped"`
	Violations int              `json:"violations"`
}

type Result struct {
	// Periods is the number of completed periods.
	Periods   int
	Records   []Record
	Clearing  []model.ClearingResult
	Summaries []PeriodSummary
	GridFlows []settlement.GridFlow
	Balances  map[string]decimal.Decimal
	FinalSOC  map[string]float64
}

// TotalBalance sums every agent's balance. For a closed community this is
// export revenue minus import cost.
func (r *Result) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Balances {
		total = total.Add(b)
	}
	return total
}

func recordFromLine(period int, ln settlement.Line, balance decimal.Decimal) Record {
	return Record{
		Period:      period,
		AgentID:     ln.AgentID,
		Resource:    ln.Resource,
		BoughtLocal: ln.BoughtLocal,
		SoldLocal:   ln.SoldLocal,
		BoughtGrid:  ln.BoughtGrid,
		SoldGrid:    ln.SoldGrid,
		Cost:        ln.Cost,
		Balance:     balance,
	}
}
