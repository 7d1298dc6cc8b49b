package settlement

import (
	"fmt"
	"sort"

	"lec-market/internal/agent"
	"lec-market/internal/model"

	"github.com/shopspring/decimal"
)

// Line is one agent's position in one resource after a period.
type Line struct {
	AgentID     string
	Resource    model.Resource
	BoughtLocal float64
	SoldLocal   float64
	BoughtGrid  float64
	SoldGrid    float64
	// Cost is the net money paid; negative means the agent was paid.
	Cost decimal.Decimal
}

func (l Line) Empty() bool {
	return l.BoughtLocal == 0 && l.SoldLocal == 0 && l.BoughtGrid == 0 && l.SoldGrid == 0
}

// GridFlow is the exchange with the grid for one (period, resource).
// Import cost and export revenue are from the community's point of view and
// do not net to zero.
type GridFlow struct {
	Period        int
	Resource      model.Resource
	ImportKWh     float64
	ExportKWh     float64
	ImportCost    decimal.Decimal
	ExportRevenue decimal.Decimal
}

// Period is everything the ledger produced for one period.
type Period struct {
	Index int
	// Deltas has one entry per registered agent, including agents that did
	// not trade.
	Deltas     map[string]agent.Delta
	Lines      []Line
	Grid       []GridFlow
	Violations []*model.StorageConstraintViolation
}

// Ledger is the single owner of balances and storage state. Agents only
// see the values it hands back through Delta.
type Ledger struct {
	ids      []string
	balances map[string]decimal.Decimal
	storage  map[string]model.Storage
	grid     []GridFlow
}

// New registers the agents. Agents that implement agent.StorageHolder have
// their storage unit tracked here.
func New(agents []agent.Agent) (*Ledger, error) {
	l := &Ledger{
		balances: make(map[string]decimal.Decimal, len(agents)),
		storage:  make(map[string]model.Storage),
	}
	for _, a := range agents {
		id := a.ID()
		if _, dup := l.balances[id]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", id)
		}
		l.ids = append(l.ids, id)
		l.balances[id] = decimal.Zero
		if h, ok := a.(agent.StorageHolder); ok {
			l.storage[id] = h.Storage()
		}
	}
	sort.Strings(l.ids)
	return l, nil
}

type lineKey struct {
	agentID  string
	resource model.Resource
}

// Settle books one period's clearing results. results maps a resource to the
// engine output for it; grid is the period's price pair per resource.
func (l *Ledger) Settle(period int, grid map[model.Resource]model.GridPrice, results map[model.Resource][]model.ClearingResult) (Period, error) {
	out := Period{Index: period, Deltas: make(map[string]agent.Delta, len(l.ids))}
	cash := make(map[string]decimal.Decimal, len(l.ids))
	lines := make(map[lineKey]*Line)
	perAgent := make(map[string][]model.ClearingResult)
	charged := make(map[string]float64)
	discharged := make(map[string]float64)

	for _, r := range model.Resources {
		rs, ok := results[r]
		if !ok {
			continue
		}
		flow := GridFlow{Period: period, Resource: r, ImportCost: decimal.Zero, ExportRevenue: decimal.Zero}
		paid, received := decimal.Zero, decimal.Zero

		for _, res := range rs {
			if res.Period != period || res.Resource != r {
				return Period{}, fmt.Errorf("period %d %s: result for period %d %s", period, r, res.Period, res.Resource)
			}
			if _, known := l.balances[res.AgentID]; !known {
				return Period{}, fmt.Errorf("period %d %s: result for unknown agent %q", period, r, res.AgentID)
			}
			value := decimal.NewFromFloat(res.Quantity).Mul(decimal.NewFromFloat(res.Price))

			k := lineKey{res.AgentID, r}
			ln := lines[k]
			if ln == nil {
				ln = &Line{AgentID: res.AgentID, Resource: r, Cost: decimal.Zero}
				lines[k] = ln
			}

			switch res.Side {
			case model.Buy:
				cash[res.AgentID] = cash[res.AgentID].Sub(value)
				ln.Cost = ln.Cost.Add(value)
				if res.Counterparty == model.Local {
					ln.BoughtLocal += res.Quantity
					paid = paid.Add(value)
				} else {
					ln.BoughtGrid += res.Quantity
					flow.ImportKWh += res.Quantity
					flow.ImportCost = flow.ImportCost.Add(value)
				}
				if r == model.Electricity {
					charged[res.AgentID] += res.Quantity
				}
			case model.Sell:
				cash[res.AgentID] = cash[res.AgentID].Add(value)
				ln.Cost = ln.Cost.Sub(value)
				if res.Counterparty == model.Local {
					ln.SoldLocal += res.Quantity
					received = received.Add(value)
				} else {
					ln.SoldGrid += res.Quantity
					flow.ExportKWh += res.Quantity
					flow.ExportRevenue = flow.ExportRevenue.Add(value)
				}
				if r == model.Electricity {
					discharged[res.AgentID] += res.Quantity
				}
			}
			perAgent[res.AgentID] = append(perAgent[res.AgentID], res)
		}

		if !paid.Equal(received) {
			return Period{}, fmt.Errorf("period %d %s: local payments %s != local receipts %s", period, r, paid, received)
		}
		if flow.ImportKWh != 0 || flow.ExportKWh != 0 {
			out.Grid = append(out.Grid, flow)
			l.grid = append(l.grid, flow)
		}
	}

	for _, id := range l.ids {
		c := cash[id]
		l.balances[id] = l.balances[id].Add(c)
		d := agent.Delta{Period: period, Cash: c, Grid: grid, Results: perAgent[id]}
		if unit, ok := l.storage[id]; ok {
			next, u := unit.Apply(charged[id], discharged[id])
			if u.Clipped() {
				out.Violations = append(out.Violations, &model.StorageConstraintViolation{
					AgentID: id, Period: period, Requested: u.Requested, Applied: u.Applied,
				})
			}
			l.storage[id] = next
			d.Storage = &next
		}
		out.Deltas[id] = d
	}

	out.Lines = make([]Line, 0, len(lines))
	for _, ln := range lines {
		out.Lines = append(out.Lines, *ln)
	}
	sort.Slice(out.Lines, func(i, j int) bool {
		a, b := out.Lines[i], out.Lines[j]
		if a.AgentID != b.AgentID {
			return a.AgentID < b.AgentID
		}
		return a.Resource < b.Resource
	})
	return out, nil
}

// Balance is an agent's cumulative cash balance.
func (l *Ledger) Balance(id string) decimal.Decimal {
	return l.balances[id]
}

// Balances returns a copy of every agent's balance.
func (l *Ledger) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.balances))
	for id, b := range l.balances {
		out[id] = b
	}
	return out
}

// Storage returns the ledger's view of a storage unit.
func (l *Ledger) Storage(id string) (model.Storage, bool) {
	s, ok := l.storage[id]
	return s, ok
}

// SOC returns the state of charge of every tracked storage unit.
func (l *Ledger) SOC() map[string]float64 {
	out := make(map[string]float64, len(l.storage))
	for id, s := range l.storage {
		out[id] = s.State.SOC
	}
	return out
}

// GridFlows returns every grid exchange booked so far, in booking order.
func (l *Ledger) GridFlows() []GridFlow {
	return append([]GridFlow(nil), l.grid...)
}

// AgentIDs returns the registered agents in ascending order.
func (l *Ledger) AgentIDs() []string {
	return append([]string(nil), l.ids...)
}
