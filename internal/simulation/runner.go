package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"lec-market/internal/agent"
	"lec-market/internal/market"
	"lec-market/internal/model"
	"lec-market/internal/settlement"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scenario is the immutable input of a run.
type Scenario struct {
	Horizon int
	Agents  []agent.Agent
	Grid    *agent.GridProxy
	// NetworkTemperatureC is the heat network's operating temperature per
	// period. A single value applies to every period.
	NetworkTemperatureC []float64
}

type Options struct {
	// MaxPeriods halts the run early; 0 runs the full horizon.
	MaxPeriods int
	// Workers bounds the parallel forecast/bid phase; 0 uses GOMAXPROCS.
	Workers int
}

// PeriodError is a fatal error tagged with the period it happened in.
type PeriodError struct {
	Period int
	Err    error
}

func (e *PeriodError) Error() string { return fmt.Sprintf("period %d: %v", e.Period, e.Err) }
func (e *PeriodError) Unwrap() error { return e.Err }

// Runner drives the period loop. Periods run strictly in order: each
// period's settlement is an input to the next period's bids.
type Runner struct {
	sc     Scenario
	opts   Options
	logger *zap.Logger
	sink   Sink
}

// New validates the scenario. Every problem found here is a
// *model.ConfigurationError and nothing has run yet.
func New(sc Scenario, opts Options, logger *zap.Logger, sink Sink) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := Validate(sc); err != nil {
		return nil, err
	}
	if opts.MaxPeriods < 0 {
		return nil, &model.ConfigurationError{Field: "max_periods", Reason: "must be >= 0"}
	}
	if opts.Workers < 0 {
		return nil, &model.ConfigurationError{Field: "workers", Reason: "must be >= 0"}
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	agents := append([]agent.Agent(nil), sc.Agents...)
	sort.SliceStable(agents, func(i, j int) bool { return agents[i].ID() < agents[j].ID() })
	sc.Agents = agents
	return &Runner{sc: sc, opts: opts, logger: logger, sink: sink}, nil
}

// Validate checks a scenario without running it.
func Validate(sc Scenario) error {
	if sc.Horizon <= 0 {
		return &model.ConfigurationError{Field: "horizon", Reason: "must be > 0"}
	}
	if sc.Grid == nil {
		return &model.ConfigurationError{Field: "grid_prices", Reason: "grid proxy is required"}
	}
	if len(sc.Agents) == 0 {
		return &model.ConfigurationError{Field: "agents", Reason: "at least one agent is required"}
	}
	seen := make(map[string]bool, len(sc.Agents))
	traded := make(map[model.Resource]bool)
	for i, a := range sc.Agents {
		if a == nil {
			return &model.ConfigurationError{Field: fmt.Sprintf("agents[%d]", i), Reason: "agent is nil"}
		}
		if a.ID() == sc.Grid.ID() {
			return &model.ConfigurationError{Field: fmt.Sprintf("agents[%d].id", i), Reason: fmt.Sprintf("%q is reserved for the grid", a.ID())}
		}
		if seen[a.ID()] {
			return &model.ConfigurationError{Field: fmt.Sprintf("agents[%d].id", i), Reason: fmt.Sprintf("duplicate id %q", a.ID())}
		}
		seen[a.ID()] = true
		for _, r := range a.Resources() {
			traded[r] = true
		}
	}
	var required []model.Resource
	for _, r := range model.Resources {
		if traded[r] {
			required = append(required, r)
		}
	}
	if err := sc.Grid.Schedule().Validate(sc.Horizon, required); err != nil {
		return err
	}
	if traded[model.Heating] {
		if n := len(sc.NetworkTemperatureC); n != 1 && n < sc.Horizon {
			return &model.ConfigurationError{
				Field:  "heat_network.temperature_c",
				Reason: fmt.Sprintf("need 1 or %d values, got %d", sc.Horizon, n),
			}
		}
	}
	return nil
}

// Horizon is the number of periods Run will execute.
func (r *Runner) Horizon() int {
	if r.opts.MaxPeriods > 0 && r.opts.MaxPeriods < r.sc.Horizon {
		return r.opts.MaxPeriods
	}
	return r.sc.Horizon
}

type slot struct {
	bids []model.Bid
	err  error
}

// Run executes the simulation. On a fatal error the periods already
// completed are returned along with a *PeriodError.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ledger, err := settlement.New(r.sc.Agents)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "agents", Reason: err.Error()}
	}
	engine := market.New()
	res := &Result{}
	sinks := multiSink{}
	if r.sink != nil {
		sinks = append(sinks, r.sink)
	}

	horizon := r.Horizon()
	r.logger.Info("simulation started",
		zap.Int("horizon", horizon),
		zap.Int("agents", len(r.sc.Agents)),
		zap.Int("workers", r.opts.Workers),
	)

	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			r.finish(res, ledger)
			return res, &PeriodError{Period: t, Err: err}
		}
		summary, err := r.step(ctx, t, engine, ledger, res, sinks)
		if err != nil {
			r.finish(res, ledger)
			r.logger.Error("simulation aborted", zap.Int("period", t), zap.Error(err))
			return res, &PeriodError{Period: t, Err: err}
		}
		res.Summaries = append(res.Summaries, summary)
		res.Periods = t + 1
	}

	r.finish(res, ledger)
	r.logger.Info("simulation finished",
		zap.Int("periods", res.Periods),
		zap.String("community_balance", res.TotalBalance().StringFixed(2)),
	)
	return res, nil
}

func (r *Runner) snapshot(t int) agent.Period {
	p := agent.Period{Index: t, Grid: r.sc.Grid.Prices(t)}
	switch temps := r.sc.NetworkTemperatureC; {
	case len(temps) == 1:
		p.NetworkTemperatureC = temps[0]
	case t < len(temps):
		p.NetworkTemperatureC = temps[t]
	}
	return p
}

func (r *Runner) step(ctx context.Context, t int, engine *market.Engine, ledger *settlement.Ledger, res *Result, sink Sink) (PeriodSummary, error) {
	p := r.snapshot(t)
	summary := PeriodSummary{Index: t}

	// Every agent sees the same snapshot and writes only its own slot.
	slots := make([]slot, len(r.sc.Agents))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, a := range r.sc.Agents {
		i, a := i, a
		g.Go(func() error {
			bids, err := a.MakeBids(p, a.Forecast(p))
			slots[i] = slot{bids: bids, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	var bids []model.Bid
	for i, a := range r.sc.Agents {
		s := slots[i]
		for _, e := range unjoin(s.err) {
			summary.Dropped++
			r.logger.Warn("bid dropped", zap.Int("period", t), zap.String("agent", a.ID()), zap.Error(e))
		}
		for _, b := range s.bids {
			if err := checkBid(a.ID(), t, b); err != nil {
				summary.Dropped++
				r.logger.Warn("bid dropped", zap.Int("period", t), zap.String("agent", a.ID()), zap.Error(err))
				continue
			}
			bids = append(bids, b)
		}
	}
	summary.Bids = len(bids)
	market.SortBids(bids)
	byRes := market.ByResource(bids)

	cleared := make(map[model.Resource][]model.ClearingResult)
	for _, rsc := range model.Resources {
		gp, ok := p.Grid[rsc]
		if !ok {
			if len(byRes[rsc]) > 0 {
				return summary, &model.InfeasibleMarketError{Period: t, Resource: rsc, Reason: "bids without a grid price"}
			}
			continue
		}
		out, err := engine.Clear(t, rsc, gp, byRes[rsc])
		if err != nil {
			return summary, err
		}
		cleared[rsc] = out
		res.Clearing = append(res.Clearing, out...)
		m := market.Summarize(rsc, out)
		summary.Markets = append(summary.Markets, m)
		r.logger.Debug("market cleared",
			zap.Int("period", t),
			zap.String("resource", string(rsc)),
			zap.Float64("local_volume", m.LocalVolume),
			zap.Float64("grid_import", m.GridImport),
			zap.Float64("grid_export", m.GridExport),
			zap.Float64("avg_local_price", m.AvgLocalPrice),
		)
	}

	booked, err := ledger.Settle(t, p.Grid, cleared)
	if err != nil {
		return summary, err
	}
	for _, v := range booked.Violations {
		summary.Violations++
		r.logger.Warn("storage clipped", zap.Int("period", t), zap.String("agent", v.AgentID),
			zap.Float64("requested", v.Requested), zap.Float64("applied", v.Applied))
	}

	for _, a := range r.sc.Agents {
		a.ApplySettlement(booked.Deltas[a.ID()])
	}

	lines := make(map[string]map[model.Resource]settlement.Line, len(booked.Lines))
	for _, ln := range booked.Lines {
		if lines[ln.AgentID] == nil {
			lines[ln.AgentID] = make(map[model.Resource]settlement.Line)
		}
		lines[ln.AgentID][ln.Resource] = ln
	}
	for _, a := range r.sc.Agents {
		id := a.ID()
		for _, rsc := range model.Resources {
			if !contains(a.Resources(), rsc) {
				continue
			}
			ln, ok := lines[id][rsc]
			if !ok {
				ln = settlement.Line{AgentID: id, Resource: rsc}
			}
			rec := recordFromLine(t, ln, ledger.Balance(id))
			if d := booked.Deltas[id]; d.Storage != nil && rsc == model.Electricity {
				soc := d.Storage.State.SOC
				rec.SOC = &soc
				rec.Action = model.ActionFromSOCChange(ln.BoughtLocal + ln.BoughtGrid - ln.SoldLocal - ln.SoldGrid)
			}
			res.Records = append(res.Records, rec)
			if err := sink.Write(rec); err != nil {
				return summary, fmt.Errorf("write record: %w", err)
			}
		}
	}
	return summary, nil
}

func (r *Runner) finish(res *Result, ledger *settlement.Ledger) {
	res.Balances = ledger.Balances()
	res.FinalSOC = ledger.SOC()
	res.GridFlows = ledger.GridFlows()
}

// checkBid rejects bids an agent could not legitimately have made.
func checkBid(agentID string, period int, b model.Bid) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.AgentID != agentID || b.Period != period {
		return &model.BidValidationError{AgentID: agentID, Resource: b.Resource, Period: period, Reason: "bid identity does not match bidder"}
	}
	return nil
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unjoin(e)...)
		}
		return out
	}
	return []error{err}
}

func contains(rs []model.Resource, r model.Resource) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
