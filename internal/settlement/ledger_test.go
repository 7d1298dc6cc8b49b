package settlement

import (
	"testing"

	"lec-market/internal/agent"
	"lec-market/internal/market"
	"lec-market/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var prices = map[model.Resource]model.GridPrice{
	model.Electricity: {BuyPrice: 2.5, SellPrice: 1.5},
}

func newAgents(t *testing.T, eff float64, soc float64) (*agent.Building, *agent.Building, *agent.Storage) {
	t.Helper()
	fp := agent.MapProvider{}
	c, err := agent.NewBuilding(agent.BuildingParams{ID: "consumer", Capability: agent.Consumer}, fp)
	require.NoError(t, err)
	p, err := agent.NewBuilding(agent.BuildingParams{ID: "producer", Capability: agent.Producer}, fp)
	require.NoError(t, err)
	unit, err := model.NewStorage(model.StorageParams{
		CapacityKWh: 10, ChargeRate: 1, DischargeRate: 1,
		ChargeEfficiency: eff, DischargeEfficiency: eff,
	}, soc)
	require.NoError(t, err)
	s, err := agent.NewStorage(agent.StorageParams{ID: "battery", Unit: unit})
	require.NoError(t, err)
	return c, p, s
}

func clear(t *testing.T, bids ...model.Bid) map[model.Resource][]model.ClearingResult {
	t.Helper()
	res, err := market.New().Clear(0, model.Electricity, prices[model.Electricity], bids)
	require.NoError(t, err)
	return map[model.Resource][]model.ClearingResult{model.Electricity: res}
}

func mustBid(t *testing.T, id string, side model.Side, q, p float64) model.Bid {
	t.Helper()
	b, err := model.NewBid(id, 0, model.Electricity, side, q, p)
	require.NoError(t, err)
	return b
}

func TestSettle_LocalTradeIsZeroSum(t *testing.T) {
	c, p, s := newAgents(t, 1, 0)
	l, err := New([]agent.Agent{c, p, s})
	require.NoError(t, err)

	out, err := l.Settle(0, prices, clear(t,
		mustBid(t, "consumer", model.Buy, 10, 2.0),
		mustBid(t, "producer", model.Sell, 10, 1.0),
	))
	require.NoError(t, err)

	assert.True(t, out.Deltas["consumer"].Cash.Equal(decimal.NewFromInt(-15)))
	assert.True(t, out.Deltas["producer"].Cash.Equal(decimal.NewFromInt(15)))
	assert.True(t, out.Deltas["battery"].Cash.IsZero())
	assert.Empty(t, out.Grid)

	total := decimal.Zero
	for _, b := range l.Balances() {
		total = total.Add(b)
	}
	assert.True(t, total.IsZero())
}

func TestSettle_GridFlowsTrackedSeparately(t *testing.T) {
	c, p, s := newAgents(t, 1, 0)
	l, err := New([]agent.Agent{c, p, s})
	require.NoError(t, err)

	out, err := l.Settle(0, prices, clear(t,
		mustBid(t, "consumer", model.Buy, 10, 2.5),
		mustBid(t, "producer", model.Sell, 5, 1.5),
	))
	require.NoError(t, err)
	require.Len(t, out.Grid, 1)

	g := out.Grid[0]
	assert.Equal(t, 5.0, g.ImportKWh)
	assert.True(t, g.ImportCost.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, g.ExportRevenue.IsZero())

	// 5 local at 2.0 plus 5 from the grid at 2.5
	assert.True(t, l.Balance("consumer").Equal(decimal.RequireFromString("-22.5")))
	assert.True(t, l.Balance("producer").Equal(decimal.NewFromInt(10)))

	require.Len(t, out.Lines, 2)
	assert.Equal(t, "consumer", out.Lines[0].AgentID)
	assert.Equal(t, 5.0, out.Lines[0].BoughtLocal)
	assert.Equal(t, 5.0, out.Lines[0].BoughtGrid)
	assert.Len(t, l.GridFlows(), 1)
}

func TestSettle_StorageEfficiencyApplied(t *testing.T) {
	c, p, s := newAgents(t, 0.9, 5)
	l, err := New([]agent.Agent{c, p, s})
	require.NoError(t, err)

	out, err := l.Settle(0, prices, clear(t, mustBid(t, "battery", model.Buy, 4, 2.5)))
	require.NoError(t, err)

	d := out.Deltas["battery"]
	require.NotNil(t, d.Storage)
	assert.InDelta(t, 5+4*0.9, d.Storage.State.SOC, 1e-12)
	assert.Empty(t, out.Violations)
	assert.Nil(t, out.Deltas["consumer"].Storage)
}

func TestSettle_StorageClippedIntoBounds(t *testing.T) {
	c, p, s := newAgents(t, 1, 5)
	l, err := New([]agent.Agent{c, p, s})
	require.NoError(t, err)

	out, err := l.Settle(0, prices, clear(t, mustBid(t, "battery", model.Buy, 8, 2.5)))
	require.NoError(t, err)

	soc, ok := l.Storage("battery")
	require.True(t, ok)
	assert.Equal(t, 10.0, soc.State.SOC)
	require.Len(t, out.Violations, 1)
	assert.Equal(t, 8.0, out.Violations[0].Requested)
	assert.Equal(t, 5.0, out.Violations[0].Applied)
	assert.Equal(t, 10.0, l.SOC()["battery"])
}

func TestSettle_RejectsUnknownAgent(t *testing.T) {
	c, p, s := newAgents(t, 1, 0)
	l, err := New([]agent.Agent{c, p, s})
	require.NoError(t, err)
	_, err = l.Settle(0, prices, clear(t, mustBid(t, "stranger", model.Buy, 1, 2.5)))
	assert.Error(t, err)
}

func TestNew_DuplicateIDs(t *testing.T) {
	c, _, _ := newAgents(t, 1, 0)
	_, err := New([]agent.Agent{c, c})
	assert.Error(t, err)
}
