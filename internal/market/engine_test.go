package market

import (
	"testing"

	"lec-market/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bid(t *testing.T, id string, side model.Side, q, p float64) model.Bid {
	t.Helper()
	b, err := model.NewBid(id, 0, model.Electricity, side, q, p)
	require.NoError(t, err)
	return b
}

var grid = model.GridPrice{BuyPrice: 2.5, SellPrice: 1.5}

func totals(results []model.ClearingResult) (localBuy, localSell, gridBuy, gridSell float64) {
	for _, r := range results {
		switch {
		case r.Counterparty == model.Local && r.Side == model.Buy:
			localBuy += r.Quantity
		case r.Counterparty == model.Local && r.Side == model.Sell:
			localSell += r.Quantity
		case r.Counterparty == model.Grid && r.Side == model.Buy:
			gridBuy += r.Quantity
		default:
			gridSell += r.Quantity
		}
	}
	return
}

func TestClear_FullLocalMatch(t *testing.T) {
	bids := []model.Bid{
		bid(t, "consumer", model.Buy, 10, 2.0),
		bid(t, "producer", model.Sell, 10, 1.0),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	require.Len(t, res, 2)

	for _, r := range res {
		assert.Equal(t, model.Local, r.Counterparty)
		assert.Equal(t, 10.0, r.Quantity)
		assert.Equal(t, 1.5, r.Price)
		assert.Equal(t, 1, r.TradeID)
	}
	_, _, gb, gs := totals(res)
	assert.Zero(t, gb)
	assert.Zero(t, gs)
}

func TestClear_ResidualBoughtFromGrid(t *testing.T) {
	bids := []model.Bid{
		bid(t, "consumer", model.Buy, 10, 2.5),
		bid(t, "producer", model.Sell, 5, 1.5),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)

	lb, ls, gb, gs := totals(res)
	assert.Equal(t, 5.0, lb)
	assert.Equal(t, 5.0, ls)
	assert.Equal(t, 5.0, gb)
	assert.Zero(t, gs)

	last := res[len(res)-1]
	assert.Equal(t, model.Grid, last.Counterparty)
	assert.Equal(t, "consumer", last.AgentID)
	assert.Equal(t, grid.BuyPrice, last.Price)
	assert.Zero(t, last.TradeID)
}

func TestClear_ResidualSoldToGrid(t *testing.T) {
	bids := []model.Bid{
		bid(t, "pv", model.Sell, 8, 1.5),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, model.Grid, res[0].Counterparty)
	assert.Equal(t, model.Sell, res[0].Side)
	assert.Equal(t, grid.SellPrice, res[0].Price)
}

func TestClear_NoCrossNoLocalTrade(t *testing.T) {
	bids := []model.Bid{
		bid(t, "a", model.Buy, 3, 1.0),
		bid(t, "b", model.Sell, 3, 2.0),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	lb, ls, gb, gs := totals(res)
	assert.Zero(t, lb)
	assert.Zero(t, ls)
	assert.Equal(t, 3.0, gb)
	assert.Equal(t, 3.0, gs)
}

func TestClear_PriceClampedToGridBounds(t *testing.T) {
	bids := []model.Bid{
		bid(t, "rich", model.Buy, 1, 10),
		bid(t, "cheap", model.Sell, 1, 0),
		bid(t, "rich2", model.Buy, 1, 9),
		bid(t, "cheap2", model.Sell, 1, 8),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	for _, r := range res {
		assert.LessOrEqual(t, r.Price, grid.BuyPrice)
		assert.GreaterOrEqual(t, r.Price, grid.SellPrice)
	}
	// midpoint 5 and 8.5 both clamp to the grid buy price
	assert.Equal(t, grid.BuyPrice, res[0].Price)
}

func TestClear_BandFloorOverridesBuyerBid(t *testing.T) {
	bids := []model.Bid{
		bid(t, "seller", model.Sell, 2, 1.0),
		bid(t, "buyer", model.Buy, 2, 1.2),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	require.Len(t, res, 2)
	// midpoint 1.1 sits below the band and is raised to the grid sell price
	for _, r := range res {
		assert.Equal(t, model.Local, r.Counterparty)
		assert.Equal(t, grid.SellPrice, r.Price)
	}
}

func TestClear_TiesBrokenByAgentID(t *testing.T) {
	bids := []model.Bid{
		bid(t, "zoe", model.Sell, 4, 1.5),
		bid(t, "amy", model.Sell, 4, 1.5),
		bid(t, "buyer", model.Buy, 4, 2.5),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "amy", res[0].AgentID)
	assert.Equal(t, model.Local, res[0].Counterparty)
	assert.Equal(t, "zoe", res[2].AgentID)
	assert.Equal(t, model.Grid, res[2].Counterparty)
}

func TestClear_LadderPartialFills(t *testing.T) {
	bids := []model.Bid{
		bid(t, "s1", model.Sell, 3, 1.6),
		bid(t, "s2", model.Sell, 4, 1.8),
		bid(t, "b1", model.Buy, 5, 2.4),
		bid(t, "b2", model.Buy, 5, 1.7),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)

	// s1->b1 3 @2.0, s2->b1 2 @2.1, then s2 (1.8) > b2 (1.7) stops matching.
	require.GreaterOrEqual(t, len(res), 4)
	assert.InDelta(t, 2.0, res[0].Price, 1e-12)
	assert.Equal(t, 3.0, res[0].Quantity)
	assert.InDelta(t, 2.1, res[2].Price, 1e-12)
	assert.Equal(t, 2.0, res[2].Quantity)

	lb, ls, gb, gs := totals(res)
	assert.InDelta(t, lb, ls, Tolerance)
	assert.Equal(t, 5.0, lb)
	assert.Equal(t, 5.0, gb)
	assert.Equal(t, 2.0, gs)
}

func TestClear_IgnoresOtherResources(t *testing.T) {
	heat, err := model.NewBid("h", 0, model.Heating, model.Buy, 5, 1)
	require.NoError(t, err)
	res, err := New().Clear(0, model.Electricity, grid, []model.Bid{heat})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestClear_InvalidGridPrice(t *testing.T) {
	_, err := New().Clear(0, model.Electricity, model.GridPrice{BuyPrice: 1, SellPrice: 2}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInfeasibleMarket)
}

func TestClear_Deterministic(t *testing.T) {
	bids := []model.Bid{
		bid(t, "c", model.Buy, 2, 2.2),
		bid(t, "a", model.Sell, 1, 1.6),
		bid(t, "b", model.Buy, 3, 2.2),
		bid(t, "d", model.Sell, 6, 1.6),
	}
	rev := make([]model.Bid, len(bids))
	for i := range bids {
		rev[len(bids)-1-i] = bids[i]
	}
	first, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	second, err := New().Clear(0, model.Electricity, grid, rev)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSortBids(t *testing.T) {
	heat, _ := model.NewBid("a", 0, model.Heating, model.Buy, 1, 0.1)
	bids := []model.Bid{
		heat,
		bid(t, "b", model.Buy, 1, 2),
		bid(t, "a", model.Sell, 1, 2),
		bid(t, "c", model.Sell, 1, 1),
	}
	SortBids(bids)
	assert.Equal(t, "c", bids[0].AgentID)
	assert.Equal(t, "a", bids[1].AgentID)
	assert.Equal(t, "b", bids[2].AgentID)
	assert.Equal(t, model.Heating, bids[3].Resource)

	split := ByResource(bids)
	assert.Len(t, split[model.Electricity], 3)
	assert.Len(t, split[model.Heating], 1)
}

func TestSummarize(t *testing.T) {
	bids := []model.Bid{
		bid(t, "consumer", model.Buy, 10, 2.5),
		bid(t, "producer", model.Sell, 5, 1.5),
	}
	res, err := New().Clear(0, model.Electricity, grid, bids)
	require.NoError(t, err)
	s := Summarize(model.Electricity, res)
	assert.Equal(t, 5.0, s.LocalVolume)
	assert.Equal(t, 5.0, s.GridImport)
	assert.Zero(t, s.GridExport)
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, 2.0, s.AvgLocalPrice)
}
