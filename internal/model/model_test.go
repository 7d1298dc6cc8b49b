package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBid_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name     string
		quantity float64
		price    float64
	}{
		{"negative quantity", -1, 1},
		{"nan quantity", math.NaN(), 1},
		{"inf quantity", math.Inf(1), 1},
		{"nan price", 1, math.NaN()},
		{"inf price", 1, math.Inf(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBid("a", 3, Electricity, Buy, tc.quantity, tc.price)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBid))

			var bve *BidValidationError
			require.True(t, errors.As(err, &bve))
			assert.Equal(t, "a", bve.AgentID)
			assert.Equal(t, 3, bve.Period)
		})
	}
}

func TestNewBid_AcceptsZeroQuantityAndNegativePrice(t *testing.T) {
	b, err := NewBid("a", 0, Heating, Sell, 0, -0.5)
	require.NoError(t, err)
	assert.Equal(t, Sell, b.Side)
	assert.Equal(t, -0.5, b.Price)
}

func TestGridPrice_Validate(t *testing.T) {
	assert.NoError(t, GridPrice{BuyPrice: 2.5, SellPrice: 1.5}.Validate())
	assert.NoError(t, GridPrice{BuyPrice: 1, SellPrice: 1}.Validate())
	assert.Error(t, GridPrice{BuyPrice: 1.5, SellPrice: 2.5}.Validate())
	assert.Error(t, GridPrice{BuyPrice: math.NaN(), SellPrice: 1}.Validate())
}

func TestGridPrice_Clamp(t *testing.T) {
	g := GridPrice{BuyPrice: 2.5, SellPrice: 1.5}
	assert.Equal(t, 2.0, g.Clamp(2.0))
	assert.Equal(t, 2.5, g.Clamp(3.0))
	assert.Equal(t, 1.5, g.Clamp(1.0))
}

func TestGridPriceSchedule_Validate(t *testing.T) {
	s := NewGridPriceSchedule(map[Resource][]GridPrice{
		Electricity: {{BuyPrice: 2, SellPrice: 1}, {BuyPrice: 2, SellPrice: 1}},
	})

	require.NoError(t, s.Validate(2, []Resource{Electricity}))

	err := s.Validate(3, []Resource{Electricity})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingGridPrice))

	err = s.Validate(2, []Resource{Electricity, Heating})
	require.Error(t, err)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "grid_prices.heating", ce.Field)

	_, ok := s.Price(Electricity, 2)
	assert.False(t, ok)
}

func TestStorage_ChargeBoundedByHeadroom(t *testing.T) {
	s, err := NewStorage(StorageParams{
		CapacityKWh: 10, ChargeRate: 1, DischargeRate: 1,
		ChargeEfficiency: 1, DischargeEfficiency: 1,
	}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5.0, s.BoundCharge(8))
	assert.Equal(t, 3.0, s.BoundCharge(3))
	assert.Equal(t, 5.0, s.BoundDischarge(8))
}

func TestStorage_DischargeLimitAccountsForEfficiency(t *testing.T) {
	s, err := NewStorage(StorageParams{
		CapacityKWh: 10, ChargeRate: 1, DischargeRate: 1,
		ChargeEfficiency: 0.9, DischargeEfficiency: 0.8,
	}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, s.DischargeLimit(), 1e-12)

	next, u := s.Apply(0, 4)
	assert.InDelta(t, 0.0, next.State.SOC, 1e-12)
	assert.False(t, u.Clipped())
	// the receiver is a value and is left alone
	assert.Equal(t, 5.0, s.State.SOC)
}

func TestStorage_ApplyEfficiencyAndClipping(t *testing.T) {
	s, err := NewStorage(StorageParams{
		CapacityKWh: 10, ChargeRate: 1, DischargeRate: 1,
		ChargeEfficiency: 0.9, DischargeEfficiency: 0.9,
	}, 5)
	require.NoError(t, err)

	next, u := s.Apply(2, 0)
	assert.InDelta(t, 6.8, next.State.SOC, 1e-12)
	assert.False(t, u.Clipped())

	next, u = s.Apply(10, 0)
	assert.Equal(t, 10.0, next.State.SOC)
	assert.True(t, u.Clipped())
	assert.InDelta(t, 5.0, u.Applied, 1e-12)
	assert.InDelta(t, 9.0, u.Requested, 1e-12)
}

func TestStorage_Validate(t *testing.T) {
	base := StorageParams{CapacityKWh: 10, ChargeRate: 0.5, DischargeRate: 0.5, ChargeEfficiency: 1, DischargeEfficiency: 1}
	_, err := NewStorage(base, 11)
	assert.Error(t, err)

	bad := base
	bad.ChargeEfficiency = 0
	_, err = NewStorage(bad, 0)
	assert.Error(t, err)

	bad = base
	bad.CapacityKWh = 0
	_, err = NewStorage(bad, 0)
	assert.Error(t, err)
}

func TestCOPTable_Interpolates(t *testing.T) {
	tbl, err := NewCOPTable([]COPPoint{
		{TemperatureC: 55, COP: 3.0},
		{TemperatureC: 35, COP: 5.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, tbl.At(20))
	assert.Equal(t, 3.0, tbl.At(70))
	assert.InDelta(t, 4.0, tbl.At(45), 1e-12)
	assert.Greater(t, tbl.At(40), tbl.At(50))
}

func TestCOPTable_Rejects(t *testing.T) {
	_, err := NewCOPTable([]COPPoint{{TemperatureC: 35, COP: 0}})
	assert.Error(t, err)
	_, err = NewCOPTable([]COPPoint{{TemperatureC: 35, COP: 4}, {TemperatureC: 35, COP: 3}})
	assert.Error(t, err)
}

func TestHeatPump(t *testing.T) {
	tbl, err := NewCOPTable([]COPPoint{{TemperatureC: 35, COP: 4}})
	require.NoError(t, err)
	hp := HeatPump{MaxInputKWh: 2, COP: tbl}

	assert.InDelta(t, 1.0, hp.InputForHeat(4, 35), 1e-12)
	assert.InDelta(t, 2.0, hp.InputForHeat(40, 35), 1e-12)
	assert.InDelta(t, 6.0, hp.HeatFromInput(1.5, 35), 1e-12)
	assert.Equal(t, 0.0, hp.InputForHeat(-1, 35))
}

func TestActionFromSOCChange(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromSOCChange(1))
	assert.Equal(t, ActionDischarging, ActionFromSOCChange(-1))
	assert.Equal(t, ActionIdle, ActionFromSOCChange(0))
}

func TestPercentile(t *testing.T) {
	vals := []float64{4, 1, 3, 2, 5}
	assert.Equal(t, 1.0, Percentile(vals, 0))
	assert.Equal(t, 5.0, Percentile(vals, 100))
	assert.Equal(t, 3.0, Percentile(vals, 50))
	assert.InDelta(t, 1.8, Percentile(vals, 20), 1e-12)
	assert.InDelta(t, 4.8, Percentile(vals, 95), 1e-12)
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, vals, "input left unsorted")
}
