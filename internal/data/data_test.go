package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadGridPricesJSON(t *testing.T) {
	p := writeFile(t, "prices.json", `{"electricity":[{"buy_price":2.5,"sell_price":1.5},{"buy_price":3,"sell_price":1}]}`)
	series, err := LoadGridPricesJSON(p)
	require.NoError(t, err)
	require.Len(t, series[model.Electricity], 2)
	assert.Equal(t, 3.0, series[model.Electricity][1].BuyPrice)

	bad := writeFile(t, "bad.json", `{"gas":[]}`)
	_, err = LoadGridPricesJSON(bad)
	assert.Error(t, err)
}

func TestProvider_LaterFilesWin(t *testing.T) {
	p := writeFile(t, "f.json", `{"house":{"electricity":[-1,-2]},"shop":{"heating":[4]}}`)
	f, err := LoadForecastsJSON(p)
	require.NoError(t, err)

	prov, err := Provider(f, ForecastFile{"house": {"electricity": {-9}}})
	require.NoError(t, err)

	v, ok := prov.Forecast("house", model.Electricity, 0)
	require.True(t, ok)
	assert.Equal(t, -9.0, v)
	_, ok = prov.Forecast("house", model.Electricity, 1)
	assert.False(t, ok)
	v, ok = prov.Forecast("shop", model.Heating, 0)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestRunCache_Expiry(t *testing.T) {
	c := NewRunCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	run := c.Put(&simulation.Result{Periods: 3}, model.GridPriceSchedule{})
	require.NotEmpty(t, run.ID)

	got, ok := c.Get(run.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Result.Periods)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(run.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Prune())
	assert.Zero(t, c.Len())
}

func TestRunCache_NilAndMissing(t *testing.T) {
	var c *RunCache
	_, ok := c.Get("x")
	assert.False(t, ok)

	c = NewRunCache(0)
	_, ok = c.Get("missing")
	assert.False(t, ok)
}
