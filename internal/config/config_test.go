package config

import (
	"os"
	"path/filepath"
	"testing"

	"lec-market/internal/agent"
	"lec-market/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
horizon: 2
log:
  level: debug
heat_network:
  temperatures_c: [40, 65]
grid_prices_file: prices.json
grid_prices:
  heating:
    - {buy_price: 1.0, sell_price: 0.4}
    - {buy_price: 1.0, sell_price: 0.4}
forecasts_file: forecasts.json
agents:
  - id: house
    capability: consumer
  - id: hp-house
    heat_pump:
      max_input_kwh: 3
      cop_table:
        - {temperature_c: 35, cop: 5}
        - {temperature_c: 65, cop: 2.5}
  - id: battery
    type: storage
    storage_file: battery.yaml
    storage:
      initial_soc: 2
  - id: coop
    type: grocery_store
    waste_heat:
      emission_temperature_c: 45
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"config.yaml":    sampleYAML,
		"prices.json":    `{"electricity":[{"buy_price":2.5,"sell_price":1.5},{"buy_price":2.5,"sell_price":1.5}]}`,
		"forecasts.json": `{"house":{"electricity":[-4,-4]},"coop":{"heating":[6,6]}}`,
		"battery.yaml":   "storage:\n  capacity_kwh: 10\n  charge_rate: 0.5\n  discharge_rate: 0.5\n  charge_efficiency: 0.9\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return filepath.Join(dir, "config.yaml")
}

func TestLoad_ResolvesFilesAndDefaults(t *testing.T) {
	c, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, c.Workers)
	assert.Equal(t, "json", c.Log.Encoding)
	assert.Len(t, c.GridPrices["electricity"], 2)
	assert.Len(t, c.GridPrices["heating"], 2)
	assert.Equal(t, []float64{-4, -4}, c.Forecasts["house"]["electricity"])

	require.NotNil(t, c.Agents[2].Storage)
	s := c.Agents[2].Storage
	assert.Equal(t, 10.0, s.CapacityKWh)
	assert.Equal(t, 0.9, s.ChargeEfficiency)
	assert.Equal(t, 1.0, s.DischargeEfficiency, "defaulted")
	assert.Equal(t, 2.0, s.InitialSOC, "override from inline storage")
	assert.Equal(t, agent.DefaultLookback, s.Lookback)
	assert.Equal(t, TypeBuilding, c.Agents[0].Type)
}

func TestBuild_ConstructsAgents(t *testing.T) {
	c, err := Load(writeSample(t))
	require.NoError(t, err)
	sc, err := c.Build()
	require.NoError(t, err)

	require.Len(t, sc.Agents, 4)
	assert.Equal(t, 2, sc.Horizon)
	assert.Equal(t, []float64{40, 65}, sc.NetworkTemperatureC)

	caps := map[string]agent.Capability{}
	for _, a := range sc.Agents {
		caps[a.ID()] = a.Capability()
	}
	assert.Equal(t, agent.Consumer, caps["house"])
	assert.Equal(t, agent.ConsumerProducer, caps["hp-house"])
	assert.Equal(t, agent.StorageUnit, caps["battery"])
	assert.Equal(t, agent.ConsumerProducer, caps["coop"])

	hp := sc.Agents[1]
	assert.Equal(t, []model.Resource{model.Electricity, model.Heating}, hp.Resources())

	bat, ok := sc.Agents[2].(agent.StorageHolder)
	require.True(t, ok)
	assert.Equal(t, 2.0, bat.Storage().State.SOC)

	buy, ok := sc.Grid.BuyPrice(1, model.Heating)
	require.True(t, ok)
	assert.Equal(t, 1.0, buy)
}

func TestValidate_MissingPricesIsConfigurationError(t *testing.T) {
	c := &Config{
		Horizon: 3,
		GridPrices: map[string][]model.GridPrice{
			"electricity": {{BuyPrice: 2, SellPrice: 1}},
		},
		Agents: []AgentConfig{{ID: "a", Capability: "consumer"}},
	}
	c.ApplyDefaults()
	err := c.Validate()
	require.Error(t, err)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "grid_prices.electricity", cfgErr.Field)
	assert.ErrorIs(t, err, model.ErrMissingGridPrice)
}

func TestValidate_RejectsBadAgents(t *testing.T) {
	base := func(a AgentConfig) *Config {
		c := &Config{
			Horizon:    1,
			GridPrices: map[string][]model.GridPrice{"electricity": {{BuyPrice: 2, SellPrice: 1}}},
			Agents:     []AgentConfig{a},
		}
		c.ApplyDefaults()
		return c
	}
	cases := map[string]AgentConfig{
		"unknown type":        {ID: "x", Type: "windmill"},
		"missing id":          {Capability: "consumer"},
		"bad capability":      {ID: "x", Capability: "hoarder"},
		"storage w/o params":  {ID: "x", Type: TypeStorage},
		"soc above capacity":  {ID: "x", Type: TypeStorage, Storage: &StorageConfig{CapacityKWh: 1, InitialSOC: 2}},
		"grocery w/o emitter": {ID: "x", Type: TypeGroceryStore},
		"bad resource":        {ID: "x", Resources: []string{"gas"}},
		"producer heat pump": {ID: "x", Capability: "producer", HeatPump: &HeatPumpConfig{
			MaxInputKWh: 3, COPTable: []model.COPPoint{{TemperatureC: 35, COP: 5}},
		}},
		"unknown policy":      {ID: "x", Type: TypeStorage, Storage: &StorageConfig{CapacityKWh: 1, Policy: "oracle"}},
		"schedule w/o block":  {ID: "x", Type: TypeStorage, Storage: &StorageConfig{CapacityKWh: 1, Policy: "schedule"}},
		"bad schedule time": {ID: "x", Type: TypeStorage, Storage: &StorageConfig{
			CapacityKWh: 1, Policy: "schedule", Schedule: &ScheduleConfig{ChargeStart: "9am", DischargeStart: "17:00"},
		}},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			err := base(a).Validate()
			require.Error(t, err)
			var cfgErr *model.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestValidate_UnknownLogEncoding(t *testing.T) {
	c := &Config{Log: LogConfig{Encoding: "xml"}}
	assert.Error(t, c.Validate())
}

func TestMergeStorage(t *testing.T) {
	base := StorageConfig{CapacityKWh: 10, ChargeRate: 0.5, InitialSOC: 3}
	out := MergeStorage(base, StorageConfig{ChargeRate: 0.25})
	assert.Equal(t, 10.0, out.CapacityKWh)
	assert.Equal(t, 0.25, out.ChargeRate)
	assert.Equal(t, 3.0, out.InitialSOC)
}

func TestBuild_SchedulePolicy(t *testing.T) {
	c := &Config{
		Horizon:    1,
		GridPrices: map[string][]model.GridPrice{"electricity": {{BuyPrice: 2, SellPrice: 1}}},
		Agents: []AgentConfig{{
			ID:   "bat",
			Type: TypeStorage,
			Storage: &StorageConfig{
				CapacityKWh: 10,
				Policy:      "schedule",
				Schedule:    &ScheduleConfig{ChargeStart: "00:00", ChargeEnd: "06:00", DischargeStart: "17:00", DischargeEnd: "21:00"},
			},
		}},
	}
	c.ApplyDefaults()
	require.NoError(t, c.Validate())

	sc, err := c.Build()
	require.NoError(t, err)
	require.Len(t, sc.Agents, 1)
	s, ok := sc.Agents[0].(*agent.Storage)
	require.True(t, ok)
	assert.Equal(t, "schedule", s.Policy().Name())
}

func TestLoad_ExampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "config.yaml"))
	require.NoError(t, err)

	sc, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, 24, sc.Horizon)
	assert.Len(t, sc.Agents, 6)

	byID := map[string]agent.Agent{}
	for _, a := range sc.Agents {
		byID[a.ID()] = a
	}
	community, ok := byID["community-battery"].(*agent.Storage)
	require.True(t, ok)
	assert.Equal(t, "schedule", community.Policy().Name())
	assert.Equal(t, 50.0, community.Storage().Params.CapacityKWh)
}
