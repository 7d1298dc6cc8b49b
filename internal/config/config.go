package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lec-market/internal/agent"
	"lec-market/internal/data"
	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkers      = 4
	DefaultTemperatureC = 65
)

// Agent types accepted in the agents list.
const (
	TypeBuilding     = "building"
	TypeStorage      = "storage"
	TypeGroceryStore = "grocery_store"
)

// Config is the on-disk configuration shape (YAML). The same structs are
// accepted as JSON by the HTTP API.
type Config struct {
	Horizon     int               `yaml:"horizon" json:"horizon"`
	Workers     int               `yaml:"workers" json:"workers"`
	Log         LogConfig         `yaml:"log" json:"log"`
	HeatNetwork HeatNetworkConfig `yaml:"heat_network" json:"heat_network"`

	// Optional: load grid prices from a JSON file. Inline grid_prices
	// override the file per resource.
	GridPricesFile string                          `yaml:"grid_prices_file" json:"grid_prices_file,omitempty"`
	GridPrices     map[string][]model.GridPrice    `yaml:"grid_prices" json:"grid_prices,omitempty"`
	ForecastsFile  string                          `yaml:"forecasts_file" json:"forecasts_file,omitempty"`
	Forecasts      map[string]map[string][]float64 `yaml:"forecasts" json:"forecasts,omitempty"`

	Agents []AgentConfig `yaml:"agents" json:"agents"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"` // json | console
	Development bool   `yaml:"development" json:"development"`
}

type HeatNetworkConfig struct {
	// TemperatureC applies to every period unless TemperaturesC is given.
	TemperatureC  float64   `yaml:"temperature_c" json:"temperature_c"`
	TemperaturesC []float64 `yaml:"temperatures_c" json:"temperatures_c,omitempty"`
}

type AgentConfig struct {
	ID         string   `yaml:"id" json:"id"`
	Type       string   `yaml:"type" json:"type"`
	Capability string   `yaml:"capability" json:"capability,omitempty"`
	Resources  []string `yaml:"resources" json:"resources,omitempty"`

	HeatPump *HeatPumpConfig `yaml:"heat_pump" json:"heat_pump,omitempty"`
	SellHeat bool            `yaml:"sell_heat" json:"sell_heat,omitempty"`

	// Optional: load storage parameters from a separate YAML. If both are
	// provided, Storage overrides StorageFile field by field.
	StorageFile string         `yaml:"storage_file" json:"storage_file,omitempty"`
	Storage     *StorageConfig `yaml:"storage" json:"storage,omitempty"`

	WasteHeat *WasteHeatConfig `yaml:"waste_heat" json:"waste_heat,omitempty"`
}

type HeatPumpConfig struct {
	MaxInputKWh float64          `yaml:"max_input_kwh" json:"max_input_kwh"`
	COPTable    []model.COPPoint `yaml:"cop_table" json:"cop_table,omitempty"`
}

type StorageConfig struct {
	Name                string  `yaml:"name" json:"name,omitempty"`
	CapacityKWh         float64 `yaml:"capacity_kwh" json:"capacity_kwh"`
	ChargeRate          float64 `yaml:"charge_rate" json:"charge_rate"`
	DischargeRate       float64 `yaml:"discharge_rate" json:"discharge_rate"`
	ChargeEfficiency    float64 `yaml:"charge_efficiency" json:"charge_efficiency"`
	DischargeEfficiency float64 `yaml:"discharge_efficiency" json:"discharge_efficiency"`
	InitialSOC          float64 `yaml:"initial_soc" json:"initial_soc"`
	Lookback            int     `yaml:"lookback" json:"lookback"`
	ChargePercentile    float64 `yaml:"charge_percentile" json:"charge_percentile"`
	DischargePercentile float64 `yaml:"discharge_percentile" json:"discharge_percentile"`

	// Policy is "percentile" (default) or "schedule".
	Policy   string          `yaml:"policy" json:"policy,omitempty"`
	Schedule *ScheduleConfig `yaml:"schedule" json:"schedule,omitempty"`
}

// ScheduleConfig holds daily charge and discharge windows as "HH:MM".
type ScheduleConfig struct {
	ChargeStart    string `yaml:"charge_start" json:"charge_start"`
	ChargeEnd      string `yaml:"charge_end" json:"charge_end,omitempty"`
	DischargeStart string `yaml:"discharge_start" json:"discharge_start"`
	DischargeEnd   string `yaml:"discharge_end" json:"discharge_end,omitempty"`
	PeriodMinutes  int    `yaml:"period_minutes" json:"period_minutes,omitempty"`
}

type WasteHeatConfig struct {
	EmissionTemperatureC float64 `yaml:"emission_temperature_c" json:"emission_temperature_c"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config and merges referenced files, but does not
// validate it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if err := c.Resolve(filepath.Dir(path)); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	return &c, nil
}

// Resolve loads every referenced data file, interpreting relative paths
// against dir first and the working directory second. After Resolve the
// config is self-contained.
func (c *Config) Resolve(dir string) error {
	if c.GridPricesFile != "" {
		series, err := data.LoadGridPricesJSON(resolvePath(dir, c.GridPricesFile))
		if err != nil {
			return &model.ConfigurationError{Field: "grid_prices_file", Reason: err.Error(), Err: err}
		}
		merged := make(map[string][]model.GridPrice, len(series))
		for r, s := range series {
			merged[string(r)] = s
		}
		for r, s := range c.GridPrices {
			merged[r] = s
		}
		c.GridPrices = merged
		c.GridPricesFile = ""
	}
	if c.ForecastsFile != "" {
		f, err := data.LoadForecastsJSON(resolvePath(dir, c.ForecastsFile))
		if err != nil {
			return &model.ConfigurationError{Field: "forecasts_file", Reason: err.Error(), Err: err}
		}
		merged := make(map[string]map[string][]float64, len(f))
		for id, series := range f {
			merged[id] = series
		}
		for id, series := range c.Forecasts {
			if merged[id] == nil {
				merged[id] = map[string][]float64{}
			}
			for r, s := range series {
				merged[id][r] = s
			}
		}
		c.Forecasts = merged
		c.ForecastsFile = ""
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.StorageFile == "" {
			continue
		}
		loaded, err := LoadStorageFile(resolvePath(dir, a.StorageFile))
		if err != nil {
			return &model.ConfigurationError{Field: fmt.Sprintf("agents[%d].storage_file", i), Reason: err.Error(), Err: err}
		}
		override := StorageConfig{}
		if a.Storage != nil {
			override = *a.Storage
		}
		merged := MergeStorage(loaded, override)
		a.Storage = &merged
		a.StorageFile = ""
	}
	return nil
}

// FileRefs lists the fields that still reference files on disk.
func (c *Config) FileRefs() []string {
	var out []string
	if c.GridPricesFile != "" {
		out = append(out, "grid_prices_file")
	}
	if c.ForecastsFile != "" {
		out = append(out, "forecasts_file")
	}
	for i, a := range c.Agents {
		if a.StorageFile != "" {
			out = append(out, fmt.Sprintf("agents[%d].storage_file", i))
		}
	}
	return out
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
	if c.HeatNetwork.TemperatureC == 0 && len(c.HeatNetwork.TemperaturesC) == 0 {
		c.HeatNetwork.TemperatureC = DefaultTemperatureC
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Type == "" {
			a.Type = TypeBuilding
		}
		if s := a.Storage; s != nil {
			if s.ChargeRate == 0 {
				s.ChargeRate = 1
			}
			if s.DischargeRate == 0 {
				s.DischargeRate = 1
			}
			if s.ChargeEfficiency == 0 {
				s.ChargeEfficiency = 1
			}
			if s.DischargeEfficiency == 0 {
				s.DischargeEfficiency = 1
			}
			if s.Lookback == 0 {
				s.Lookback = agent.DefaultLookback
			}
			if s.ChargePercentile == 0 && s.DischargePercentile == 0 {
				s.ChargePercentile = agent.DefaultChargePercentile
				s.DischargePercentile = agent.DefaultDischargePercentile
			}
		}
	}
}

// Validate builds the scenario and discards it, so anything Build would
// reject is reported here as a *model.ConfigurationError.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return &model.ConfigurationError{Field: "log.encoding", Reason: fmt.Sprintf("unknown encoding %q", c.Log.Encoding)}
	}
	if c.Workers < 0 {
		return &model.ConfigurationError{Field: "workers", Reason: "must be >= 0"}
	}
	sc, err := c.Build()
	if err != nil {
		return err
	}
	return simulation.Validate(sc)
}

// Build constructs agents, the grid proxy and the forecast provider.
func (c *Config) Build() (simulation.Scenario, error) {
	series := make(map[model.Resource][]model.GridPrice, len(c.GridPrices))
	names := make([]string, 0, len(c.GridPrices))
	for name := range c.GridPrices {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r, err := model.ParseResource(name)
		if err != nil {
			return simulation.Scenario{}, &model.ConfigurationError{Field: "grid_prices." + name, Reason: err.Error()}
		}
		series[r] = c.GridPrices[name]
	}

	provider, err := data.Provider(data.ForecastFile(c.Forecasts))
	if err != nil {
		return simulation.Scenario{}, &model.ConfigurationError{Field: "forecasts", Reason: err.Error()}
	}

	agents := make([]agent.Agent, 0, len(c.Agents))
	for i, ac := range c.Agents {
		a, err := ac.build(provider)
		if err != nil {
			return simulation.Scenario{}, &model.ConfigurationError{Field: fmt.Sprintf("agents[%d]", i), Reason: err.Error(), Err: err}
		}
		agents = append(agents, a)
	}

	temps := c.HeatNetwork.TemperaturesC
	if len(temps) == 0 {
		temps = []float64{c.HeatNetwork.TemperatureC}
	}
	return simulation.Scenario{
		Horizon:             c.Horizon,
		Agents:              agents,
		Grid:                agent.NewGridProxy("", model.NewGridPriceSchedule(series)),
		NetworkTemperatureC: append([]float64(nil), temps...),
	}, nil
}

func (a AgentConfig) build(provider agent.Provider) (agent.Agent, error) {
	if a.ID == "" {
		return nil, errors.New("id is required")
	}
	switch a.Type {
	case TypeBuilding:
		capability := agent.ConsumerProducer
		if a.Capability != "" {
			c, err := agent.ParseCapability(a.Capability)
			if err != nil {
				return nil, err
			}
			capability = c
		}
		resources, err := parseResources(a.Resources)
		if err != nil {
			return nil, err
		}
		var hp *model.HeatPump
		if a.HeatPump != nil {
			tbl, err := model.NewCOPTable(a.HeatPump.COPTable)
			if err != nil {
				return nil, err
			}
			hp = &model.HeatPump{MaxInputKWh: a.HeatPump.MaxInputKWh, COP: tbl}
			if len(resources) == 0 {
				resources = []model.Resource{model.Electricity, model.Heating}
			}
		}
		return agent.NewBuilding(agent.BuildingParams{
			ID:         a.ID,
			Capability: capability,
			Resources:  resources,
			HeatPump:   hp,
			SellHeat:   a.SellHeat,
		}, provider)

	case TypeStorage:
		if a.Storage == nil {
			return nil, errors.New("storage parameters are required")
		}
		unit, err := model.NewStorage(a.Storage.ToModelParams(), a.Storage.InitialSOC)
		if err != nil {
			return nil, fmt.Errorf("storage config invalid: %w", err)
		}
		policy, err := a.Storage.policy()
		if err != nil {
			return nil, err
		}
		return agent.NewStorage(agent.StorageParams{
			ID:                  a.ID,
			Unit:                unit,
			Lookback:            a.Storage.Lookback,
			ChargePercentile:    a.Storage.ChargePercentile,
			DischargePercentile: a.Storage.DischargePercentile,
			Policy:              policy,
		})

	case TypeGroceryStore:
		if a.WasteHeat == nil {
			return nil, errors.New("waste_heat is required")
		}
		return agent.NewGroceryStore(agent.GroceryStoreParams{
			ID:                   a.ID,
			EmissionTemperatureC: a.WasteHeat.EmissionTemperatureC,
		}, provider)

	default:
		return nil, fmt.Errorf("unknown agent type %q", a.Type)
	}
}

func parseResources(names []string) ([]model.Resource, error) {
	out := make([]model.Resource, 0, len(names))
	for _, n := range names {
		r, err := model.ParseResource(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s StorageConfig) ToModelParams() model.StorageParams {
	return model.StorageParams{
		CapacityKWh:         s.CapacityKWh,
		ChargeRate:          s.ChargeRate,
		DischargeRate:       s.DischargeRate,
		ChargeEfficiency:    s.ChargeEfficiency,
		DischargeEfficiency: s.DischargeEfficiency,
	}
}

type storageFileWrapper struct {
	Storage StorageConfig `yaml:"storage"`
}

// LoadStorageFile reads a storage preset of the form {storage: {...}}.
func LoadStorageFile(path string) (StorageConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StorageConfig{}, err
	}
	var w storageFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return StorageConfig{}, err
	}
	return w.Storage, nil
}

// policy returns nil for the percentile policy, which the agent builds
// from the percentile fields.
func (s StorageConfig) policy() (agent.Policy, error) {
	switch s.Policy {
	case "", "percentile":
		return nil, nil
	case "schedule":
		if s.Schedule == nil {
			return nil, errors.New("schedule policy requires a schedule block")
		}
		return agent.NewSchedulePolicy(agent.ScheduleParams{
			ChargeStart:    s.Schedule.ChargeStart,
			ChargeEnd:      s.Schedule.ChargeEnd,
			DischargeStart: s.Schedule.DischargeStart,
			DischargeEnd:   s.Schedule.DischargeEnd,
			PeriodMinutes:  s.Schedule.PeriodMinutes,
		})
	default:
		return nil, fmt.Errorf("unsupported storage policy: %q", s.Policy)
	}
}

// MergeStorage overlays non-zero fields from override onto base.
func MergeStorage(base, override StorageConfig) StorageConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.CapacityKWh != 0 {
		out.CapacityKWh = override.CapacityKWh
	}
	if override.ChargeRate != 0 {
		out.ChargeRate = override.ChargeRate
	}
	if override.DischargeRate != 0 {
		out.DischargeRate = override.DischargeRate
	}
	if override.ChargeEfficiency != 0 {
		out.ChargeEfficiency = override.ChargeEfficiency
	}
	if override.DischargeEfficiency != 0 {
		out.DischargeEfficiency = override.DischargeEfficiency
	}
	// Note: an initial SOC of 0 cannot override a non-zero file value.
	if override.InitialSOC != 0 {
		out.InitialSOC = override.InitialSOC
	}
	if override.Lookback != 0 {
		out.Lookback = override.Lookback
	}
	if override.ChargePercentile != 0 {
		out.ChargePercentile = override.ChargePercentile
	}
	if override.DischargePercentile != 0 {
		out.DischargePercentile = override.DischargePercentile
	}
	if override.Policy != "" {
		out.Policy = override.Policy
	}
	if override.Schedule != nil {
		out.Schedule = override.Schedule
	}
	return out
}
