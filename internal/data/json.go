package data

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"lec-market/internal/agent"
	"lec-market/internal/model"
)

// GridPriceFile is the on-disk shape of a grid price schedule:
//
//	{"electricity": [{"buy_price": 2.5, "sell_price": 1.5}, ...], "heating": [...]}
type GridPriceFile map[string][]model.GridPrice

// ForecastFile is the on-disk shape of the forecast provider, keyed by agent
// id then resource, indexed by period:
//
//	{"house-1": {"electricity": [-3.2, -2.9, ...]}}
type ForecastFile map[string]map[string][]float64

func LoadGridPricesJSON(path string) (map[model.Resource][]model.GridPrice, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f GridPriceFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Series()
}

// Series converts the file shape into a typed schedule input.
func (f GridPriceFile) Series() (map[model.Resource][]model.GridPrice, error) {
	out := make(map[model.Resource][]model.GridPrice, len(f))
	for name, s := range f {
		r, err := model.ParseResource(name)
		if err != nil {
			return nil, err
		}
		out[r] = s
	}
	return out, nil
}

func LoadForecastsJSON(path string) (ForecastFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ForecastFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Provider builds an in-memory forecast provider. Later files win over
// earlier ones for the same (agent, resource).
func Provider(files ...ForecastFile) (agent.MapProvider, error) {
	p := agent.MapProvider{}
	for _, f := range files {
		ids := make([]string, 0, len(f))
		for id := range f {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			for name, series := range f[id] {
				r, err := model.ParseResource(name)
				if err != nil {
					return nil, fmt.Errorf("forecast for %s: %w", id, err)
				}
				p.Set(id, r, series)
			}
		}
	}
	return p, nil
}
