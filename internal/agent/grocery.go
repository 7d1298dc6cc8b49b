package agent

import (
	"errors"
	"fmt"

	"lec-market/internal/model"
)

// GroceryStoreParams configures a waste-heat producer.
type GroceryStoreParams struct {
	ID string
	// EmissionTemperatureC is the temperature of the recoverable waste heat
	// (e.g. from refrigeration condensers).
	EmissionTemperatureC float64
}

// GroceryStore trades electricity like a building and offers its waste heat
// to the network only when the network runs at or below the temperature the
// heat is emitted at. Otherwise the heat is self-consumed and no heat sell
// bid is made.
type GroceryStore struct {
	*Building
	emissionTempC float64
}

func NewGroceryStore(p GroceryStoreParams, provider Provider) (*GroceryStore, error) {
	if p.ID == "" {
		return nil, errors.New("grocery store id is required")
	}
	b, err := NewBuilding(BuildingParams{
		ID:         p.ID,
		Capability: ConsumerProducer,
		Resources:  []model.Resource{model.Electricity, model.Heating},
	}, provider)
	if err != nil {
		return nil, fmt.Errorf("grocery store: %w", err)
	}
	return &GroceryStore{Building: b, emissionTempC: p.EmissionTemperatureC}, nil
}

// CanDeliverHeat reports whether waste heat can enter the network this period.
func (g *GroceryStore) CanDeliverHeat(p Period) bool {
	return p.NetworkTemperatureC <= g.emissionTempC
}

func (g *GroceryStore) MakeBids(p Period, f Forecast) ([]model.Bid, error) {
	adj := make(Forecast, len(f))
	for r, v := range f {
		adj[r] = v
	}
	if adj[model.Heating] > 0 && !g.CanDeliverHeat(p) {
		adj[model.Heating] = 0
	}
	return g.Building.MakeBids(p, adj)
}
