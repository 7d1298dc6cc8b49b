package handlers

import (
	"net/http"

	"lec-market/internal/agent"
	"lec-market/internal/api/models"
	"lec-market/internal/config"
	"lec-market/internal/model"

	"github.com/gin-gonic/gin"
)

// AgentTypeHandler describes the agent types a config may use
type AgentTypeHandler struct{}

// NewAgentTypeHandler creates a new agent type handler
func NewAgentTypeHandler() *AgentTypeHandler {
	return &AgentTypeHandler{}
}

// ListAgentTypes handles GET /api/v1/agent-types
func (h *AgentTypeHandler) ListAgentTypes(c *gin.Context) {
	types := []models.AgentTypeInfo{
		{
			Type:         config.TypeBuilding,
			Description:  "Bids its forecast net position per resource at the grid's prices. Optionally runs a heat pump that converts electricity into heat.",
			Capabilities: []string{string(agent.Consumer), string(agent.Producer), string(agent.ConsumerProducer)},
			Parameters: []models.ParameterInfo{
				{
					Name:        "capability",
					Type:        "string",
					Description: "consumer never sells, producer never buys",
					Default:     string(agent.ConsumerProducer),
				},
				{
					Name:        "resources",
					Type:        "string[]",
					Description: "Resources the building trades",
					Default:     []string{string(model.Electricity)},
				},
				{
					Name:        "heat_pump.max_input_kwh",
					Type:        "float",
					Description: "Electrical input limit per period",
				},
				{
					Name:        "heat_pump.cop_table",
					Type:        "object",
					Description: "COP per network temperature, interpolated linearly",
					Default:     []model.COPPoint{{TemperatureC: 0, COP: model.DefaultCOP}},
				},
				{
					Name:        "sell_heat",
					Type:        "bool",
					Description: "Convert an electricity surplus into heat for sale",
					Default:     false,
				},
			},
		},
		{
			Type:         config.TypeStorage,
			Description:  "Charges when the grid price is low relative to its trailing window and discharges when it is high.",
			Capabilities: []string{string(agent.StorageUnit)},
			Parameters: []models.ParameterInfo{
				{Name: "storage.capacity_kwh", Type: "float", Description: "Usable capacity in kWh"},
				{Name: "storage.charge_rate", Type: "float", Description: "Fraction of capacity chargeable per period", Default: 1.0},
				{Name: "storage.discharge_rate", Type: "float", Description: "Fraction of capacity dischargeable per period", Default: 1.0},
				{Name: "storage.charge_efficiency", Type: "float", Description: "Applied at settlement", Default: 1.0},
				{Name: "storage.discharge_efficiency", Type: "float", Description: "Applied at settlement", Default: 1.0},
				{Name: "storage.initial_soc", Type: "float", Description: "Stored energy at period 0 in kWh", Default: 0.0},
				{Name: "storage.lookback", Type: "int", Description: "Periods of price history kept", Default: agent.DefaultLookback},
				{Name: "storage.charge_percentile", Type: "float", Description: "Charge at or below this price percentile", Default: agent.DefaultChargePercentile},
				{Name: "storage.discharge_percentile", Type: "float", Description: "Discharge at or above this price percentile", Default: agent.DefaultDischargePercentile},
				{Name: "storage.policy", Type: "string", Description: "percentile or schedule", Default: "percentile"},
				{Name: "storage.schedule", Type: "object", Description: "Daily HH:MM charge/discharge windows for the schedule policy"},
			},
		},
		{
			Type:         config.TypeGroceryStore,
			Description:  "Trades electricity like a building and sells waste heat only while the network runs at or below the emission temperature.",
			Capabilities: []string{string(agent.ConsumerProducer)},
			Parameters: []models.ParameterInfo{
				{Name: "waste_heat.emission_temperature_c", Type: "float", Description: "Temperature of the recoverable heat"},
			},
		},
	}

	c.JSON(http.StatusOK, gin.H{"agent_types": types})
}
