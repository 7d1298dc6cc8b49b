package agent

import "lec-market/internal/model"

// Provider is the externally computed forecast time series. The agents
// perform no statistical modeling themselves.
type Provider interface {
	// Forecast returns the signed quantity for an agent, resource and period
	// (positive = surplus). ok is false when no value exists.
	Forecast(agentID string, r model.Resource, period int) (float64, bool)
}

// SeriesKey identifies one forecast series.
type SeriesKey struct {
	AgentID  string
	Resource model.Resource
}

// MapProvider is an in-memory Provider keyed by agent and resource, indexed
// by period.
type MapProvider map[SeriesKey][]float64

func (m MapProvider) Forecast(agentID string, r model.Resource, period int) (float64, bool) {
	s, ok := m[SeriesKey{AgentID: agentID, Resource: r}]
	if !ok || period < 0 || period >= len(s) {
		return 0, false
	}
	return s[period], true
}

// Set stores a series, copying the values.
func (m MapProvider) Set(agentID string, r model.Resource, values []float64) {
	m[SeriesKey{AgentID: agentID, Resource: r}] = append([]float64(nil), values...)
}
