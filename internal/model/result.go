package model

// ClearingResult is one filled leg for an agent in a (resource, period).
// A local trade produces two legs (buyer and seller) sharing TradeID; a grid
// exchange produces a single leg with TradeID 0. Results are immutable.
type ClearingResult struct {
	Period       int          `json:"period"`
	AgentID      string       `json:"agent_id"`
	Resource     Resource     `json:"resource"`
	Side         Side         `json:"side"`
	Quantity     float64      `json:"quantity"`
	Price        float64      `json:"price"`
	Counterparty Counterparty `json:"counterparty"`
	TradeID      int          `json:"trade_id"`
}

// Value is quantity × price.
func (r ClearingResult) Value() float64 {
	return r.Quantity * r.Price
}
