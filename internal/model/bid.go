package model

import "math"

// Bid is an agent's declared willingness to buy or sell a quantity of a
// resource at a unit price for one period. Bids are values; once built they
// are never mutated.
type Bid struct {
	AgentID  string
	Resource Resource
	Side     Side
	Quantity float64 // kWh, >= 0
	Price    float64 // per kWh
	Period   int
	// Seq orders multiple bids from the same agent, resource and side.
	Seq int
}

// NewBid validates and returns a bid. Invalid bids are reported as
// *BidValidationError and must be dropped by the caller.
func NewBid(agentID string, period int, resource Resource, side Side, quantity, price float64) (Bid, error) {
	b := Bid{
		AgentID:  agentID,
		Resource: resource,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Period:   period,
	}
	if err := b.Validate(); err != nil {
		return Bid{}, err
	}
	return b, nil
}

func (b Bid) Validate() error {
	reason := ""
	switch {
	case b.AgentID == "":
		reason = "agent id is empty"
	case b.Side != Buy && b.Side != Sell:
		reason = "side must be BUY or SELL"
	case b.Resource != Electricity && b.Resource != Heating:
		reason = "unknown resource"
	case math.IsNaN(b.Quantity) || math.IsInf(b.Quantity, 0):
		reason = "quantity is not finite"
	case b.Quantity < 0:
		reason = "quantity is negative"
	case math.IsNaN(b.Price) || math.IsInf(b.Price, 0):
		reason = "price is not finite"
	}
	if reason == "" {
		return nil
	}
	return &BidValidationError{AgentID: b.AgentID, Resource: b.Resource, Period: b.Period, Reason: reason}
}
