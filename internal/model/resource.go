package model

import "fmt"

// Resource is a tradable energy carrier.
// Keep these values stable; they are intended for CSV/JSON output.
type Resource string

const (
	Electricity Resource = "electricity"
	Heating     Resource = "heating"
)

// Resources lists every resource in clearing order.
var Resources = []Resource{Electricity, Heating}

func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case Electricity, Heating:
		return Resource(s), nil
	default:
		return "", fmt.Errorf("unknown resource %q", s)
	}
}

// Side is the direction of a bid from the bidder's point of view.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Counterparty tells whether a fill was matched inside the community or
// absorbed by the external grid.
type Counterparty string

const (
	Local Counterparty = "LOCAL"
	Grid  Counterparty = "GRID"
)
