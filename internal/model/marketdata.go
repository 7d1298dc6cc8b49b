package model

import (
	"fmt"
	"math"
	"sort"
)

// GridPrice is the external grid's price pair for one resource and period.
// Both prices are from the community's point of view:
// - BuyPrice: what the community pays when importing from the grid (retail)
// - SellPrice: what the community receives when exporting to the grid (wholesale)
type GridPrice struct {
	BuyPrice  float64 `json:"buy_price" yaml:"buy_price"`
	SellPrice float64 `json:"sell_price" yaml:"sell_price"`
}

func (g GridPrice) Validate() error {
	if math.IsNaN(g.BuyPrice) || math.IsInf(g.BuyPrice, 0) {
		return fmt.Errorf("buy price %v is not finite", g.BuyPrice)
	}
	if math.IsNaN(g.SellPrice) || math.IsInf(g.SellPrice, 0) {
		return fmt.Errorf("sell price %v is not finite", g.SellPrice)
	}
	// The grid never pays more for energy than it charges for it.
	if g.SellPrice > g.BuyPrice {
		return fmt.Errorf("sell price %v exceeds buy price %v", g.SellPrice, g.BuyPrice)
	}
	return nil
}

// Clamp bounds a local clearing price so neither side does worse than it
// would trading with the grid directly.
func (g GridPrice) Clamp(price float64) float64 {
	if price > g.BuyPrice {
		return g.BuyPrice
	}
	if price < g.SellPrice {
		return g.SellPrice
	}
	return price
}

// GridPriceSchedule holds one price pair per period for every resource the
// grid trades. Index i of a series is period i.
type GridPriceSchedule struct {
	series map[Resource][]GridPrice
}

func NewGridPriceSchedule(series map[Resource][]GridPrice) GridPriceSchedule {
	cp := make(map[Resource][]GridPrice, len(series))
	for r, s := range series {
		cp[r] = append([]GridPrice(nil), s...)
	}
	return GridPriceSchedule{series: cp}
}

// Price returns the price pair for a resource and period.
func (s GridPriceSchedule) Price(r Resource, period int) (GridPrice, bool) {
	ps, ok := s.series[r]
	if !ok || period < 0 || period >= len(ps) {
		return GridPrice{}, false
	}
	return ps[period], true
}

// Resources returns the resources that have a series, in a stable order.
func (s GridPriceSchedule) Resources() []Resource {
	out := make([]Resource, 0, len(s.series))
	for r := range s.series {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len is the number of periods covered by the given resource.
func (s GridPriceSchedule) Len(r Resource) int {
	return len(s.series[r])
}

// Validate checks that every required resource has a valid price for each
// period in [0, horizon). Gaps are configuration errors.
func (s GridPriceSchedule) Validate(horizon int, required []Resource) error {
	if horizon <= 0 {
		return &ConfigurationError{Field: "horizon", Reason: "must be > 0"}
	}
	for _, r := range required {
		ps, ok := s.series[r]
		if !ok {
			return &ConfigurationError{
				Field:  "grid_prices." + string(r),
				Reason: "no price series",
				Err:    ErrMissingGridPrice,
			}
		}
		if len(ps) < horizon {
			return &ConfigurationError{
				Field:  "grid_prices." + string(r),
				Reason: fmt.Sprintf("covers %d periods, horizon is %d (first missing period %d)", len(ps), horizon, len(ps)),
				Err:    ErrMissingGridPrice,
			}
		}
		for i := 0; i < horizon; i++ {
			if err := ps[i].Validate(); err != nil {
				return &ConfigurationError{
					Field:  fmt.Sprintf("grid_prices.%s[%d]", r, i),
					Reason: err.Error(),
				}
			}
		}
	}
	return nil
}
