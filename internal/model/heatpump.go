package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultCOP is used when a heat pump is configured without a COP table.
const DefaultCOP = 4.6

// COPPoint is one calibration point: the coefficient of performance when
// delivering heat at the given network (forward) temperature.
type COPPoint struct {
	TemperatureC float64 `json:"temperature_c" yaml:"temperature_c"`
	COP          float64 `json:"cop" yaml:"cop"`
}

// COPTable maps network temperature to COP. Lower delivery temperatures
// usually give a higher COP.
type COPTable struct {
	points []COPPoint // sorted by TemperatureC
}

func NewCOPTable(points []COPPoint) (COPTable, error) {
	if len(points) == 0 {
		return COPTable{points: []COPPoint{{TemperatureC: 0, COP: DefaultCOP}}}, nil
	}
	ps := append([]COPPoint(nil), points...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].TemperatureC < ps[j].TemperatureC })
	for i, p := range ps {
		if math.IsNaN(p.TemperatureC) || math.IsInf(p.TemperatureC, 0) {
			return COPTable{}, fmt.Errorf("cop_table[%d]: temperature is not finite", i)
		}
		if !(p.COP > 0) || math.IsInf(p.COP, 0) {
			return COPTable{}, fmt.Errorf("cop_table[%d]: cop must be > 0", i)
		}
		if i > 0 && ps[i-1].TemperatureC == p.TemperatureC {
			return COPTable{}, fmt.Errorf("cop_table: duplicate temperature %v", p.TemperatureC)
		}
	}
	return COPTable{points: ps}, nil
}

// At returns the COP for a network temperature, interpolating linearly
// between calibration points and holding the end values outside the range.
func (t COPTable) At(temperatureC float64) float64 {
	ps := t.points
	if len(ps) == 0 {
		return DefaultCOP
	}
	if temperatureC <= ps[0].TemperatureC {
		return ps[0].COP
	}
	last := ps[len(ps)-1]
	if temperatureC >= last.TemperatureC {
		return last.COP
	}
	i := sort.Search(len(ps), func(i int) bool { return ps[i].TemperatureC >= temperatureC })
	lo, hi := ps[i-1], ps[i]
	frac := (temperatureC - lo.TemperatureC) / (hi.TemperatureC - lo.TemperatureC)
	return lo.COP + frac*(hi.COP-lo.COP)
}

// HeatPump converts electricity into heat.
type HeatPump struct {
	// MaxInputKWh is the electrical input limit per period.
	MaxInputKWh float64
	COP         COPTable
}

func (h HeatPump) Validate() error {
	if h.MaxInputKWh <= 0 || math.IsInf(h.MaxInputKWh, 0) {
		return errors.New("max_input_kwh must be > 0")
	}
	return nil
}

// InputForHeat returns the electrical input needed to deliver `heat` kWh at
// the given temperature, capped at MaxInputKWh.
func (h HeatPump) InputForHeat(heat, temperatureC float64) float64 {
	if heat <= 0 {
		return 0
	}
	return math.Min(heat/h.COP.At(temperatureC), h.MaxInputKWh)
}

// HeatFromInput is the heat delivered for `input` kWh of electricity.
func (h HeatPump) HeatFromInput(input, temperatureC float64) float64 {
	if input <= 0 {
		return 0
	}
	return input * h.COP.At(temperatureC)
}
