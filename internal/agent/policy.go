package agent

import (
	"fmt"
	"strings"

	"lec-market/internal/model"
)

// Policy decides a storage unit's operating mode for a period. history holds
// the grid electricity buy prices of earlier periods, oldest first.
type Policy interface {
	Name() string
	Decide(p Period, history []float64) model.Action
}

// PercentilePolicy charges when the current buy price is at or below the
// charge percentile of the window (history plus the current price) and
// discharges at or above the discharge percentile.
type PercentilePolicy struct {
	ChargePercentile    float64
	DischargePercentile float64
}

func (PercentilePolicy) Name() string { return "percentile" }

func (pp PercentilePolicy) Decide(p Period, history []float64) model.Action {
	g, ok := p.Price(model.Electricity)
	if !ok {
		return model.ActionIdle
	}
	window := make([]float64, 0, len(history)+1)
	window = append(window, history...)
	window = append(window, g.BuyPrice)
	low := model.Percentile(window, pp.ChargePercentile)
	high := model.Percentile(window, pp.DischargePercentile)

	price := g.BuyPrice
	switch {
	case price <= low && price < high:
		return model.ActionCharging
	case price >= high && price > low:
		return model.ActionDischarging
	default:
		return model.ActionIdle
	}
}

// ScheduleParams implements a simple daily time-window policy:
// - Charge during [ChargeStart, ChargeEnd)
// - Discharge during [DischargeStart, DischargeEnd)
// - Otherwise IDLE
//
// Period 0 starts at 00:00 and each period lasts PeriodMinutes.
type ScheduleParams struct {
	ChargeStart    string // "HH:MM"
	ChargeEnd      string // "HH:MM" (optional; default = DischargeStart)
	DischargeStart string // "HH:MM"
	DischargeEnd   string // "HH:MM" (optional; default = DischargeStart => zero-length)
	PeriodMinutes  int    // default 60
}

type SchedulePolicy struct {
	csMins, ceMins int
	dsMins, deMins int
	periodMins     int
}

func NewSchedulePolicy(p ScheduleParams) (*SchedulePolicy, error) {
	cs, err := parseHHMM(p.ChargeStart)
	if err != nil {
		return nil, fmt.Errorf("charge_start: %w", err)
	}
	ds, err := parseHHMM(p.DischargeStart)
	if err != nil {
		return nil, fmt.Errorf("discharge_start: %w", err)
	}
	ce := ds
	if strings.TrimSpace(p.ChargeEnd) != "" {
		if ce, err = parseHHMM(p.ChargeEnd); err != nil {
			return nil, fmt.Errorf("charge_end: %w", err)
		}
	}
	de := ds
	if strings.TrimSpace(p.DischargeEnd) != "" {
		if de, err = parseHHMM(p.DischargeEnd); err != nil {
			return nil, fmt.Errorf("discharge_end: %w", err)
		}
	}
	if p.PeriodMinutes < 0 {
		return nil, fmt.Errorf("period_minutes must be > 0")
	}
	if p.PeriodMinutes == 0 {
		p.PeriodMinutes = 60
	}
	return &SchedulePolicy{csMins: cs, ceMins: ce, dsMins: ds, deMins: de, periodMins: p.PeriodMinutes}, nil
}

func (s *SchedulePolicy) Name() string { return "schedule" }

func (s *SchedulePolicy) Decide(p Period, _ []float64) model.Action {
	mins := (p.Index * s.periodMins) % (24 * 60)
	if inWindow(mins, s.csMins, s.ceMins) {
		return model.ActionCharging
	}
	if inWindow(mins, s.dsMins, s.deMins) {
		return model.ActionDischarging
	}
	return model.ActionIdle
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// start == end is an empty window; start > end wraps across midnight.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	return tMins >= start || tMins < end
}
