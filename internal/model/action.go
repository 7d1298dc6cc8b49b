package model

// Action is a human-friendly operating mode of a storage unit for a period.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromSOCChange maps a signed SOC change (kWh) to an action.
func ActionFromSOCChange(delta float64) Action {
	switch {
	case delta > 0:
		return ActionCharging
	case delta < 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
