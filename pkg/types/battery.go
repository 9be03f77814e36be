package types

import (
	"fmt"
	"math"
)

// BatteryState is the home battery as seen by the dispatch engine. It is owned
// by exactly one household session and only the engine writes ChargeKWH.
type BatteryState struct {
	CapacityKWH         float64 `json:"capacityKWH"`
	ChargeKWH           float64 `json:"chargeKWH"`
	ChargeEfficiency    float64 `json:"chargeEfficiency"`
	DischargeEfficiency float64 `json:"dischargeEfficiency"`
}

// DefaultBatteryState returns a 20 kWh battery at half charge with 90%
// efficiency in both directions.
func DefaultBatteryState() BatteryState {
	return BatteryState{
		CapacityKWH:         20,
		ChargeKWH:           10,
		ChargeEfficiency:    0.9,
		DischargeEfficiency: 0.9,
	}
}

// Validate reports whether the battery parameters are usable.
func (b BatteryState) Validate() error {
	if !finite(b.CapacityKWH) || b.CapacityKWH <= 0 {
		return fmt.Errorf("capacity must be positive, got %v", b.CapacityKWH)
	}
	if !finite(b.ChargeKWH) || b.ChargeKWH < 0 || b.ChargeKWH > b.CapacityKWH {
		return fmt.Errorf("charge %v outside [0, %v]", b.ChargeKWH, b.CapacityKWH)
	}
	if !finite(b.ChargeEfficiency) || b.ChargeEfficiency <= 0 || b.ChargeEfficiency > 1 {
		return fmt.Errorf("charge efficiency %v outside (0, 1]", b.ChargeEfficiency)
	}
	if !finite(b.DischargeEfficiency) || b.DischargeEfficiency <= 0 || b.DischargeEfficiency > 1 {
		return fmt.Errorf("discharge efficiency %v outside (0, 1]", b.DischargeEfficiency)
	}
	return nil
}

// RoundTripEfficiency is the fraction of energy recovered after charging and
// then discharging the same amount.
func (b BatteryState) RoundTripEfficiency() float64 {
	return b.ChargeEfficiency * b.DischargeEfficiency
}

// BatteryAction is the direction the battery is driven for one cycle.
type BatteryAction string

const (
	BatteryActionCharge    BatteryAction = "charge"
	BatteryActionDischarge BatteryAction = "discharge"
)

// Decision is the high level advice shown to the user.
type Decision string

const (
	DecisionStoreSurplus    Decision = "storeSurplus"
	DecisionUseBattery      Decision = "useBattery"
	DecisionUseSolarBuyRest Decision = "useSolarBuyRest"
	DecisionBuyEnergy       Decision = "buyEnergy"
)

// Description returns a short human readable form of the decision.
func (d Decision) Description() string {
	switch d {
	case DecisionStoreSurplus:
		return "store surplus"
	case DecisionUseBattery:
		return "use battery"
	case DecisionUseSolarBuyRest:
		return "use solar, buy rest"
	case DecisionBuyEnergy:
		return "buy energy"
	default:
		return string(d)
	}
}

// DispatchResult is the outcome of one dispatch engine invocation.
type DispatchResult struct {
	Decision      Decision      `json:"decision"`
	BatteryAction BatteryAction `json:"batteryAction"`
	// BatteryChargeKWH mirrors BatteryState.ChargeKWH after the update.
	BatteryChargeKWH float64 `json:"batteryChargeKWH"`
	// BatteryChangeKWH is the magnitude moved into or out of the battery.
	BatteryChangeKWH float64 `json:"batteryChangeKWH"`
	// ExpectedCost is in currency units, rounded to 2 decimal places.
	ExpectedCost float64 `json:"expectedCost"`
	NetDemandKWH float64 `json:"netDemandKWH"`
	// Effective flows may be negative; they are clamped only in NetDemandKWH.
	EffectiveConsumptionKWH float64 `json:"effectiveConsumptionKWH"`
	EffectiveSolarKWH       float64 `json:"effectiveSolarKWH"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
