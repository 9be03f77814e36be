package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// ErrInvalidInput is returned when a forecast, price, threshold or battery
// state cannot be dispatched on.
var ErrInvalidInput = errors.New("invalid dispatch input")

// Controller decides how the home battery is driven for one cycle.
type Controller struct {
}

// NewController creates a new Controller.
func NewController() *Controller {
	return &Controller{}
}

// Dispatch picks the battery action for the next cycle, applies it to
// battery and reports the resulting grid demand and cost.
//
// battery is updated in place exactly once. On error it is left untouched.
// The caller must serialize calls for the same battery.
func (c *Controller) Dispatch(
	ctx context.Context,
	forecast types.Forecast,
	price types.Price,
	battery *types.BatteryState,
	threshold float64,
) (types.DispatchResult, error) {
	if err := validate(forecast, price, battery, threshold); err != nil {
		return types.DispatchResult{}, err
	}

	consumption := forecast.PredictedConsumptionKWH
	solar := forecast.PredictedSolarKWH
	p := price.PricePerKWH

	action := types.BatteryActionCharge
	if p > threshold && battery.ChargeKWH > 0 {
		action = types.BatteryActionDischarge
	}

	var change float64
	effConsumption := consumption
	effSolar := solar
	switch action {
	case types.BatteryActionDischarge:
		change = math.Min(battery.ChargeKWH, consumption) * battery.DischargeEfficiency
		battery.ChargeKWH -= change
		effConsumption = consumption - change
	default:
		change = math.Min(battery.CapacityKWH-battery.ChargeKWH, solar) * battery.ChargeEfficiency
		battery.ChargeKWH += change
		effSolar = solar - change
	}
	battery.ChargeKWH = clamp(battery.ChargeKWH, 0, battery.CapacityKWH)

	netDemand := math.Max(0, effConsumption-effSolar)

	res := types.DispatchResult{
		Decision:                decide(consumption, solar, action),
		BatteryAction:           action,
		BatteryChargeKWH:        battery.ChargeKWH,
		BatteryChangeKWH:        change,
		ExpectedCost:            round2(netDemand * p),
		NetDemandKWH:            netDemand,
		EffectiveConsumptionKWH: effConsumption,
		EffectiveSolarKWH:       effSolar,
	}

	log.Ctx(ctx).DebugContext(ctx, "dispatched battery",
		slog.String("action", string(res.BatteryAction)),
		slog.String("decision", string(res.Decision)),
		slog.Float64("price", p),
		slog.Float64("threshold", threshold),
		slog.Float64("changeKWH", change),
		slog.Float64("chargeKWH", battery.ChargeKWH),
		slog.Float64("netDemandKWH", netDemand),
		slog.Float64("expectedCost", res.ExpectedCost),
	)

	return res, nil
}

// decide labels the cycle from the raw forecast, before the battery moved any
// energy.
func decide(consumption, solar float64, action types.BatteryAction) types.Decision {
	switch {
	case solar > consumption:
		if action == types.BatteryActionCharge {
			return types.DecisionStoreSurplus
		}
		return types.DecisionUseBattery
	case solar > 0:
		return types.DecisionUseSolarBuyRest
	default:
		return types.DecisionBuyEnergy
	}
}

func validate(forecast types.Forecast, price types.Price, battery *types.BatteryState, threshold float64) error {
	if battery == nil {
		return fmt.Errorf("%w: missing battery state", ErrInvalidInput)
	}
	if err := battery.Validate(); err != nil {
		return fmt.Errorf("%w: battery: %w", ErrInvalidInput, err)
	}
	if err := ValidateForecast(forecast); err != nil {
		return err
	}
	if err := ValidatePrice(price); err != nil {
		return err
	}
	if !nonNegative(threshold) {
		return fmt.Errorf("%w: threshold %v", ErrInvalidInput, threshold)
	}
	return nil
}

// ValidateForecast returns ErrInvalidInput if either predicted value is
// negative or not finite.
func ValidateForecast(f types.Forecast) error {
	if !nonNegative(f.PredictedConsumptionKWH) {
		return fmt.Errorf("%w: predicted consumption %v", ErrInvalidInput, f.PredictedConsumptionKWH)
	}
	if !nonNegative(f.PredictedSolarKWH) {
		return fmt.Errorf("%w: predicted solar %v", ErrInvalidInput, f.PredictedSolarKWH)
	}
	return nil
}

// ValidatePrice returns ErrInvalidInput if the price is negative or not
// finite.
func ValidatePrice(p types.Price) error {
	if !nonNegative(p.PricePerKWH) {
		return fmt.Errorf("%w: price %v", ErrInvalidInput, p.PricePerKWH)
	}
	return nil
}

func nonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds to two decimals on the exact binary value, so halfway
// cases go to the even neighbour.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
