package controller

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// MaxWhatIfRadiationWM2 bounds the radiation a what-if scenario may ask for.
const MaxWhatIfRadiationWM2 = 1500

// SimulatedSolarKWH converts an irradiance into the energy the household's
// panels would produce over the configured sun hours.
func SimulatedSolarKWH(radiationWM2 float64, settings types.Settings) float64 {
	return radiationWM2 * settings.PanelAreaM2 * settings.PanelEfficiency * settings.SunHours / 1000
}

// WhatIf runs a dispatch on a copy of battery for a user supplied scenario
// and compares the cost against having no battery at all.
func (c *Controller) WhatIf(
	ctx context.Context,
	req types.WhatIfRequest,
	battery types.BatteryState,
	price types.Price,
	settings types.Settings,
) (types.WhatIfResult, error) {
	if !nonNegative(req.RadiationWM2) || req.RadiationWM2 > MaxWhatIfRadiationWM2 {
		return types.WhatIfResult{}, fmt.Errorf("%w: radiation %v outside [0, %d]", ErrInvalidInput, req.RadiationWM2, MaxWhatIfRadiationWM2)
	}
	if !nonNegative(req.ConsumptionKWH) {
		return types.WhatIfResult{}, fmt.Errorf("%w: consumption %v", ErrInvalidInput, req.ConsumptionKWH)
	}
	if req.PricePerKWH != nil {
		price.PricePerKWH = *req.PricePerKWH
	}

	solar := SimulatedSolarKWH(req.RadiationWM2, settings)
	forecast := types.Forecast{
		PredictedConsumptionKWH: req.ConsumptionKWH,
		PredictedSolarKWH:       solar,
	}

	// battery is a copy so the household's real state is unaffected
	res, err := c.Dispatch(ctx, forecast, price, &battery, settings.PriceThreshold)
	if err != nil {
		return types.WhatIfResult{}, err
	}

	p := price.PricePerKWH
	costWithout := req.ConsumptionKWH * p
	costWith := res.EffectiveConsumptionKWH * p
	earnings := math.Max(0, res.EffectiveSolarKWH) * settings.FeedInTariff
	netCost := costWith - earnings

	return types.WhatIfResult{
		SimulatedSolarKWH:  round2(solar),
		PricePerKWH:        p,
		Result:             res,
		CostWithoutBattery: round2(costWithout),
		CostWithBattery:    round2(costWith),
		FeedInEarnings:     round2(earnings),
		NetCost:            round2(netCost),
		Savings:            round2(costWithout - netCost),
	}, nil
}

// SimHour is one simulated hour of dispatch.
type SimHour struct {
	TS       time.Time            `json:"ts"`
	Forecast types.Forecast       `json:"forecast"`
	Price    types.Price          `json:"price"`
	Result   types.DispatchResult `json:"result"`
}

// SimulateHours dispatches each hour in order, carrying the battery from one
// hour to the next. forecasts and prices must be the same length. battery is
// updated to the state after the last hour.
func (c *Controller) SimulateHours(
	ctx context.Context,
	start time.Time,
	forecasts []types.Forecast,
	prices []types.Price,
	battery *types.BatteryState,
	threshold float64,
) ([]SimHour, error) {
	if len(forecasts) != len(prices) {
		return nil, fmt.Errorf("%w: %d forecasts for %d prices", ErrInvalidInput, len(forecasts), len(prices))
	}
	hours := make([]SimHour, 0, len(forecasts))
	for i := range forecasts {
		res, err := c.Dispatch(ctx, forecasts[i], prices[i], battery, threshold)
		if err != nil {
			return hours, fmt.Errorf("hour %d: %w", i, err)
		}
		hours = append(hours, SimHour{
			TS:       start.Add(time.Duration(i) * time.Hour),
			Forecast: forecasts[i],
			Price:    prices[i],
			Result:   res,
		})
	}
	log.Ctx(ctx).DebugContext(ctx, "simulated hours",
		slog.Int("hours", len(hours)),
		slog.Float64("finalChargeKWH", battery.ChargeKWH),
	)
	return hours, nil
}
