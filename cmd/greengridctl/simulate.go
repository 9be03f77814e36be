package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/sensor"
	"github.com/greengrid/greengrid/pkg/types"
)

// peakHours returns true for the evening peak used by the simulated tariff.
func peakHours(t time.Time) bool {
	return t.Hour() >= 16 && t.Hour() < 20
}

func init() {
	var (
		battery   batteryFlags
		hours     int
		offPeak   float64
		peak      float64
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Dispatch a day of the diurnal profile against a two rate tariff",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().Truncate(24 * time.Hour)
			forecasts := make([]types.Forecast, hours)
			prices := make([]types.Price, hours)
			for i := range hours {
				ts := start.Add(time.Duration(i) * time.Hour)
				consumption, solar := sensor.DiurnalAt(ts)
				forecasts[i] = types.Forecast{PredictedConsumptionKWH: consumption, PredictedSolarKWH: solar}
				p := offPeak
				if peakHours(ts) {
					p = peak
				}
				prices[i] = types.Price{Provider: "cli", TSStart: ts, TSEnd: ts.Add(time.Hour), PricePerKWH: p}
			}

			state := battery.state()
			simulated, err := controller.NewController().SimulateHours(cmd.Context(), start, forecasts, prices, &state, threshold)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), struct {
				Hours   []controller.SimHour `json:"hours"`
				Battery types.BatteryState   `json:"battery"`
			}{simulated, state})
		},
	}
	battery.register(cmd)
	cmd.Flags().IntVar(&hours, "hours", 24, "number of hours to simulate")
	cmd.Flags().Float64Var(&offPeak, "off-peak-price", 0.12, "off-peak price per kWh")
	cmd.Flags().Float64Var(&peak, "peak-price", 0.35, "price per kWh between 16:00 and 20:00")
	cmd.Flags().Float64Var(&threshold, "threshold", types.DefaultSettings().PriceThreshold, "discharge above this price per kWh")
	rootCmd.AddCommand(cmd)
}
