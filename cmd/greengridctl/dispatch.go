package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/types"
)

func init() {
	var (
		battery     batteryFlags
		consumption float64
		solar       float64
		price       float64
		threshold   float64
	)
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Decide one cycle for a forecast and price",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := battery.state()
			now := time.Now().Truncate(time.Hour)
			res, err := controller.NewController().Dispatch(
				cmd.Context(),
				types.Forecast{PredictedConsumptionKWH: consumption, PredictedSolarKWH: solar},
				types.Price{Provider: "cli", TSStart: now, TSEnd: now.Add(time.Hour), PricePerKWH: price},
				&state,
				threshold,
			)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		},
	}
	battery.register(cmd)
	cmd.Flags().Float64Var(&consumption, "consumption", 12.5, "predicted consumption in kWh")
	cmd.Flags().Float64Var(&solar, "solar", 4.2, "predicted solar generation in kWh")
	cmd.Flags().Float64Var(&price, "price", 0.18, "price per kWh")
	cmd.Flags().Float64Var(&threshold, "threshold", types.DefaultSettings().PriceThreshold, "discharge above this price per kWh")
	rootCmd.AddCommand(cmd)
}
