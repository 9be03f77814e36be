package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/types"
)

func init() {
	var (
		battery  batteryFlags
		req      types.WhatIfRequest
		price    float64
		settings = types.DefaultSettings()
	)
	cmd := &cobra.Command{
		Use:   "whatif",
		Short: "Simulate a radiation and consumption scenario without a real battery",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().Truncate(time.Hour)
			res, err := controller.NewController().WhatIf(
				cmd.Context(),
				req,
				battery.state(),
				types.Price{Provider: "cli", TSStart: now, TSEnd: now.Add(time.Hour), PricePerKWH: price},
				settings,
			)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		},
	}
	battery.register(cmd)
	cmd.Flags().Float64Var(&req.RadiationWM2, "radiation", 500, "solar radiation in W/m²")
	cmd.Flags().Float64Var(&req.ConsumptionKWH, "consumption", 10, "consumption in kWh")
	cmd.Flags().Float64Var(&price, "price", 0.18, "price per kWh")
	cmd.Flags().Float64Var(&settings.PriceThreshold, "threshold", settings.PriceThreshold, "discharge above this price per kWh")
	cmd.Flags().Float64Var(&settings.FeedInTariff, "feed-in-tariff", settings.FeedInTariff, "earnings per exported kWh")
	cmd.Flags().Float64Var(&settings.PanelAreaM2, "panel-area", settings.PanelAreaM2, "panel area in m²")
	cmd.Flags().Float64Var(&settings.PanelEfficiency, "panel-efficiency", settings.PanelEfficiency, "panel efficiency")
	cmd.Flags().Float64Var(&settings.SunHours, "sun-hours", settings.SunHours, "hours of sun")
	rootCmd.AddCommand(cmd)
}
