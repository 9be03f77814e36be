package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/household"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/report"
	"github.com/greengrid/greengrid/pkg/sensor"
	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/types"
)

// price follows a typical agile day: cheap overnight, a midday lull and an
// evening peak.
func price(hour int, rng *rand.Rand) float64 {
	base := 0.14
	switch {
	case hour < 6:
		base = 0.09
	case hour >= 10 && hour < 15:
		base = 0.07
	case hour >= 16 && hour < 20:
		base = 0.35
	case hour >= 20:
		base = 0.18
	}
	// jitter
	return base + rng.Float64()*0.02 - 0.01
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	households := household.Configured()
	db := storage.Configured()
	lflag.Configure()

	ctx := context.Background()
	defer db.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	tmpl := report.NewTemplate()
	ctrl := controller.NewController()
	threshold := types.DefaultSettings().PriceThreshold

	// midnight to now
	now := time.Now()
	start := now.Truncate(24 * time.Hour)

	for _, session := range households.Sessions() {
		id := session.ID()
		var (
			forecasts []types.Forecast
			prices    []types.Price
		)
		for t := start; t.Before(now); t = t.Add(time.Hour) {
			consumption, solar := sensor.DiurnalAt(t)
			forecasts = append(forecasts, types.Forecast{PredictedConsumptionKWH: consumption, PredictedSolarKWH: solar})
			prices = append(prices, types.Price{
				Provider:    "seed",
				TSStart:     t,
				TSEnd:       t.Add(time.Hour),
				PricePerKWH: price(t.Hour(), rng),
			})
		}

		battery := session.Battery()
		hours, err := ctrl.SimulateHours(ctx, start, forecasts, prices, &battery, threshold)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to simulate", slog.String("householdID", id), slog.Any("error", err))
			os.Exit(1)
		}

		for _, h := range hours {
			reading := types.Reading{
				HouseholdID:    id,
				Timestamp:      h.TS,
				ConsumptionKWH: h.Forecast.PredictedConsumptionKWH,
				SolarKWH:       h.Forecast.PredictedSolarKWH,
				Source:         types.ReadingSourceSimulated,
			}
			if err := db.InsertReading(ctx, id, reading); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to seed reading", slog.Any("error", err))
				os.Exit(1)
			}

			text, err := tmpl.Report(ctx, types.NewReportInput(id, h.Result, h.Price))
			if err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to render report", slog.Any("error", err))
				os.Exit(1)
			}
			a := types.Advisory{
				ID:          uuid.NewString(),
				HouseholdID: id,
				Timestamp:   h.TS,
				Reading:     &reading,
				Forecast:    h.Forecast,
				Price:       h.Price,
				Threshold:   threshold,
				Result:      h.Result,
				Report:      text,
			}
			if err := db.InsertAdvisory(ctx, id, a); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to seed advisory", slog.Any("error", err))
				os.Exit(1)
			}
		}
		log.Ctx(ctx).InfoContext(ctx, "seeded household", slog.String("householdID", id), slog.Int("hours", len(hours)))
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}
