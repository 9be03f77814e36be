package server

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/coordinator"
	"github.com/greengrid/greengrid/pkg/household"
	"github.com/greengrid/greengrid/pkg/live"
	"github.com/greengrid/greengrid/pkg/metrics"
	"github.com/greengrid/greengrid/pkg/report"
	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/types"
	"github.com/greengrid/greengrid/pkg/utility"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type mockSensor struct{}

func (mockSensor) Read(ctx context.Context, householdID string) (types.Reading, error) {
	return types.Reading{
		HouseholdID:    householdID,
		Timestamp:      testNow.Add(-time.Minute),
		ConsumptionKWH: 12.5,
		SolarKWH:       4.2,
		Source:         types.ReadingSourceSimulated,
	}, nil
}

type mockForecaster struct{}

func (mockForecaster) Forecast(ctx context.Context, loc types.Location) (types.Forecast, error) {
	return types.Forecast{PredictedConsumptionKWH: 12.5, PredictedSolarKWH: 4.2}, nil
}

type mockUtility struct {
	price float64
}

func (m mockUtility) GetCurrentPrice(ctx context.Context) (types.Price, error) {
	return types.Price{
		Provider:    utility.ProviderOctopusAgile,
		TSStart:     testNow.Truncate(30 * time.Minute),
		TSEnd:       testNow.Truncate(30 * time.Minute).Add(30 * time.Minute),
		PricePerKWH: m.price,
	}, nil
}

type testEnv struct {
	srv      *Server
	db       *storage.Memory
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, ids ...string) *testEnv {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{types.HouseholdIDDefault}
	}
	var cfg household.Config
	for _, id := range ids {
		h := household.DefaultHousehold()
		h.ID = id
		h.Name = id
		cfg.Households = append(cfg.Households, h)
	}
	households, err := household.NewRegistry(cfg, controller.NewController())
	require.NoError(t, err)

	utilities := utility.NewMap()
	utilities.SetProvider(utility.ProviderOctopusAgile, mockUtility{price: 0.30})
	utilities.SetProvider(utility.ProviderFixed, utility.NewFixed(0.18))

	reg := prometheus.NewRegistry()
	prom, err := metrics.NewProm(reg)
	require.NoError(t, err)

	db := storage.NewMemory()
	hub := live.NewHub()
	coord := coordinator.New(coordinator.Config{
		Households: households,
		Storage:    db,
		Sensor:     mockSensor{},
		Forecaster: mockForecaster{},
		Utilities:  utilities,
		Reporter:   report.NewTemplate(),
		Metrics:    prom,
		Notifiers:  []coordinator.Notifier{hub},
	})

	srv := New(households, coord, db, utilities, hub)
	srv.gatherer = reg
	srv.now = func() time.Time { return testNow }
	return &testEnv{srv: srv, db: db, registry: reg}
}
