package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// Influx writes one "advisory" point per advisory to InfluxDB.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInflux creates a sink for the given InfluxDB endpoint.
func NewInflux(url, token, org, bucket string) *Influx {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(common.HTTPClient(5*time.Second)))
	return &Influx{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

// NewInfluxWithFallback pings InfluxDB and returns Nop if it is unhealthy.
func NewInfluxWithFallback(ctx context.Context, url, token, org, bucket string) Sink {
	sink := NewInflux(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "influx health check failed", slog.Any("error", err))
		} else {
			log.Ctx(ctx).ErrorContext(ctx, "influx unhealthy", slog.String("status", string(health.Status)))
		}
		sink.client.Close()
		return Nop{}
	}
	return sink
}

// Point converts an advisory into its line protocol point.
func Point(a types.Advisory) *write.Point {
	r := a.Result
	return write.NewPointWithMeasurement("advisory").
		AddTag("household", a.HouseholdID).
		AddTag("decision", string(r.Decision)).
		AddTag("action", string(r.BatteryAction)).
		AddTag("provider", a.Price.Provider).
		AddField("consumption_kwh", a.Forecast.PredictedConsumptionKWH).
		AddField("solar_kwh", a.Forecast.PredictedSolarKWH).
		AddField("price_per_kwh", a.Price.PricePerKWH).
		AddField("battery_charge_kwh", r.BatteryChargeKWH).
		AddField("battery_change_kwh", r.BatteryChangeKWH).
		AddField("net_demand_kwh", r.NetDemandKWH).
		AddField("expected_cost", r.ExpectedCost).
		AddField("fallbacks", len(a.Fallbacks)).
		SetTime(a.Timestamp)
}

// RecordAdvisory implements Sink.
func (s *Influx) RecordAdvisory(ctx context.Context, a types.Advisory) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, Point(a)); err != nil {
		return fmt.Errorf("failed to write influx point: %w", err)
	}
	return nil
}

// Close flushes and closes the client.
func (s *Influx) Close() {
	s.client.Close()
}
