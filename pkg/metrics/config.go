package metrics

import (
	"context"
	"log/slog"

	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/greengrid/greengrid/pkg/log"
)

// Configured registers the metrics flags and returns a Sink built once flags
// are parsed. Prometheus is always recorded, Influx only when -influx-url is
// set.
func Configured() Sink {
	url := lflag.String("influx-url", "", "InfluxDB URL, empty disables the influx sink")
	token := lflag.String("influx-token", "", "InfluxDB token")
	org := lflag.String("influx-org", "", "InfluxDB organization")
	bucket := lflag.String("influx-bucket", "greengrid", "InfluxDB bucket")

	var s struct{ Sink }
	lflag.Do(func() {
		ctx := context.Background()
		prom, err := NewProm(prometheus.DefaultRegisterer)
		if err != nil {
			panic("failed to register prometheus metrics: " + err.Error())
		}
		sinks := Multi{prom}
		if *url != "" {
			sinks = append(sinks, NewInfluxWithFallback(ctx, *url, *token, *org, *bucket))
		} else {
			log.Ctx(ctx).DebugContext(ctx, "influx sink disabled", slog.String("reason", "no url"))
		}
		s.Sink = sinks
	})
	return &s
}
