package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/coordinator"
	"github.com/greengrid/greengrid/pkg/household"
	"github.com/greengrid/greengrid/pkg/live"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/metrics"
	"github.com/greengrid/greengrid/pkg/mqtt"
	"github.com/greengrid/greengrid/pkg/report"
	"github.com/greengrid/greengrid/pkg/sensor"
	"github.com/greengrid/greengrid/pkg/server"
	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/utility"
	"github.com/greengrid/greengrid/pkg/weather"
)

func main() {
	// init packages
	households := household.Configured()
	utilities := utility.Configured()
	db := storage.Configured()
	forecaster := weather.Configured()
	sensors := sensor.Configured()
	reports := report.Configured()
	sink := metrics.Configured()
	conn := mqtt.Configured()
	hub := live.NewHub()

	// init server
	srv := server.Configured(households, db, utilities, hub)

	// parse flags
	lflag.Configure()

	logger, err := log.Configure(os.Stdout)
	if err != nil {
		panic(err)
	}
	logger.Debug("logger configured")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	notifiers := []coordinator.Notifier{hub}
	// a nil interface, not a nil *mqtt.Conn, when mqtt is disabled
	var sub sensor.Subscriber
	if conn.Enabled() {
		if err := conn.Connect(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to connect to mqtt", slog.Any("error", err))
			os.Exit(1)
		}
		defer conn.Close()
		sub = conn
		notifiers = append(notifiers, mqtt.NewPublisher(conn))
	}

	sens, err := sensors.Sensor(ctx, sub)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to set up sensor", slog.Any("error", err))
		os.Exit(1)
	}

	reporter, err := reports.Reporter(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to set up reporter", slog.Any("error", err))
		os.Exit(1)
	}

	srv.SetCoordinator(coordinator.New(coordinator.Config{
		Households: households,
		Storage:    db,
		Sensor:     sens,
		Forecaster: forecaster,
		Utilities:  utilities,
		Reporter:   reporter,
		Metrics:    sink,
		Notifiers:  notifiers,
	}))

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
