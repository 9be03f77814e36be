package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/household"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/metrics"
	"github.com/greengrid/greengrid/pkg/report"
	"github.com/greengrid/greengrid/pkg/sensor"
	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/types"
	"github.com/greengrid/greengrid/pkg/utility"
	"github.com/greengrid/greengrid/pkg/weather"
)

var (
	// ErrPaused is returned when the household has paused advisories.
	ErrPaused = errors.New("advisories paused")
	// ErrUnknownHousehold is returned for a household that is not configured.
	ErrUnknownHousehold = errors.New("unknown household")
)

// Notifier is told about every new advisory.
type Notifier interface {
	Notify(ctx context.Context, a types.Advisory) error
}

// Config holds the collaborators of a Coordinator. Households, Storage,
// Sensor, Forecaster, Utilities and Reporter are required.
type Config struct {
	Households *household.Registry
	Storage    storage.Database
	Sensor     sensor.Sensor
	Forecaster weather.Forecaster
	Utilities  *utility.Map
	Reporter   report.Reporter

	// FallbackForecast defaults to a randomly seeded weather.Fallback.
	FallbackForecast *weather.Fallback
	// FallbackReporter defaults to the template reporter.
	FallbackReporter report.Reporter
	// Metrics defaults to metrics.Nop.
	Metrics   metrics.Sink
	Notifiers []Notifier
}

// Coordinator runs the advisory pipeline for households.
type Coordinator struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

// New returns a Coordinator for cfg.
func New(cfg Config) *Coordinator {
	if cfg.FallbackForecast == nil {
		cfg.FallbackForecast = weather.NewFallback(nil)
	}
	if cfg.FallbackReporter == nil {
		cfg.FallbackReporter = report.NewTemplate()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Coordinator{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Settings returns the household's settings, migrating and saving them when
// they were written by an older version.
func (c *Coordinator) Settings(ctx context.Context, householdID string) (types.Settings, error) {
	settings, version, err := c.cfg.Storage.GetSettings(ctx, householdID)
	if err != nil {
		return types.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	if version >= types.CurrentSettingsVersion {
		return settings, nil
	}

	log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
	migrated, changed, err := types.MigrateSettings(settings, version)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		return settings, nil
	}
	if changed {
		if err := c.cfg.Storage.SetSettings(ctx, householdID, migrated, types.CurrentSettingsVersion); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
		}
	}
	return migrated, nil
}

// Run evaluates one household: it gathers a reading, a forecast and a price,
// dispatches the household battery, and records and publishes the advisory.
// Collaborator failures are replaced by fallbacks and noted on the advisory.
func (c *Coordinator) Run(ctx context.Context, householdID string) (types.Advisory, error) {
	session, ok := c.cfg.Households.Get(householdID)
	if !ok {
		return types.Advisory{}, fmt.Errorf("%w: %s", ErrUnknownHousehold, householdID)
	}

	a := types.Advisory{
		ID:          c.newID(),
		HouseholdID: householdID,
		Timestamp:   c.now().UTC(),
	}
	ctx = log.WithAttrs(ctx, slog.String("householdID", householdID), slog.String("advisoryID", a.ID))

	settings, err := c.Settings(ctx, householdID)
	if err != nil {
		return types.Advisory{}, err
	}
	if settings.Pause {
		log.Ctx(ctx).InfoContext(ctx, "advisories paused, skipping run")
		return types.Advisory{}, ErrPaused
	}
	a.Threshold = settings.PriceThreshold

	if reading, err := c.cfg.Sensor.Read(ctx, householdID); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read sensor", slog.Any("error", err))
		a.Fallbacks = append(a.Fallbacks, types.Fallback{Component: types.FallbackComponentSensor, Reason: err.Error()})
	} else {
		a.Reading = &reading
		if err := c.cfg.Storage.InsertReading(ctx, householdID, reading); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to store reading", slog.Any("error", err))
		}
	}

	a.Forecast = c.forecast(ctx, session.Config().Location, &a)
	a.Price = c.price(ctx, c.providerName(session, settings), &a)

	res, err := session.Dispatch(ctx, a.Forecast, a.Price, a.Threshold)
	if err != nil {
		return types.Advisory{}, fmt.Errorf("failed to dispatch: %w", err)
	}
	a.Result = res
	a.Report = c.report(ctx, types.NewReportInput(householdID, res, a.Price), &a)

	log.Ctx(ctx).InfoContext(
		ctx,
		"advisory",
		slog.String("decision", string(res.Decision)),
		slog.String("action", string(res.BatteryAction)),
		slog.Float64("batteryChargeKWH", res.BatteryChargeKWH),
		slog.Float64("expectedCost", res.ExpectedCost),
		slog.Int("fallbacks", len(a.Fallbacks)),
	)

	if err := c.cfg.Storage.InsertAdvisory(ctx, householdID, a); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store advisory", slog.Any("error", err))
	}
	if err := c.cfg.Metrics.RecordAdvisory(ctx, a); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to record advisory metrics", slog.Any("error", err))
	}
	for _, n := range c.cfg.Notifiers {
		if err := n.Notify(ctx, a); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to notify advisory", slog.Any("error", err))
		}
	}
	return a, nil
}

func (c *Coordinator) forecast(ctx context.Context, loc types.Location, a *types.Advisory) types.Forecast {
	f, err := c.cfg.Forecaster.Forecast(ctx, loc)
	if err == nil {
		err = controller.ValidateForecast(f)
	}
	if err == nil {
		return f
	}
	f = c.cfg.FallbackForecast.Forecast()
	log.Ctx(ctx).WarnContext(
		ctx,
		"using fallback forecast",
		slog.Any("error", err),
		slog.Float64("consumptionKWH", f.PredictedConsumptionKWH),
		slog.Float64("solarKWH", f.PredictedSolarKWH),
	)
	a.Fallbacks = append(a.Fallbacks, types.Fallback{Component: types.FallbackComponentForecast, Reason: err.Error()})
	return f
}

func (c *Coordinator) providerName(session *household.Session, settings types.Settings) string {
	if settings.UtilityProvider != "" {
		return settings.UtilityProvider
	}
	return session.Config().UtilityProvider
}

func (c *Coordinator) price(ctx context.Context, providerName string, a *types.Advisory) types.Price {
	p, err := c.currentPrice(ctx, providerName)
	if err == nil {
		return p
	}

	fallback, ferr := c.cfg.Utilities.Fallback().GetCurrentPrice(ctx)
	if ferr == nil {
		ferr = controller.ValidatePrice(fallback)
	}
	if ferr != nil {
		// last resort when the fallback provider fails or returns garbage
		fallback = types.Price{
			Provider:    utility.ProviderFixed,
			TSStart:     a.Timestamp.Truncate(time.Hour),
			TSEnd:       a.Timestamp.Truncate(time.Hour).Add(time.Hour),
			PricePerKWH: utility.DefaultFallbackPrice,
		}
	}
	log.Ctx(ctx).WarnContext(
		ctx,
		"using fallback price",
		slog.String("provider", providerName),
		slog.Any("error", err),
		slog.Float64("pricePerKWH", fallback.PricePerKWH),
	)
	a.Fallbacks = append(a.Fallbacks, types.Fallback{Component: types.FallbackComponentPrice, Reason: err.Error()})
	return fallback
}

func (c *Coordinator) currentPrice(ctx context.Context, providerName string) (types.Price, error) {
	provider, err := c.cfg.Utilities.Provider(providerName)
	if err != nil {
		return types.Price{}, err
	}
	p, err := provider.GetCurrentPrice(ctx)
	if err != nil {
		return types.Price{}, err
	}
	if err := controller.ValidatePrice(p); err != nil {
		return types.Price{}, err
	}
	return p, nil
}

func (c *Coordinator) report(ctx context.Context, in types.ReportInput, a *types.Advisory) string {
	text, err := c.cfg.Reporter.Report(ctx, in)
	if err == nil && text != "" {
		return text
	}
	if err == nil {
		err = report.ErrEmptyReport
	}
	log.Ctx(ctx).WarnContext(ctx, "using fallback report", slog.Any("error", err))
	a.Fallbacks = append(a.Fallbacks, types.Fallback{Component: types.FallbackComponentReport, Reason: err.Error()})

	text, ferr := c.cfg.FallbackReporter.Report(ctx, in)
	if ferr != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render fallback report", slog.Any("error", ferr))
		return in.Decision.Description()
	}
	return text
}

// RunAll runs every configured household. Paused households are skipped.
func (c *Coordinator) RunAll(ctx context.Context) ([]types.Advisory, error) {
	var (
		advisories []types.Advisory
		errs       []error
	)
	for _, id := range c.cfg.Households.IDs() {
		a, err := c.Run(ctx, id)
		if errors.Is(err, ErrPaused) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("household %s: %w", id, err))
			continue
		}
		advisories = append(advisories, a)
	}
	return advisories, errors.Join(errs...)
}

// Loop runs every household immediately and then every interval until ctx is
// cancelled.
func (c *Coordinator) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := c.RunAll(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "advisory run failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
