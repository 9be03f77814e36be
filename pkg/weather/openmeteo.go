package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// ErrNoSlot is returned when the forecast has no hourly slot starting within
// the next hour.
var ErrNoSlot = errors.New("no forecast slot in the next hour")

// OpenMeteo implements Forecaster using the Open-Meteo hourly forecast API.
type OpenMeteo struct {
	apiURL string
	client *http.Client
	now    func() time.Time
}

// Configured sets up flags for Open-Meteo and returns the instance.
func Configured() *OpenMeteo {
	o := &OpenMeteo{
		client: common.HTTPClient(10 * time.Second),
		now:    time.Now,
	}
	apiURL := lflag.String("open-meteo-api-url", "https://api.open-meteo.com", "URL for the Open-Meteo API")
	lflag.Do(func() {
		o.apiURL = *apiURL
		if err := o.Validate(); err != nil {
			panic(fmt.Sprintf("open-meteo validation failed: %v", err))
		}
	})
	return o
}

// Validate ensures the configuration is valid.
func (o *OpenMeteo) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("open-meteo-api-url is required")
	}
	if _, err := url.Parse(o.apiURL); err != nil {
		return fmt.Errorf("failed to parse open-meteo url (%s): %w", o.apiURL, err)
	}
	return nil
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Hourly   struct {
		Time               []int64   `json:"time"`
		Temperature2M      []float64 `json:"temperature_2m"`
		ShortwaveRadiation []float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

// Samples returns the hourly weather samples for the next two days.
func (o *OpenMeteo) Samples(ctx context.Context, loc types.Location) ([]types.WeatherSample, error) {
	u, err := url.Parse(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	u = u.JoinPath("v1", "forecast")

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	params.Set("hourly", "temperature_2m,shortwave_radiation")
	if loc.Timezone != "" {
		params.Set("timezone", loc.Timezone)
	}
	params.Set("timeformat", "unixtime")
	params.Set("forecast_days", "2")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching forecast from open-meteo", "url", u.String())

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo api returned status: %d", resp.StatusCode)
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	h := data.Hourly
	if len(h.Temperature2M) != len(h.Time) || len(h.ShortwaveRadiation) != len(h.Time) {
		return nil, fmt.Errorf(
			"mismatched hourly series: %d times, %d temperatures, %d radiation",
			len(h.Time), len(h.Temperature2M), len(h.ShortwaveRadiation),
		)
	}

	samples := make([]types.WeatherSample, len(h.Time))
	for i, ts := range h.Time {
		samples[i] = types.WeatherSample{
			TS:           time.Unix(ts, 0).UTC(),
			TemperatureC: h.Temperature2M[i],
			RadiationWM2: h.ShortwaveRadiation[i],
		}
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched forecast", slog.Int("count", len(samples)))
	return samples, nil
}

// Forecast implements Forecaster using the slot that starts within the next
// hour.
func (o *OpenMeteo) Forecast(ctx context.Context, loc types.Location) (types.Forecast, error) {
	samples, err := o.Samples(ctx, loc)
	if err != nil {
		return types.Forecast{}, err
	}
	now := o.now()
	next := now.Add(time.Hour)
	for _, s := range samples {
		if !s.TS.Before(now) && s.TS.Before(next) {
			return ForecastFromSample(s), nil
		}
	}
	return types.Forecast{}, ErrNoSlot
}
