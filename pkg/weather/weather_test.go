package weather

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/types"
)

func TestPredict(t *testing.T) {
	tests := []struct {
		temp, rad          float64
		consumption, solar float64
	}{
		{temp: 15, rad: 500, consumption: 12, solar: 2},
		{temp: 25, rad: 0, consumption: 10, solar: 0},
		{temp: 30, rad: 1000, consumption: 10, solar: 4},
		{temp: -5, rad: -10, consumption: 16, solar: 0},
		{temp: 24.99, rad: 123, consumption: 10, solar: 0.49},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_%v", tt.temp, tt.rad), func(t *testing.T) {
			assert.InDelta(t, tt.consumption, PredictConsumption(tt.temp), 1e-9)
			assert.InDelta(t, tt.solar, PredictSolar(tt.rad), 1e-9)
		})
	}
}

func TestFallback(t *testing.T) {
	f := NewFallback(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		fc := f.Forecast()
		assert.GreaterOrEqual(t, fc.PredictedConsumptionKWH, 10.0)
		assert.LessOrEqual(t, fc.PredictedConsumptionKWH, 15.0)
		assert.GreaterOrEqual(t, fc.PredictedSolarKWH, 3.0)
		assert.LessOrEqual(t, fc.PredictedSolarKWH, 6.0)
		assert.Equal(t, math.Round(fc.PredictedConsumptionKWH*100)/100, fc.PredictedConsumptionKWH)
		assert.Nil(t, fc.Weather)
	}

	// same seed, same draws
	a := NewFallback(rand.NewPCG(7, 7)).Forecast()
	b := NewFallback(rand.NewPCG(7, 7)).Forecast()
	assert.Equal(t, a, b)

	assert.NotPanics(t, func() { NewFallback(nil).Forecast() })
}

func TestOpenMeteo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	slot := now.Truncate(time.Hour).Add(time.Hour) // 10:00

	body := fmt.Sprintf(`{
		"timezone": "Europe/London",
		"hourly": {
			"time": [%d, %d, %d],
			"temperature_2m": [8.0, 10.0, 12.0],
			"shortwave_radiation": [100.0, 300.0, 450.0]
		}
	}`, slot.Add(-time.Hour).Unix(), slot.Unix(), slot.Add(time.Hour).Unix())

	t.Run("Forecast_NextHour", func(t *testing.T) {
		var query map[string][]string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/forecast", r.URL.Path)
			query = r.URL.Query()
			_, _ = w.Write([]byte(body))
		}))
		defer ts.Close()

		o := &OpenMeteo{apiURL: ts.URL, client: ts.Client(), now: func() time.Time { return now }}
		fc, err := o.Forecast(ctx, types.DefaultLocation())
		require.NoError(t, err)

		assert.Equal(t, []string{"51.5085"}, query["latitude"])
		assert.Equal(t, []string{"-0.1257"}, query["longitude"])
		assert.Equal(t, []string{"temperature_2m,shortwave_radiation"}, query["hourly"])
		assert.Equal(t, []string{"Europe/London"}, query["timezone"])
		assert.Equal(t, []string{"unixtime"}, query["timeformat"])

		assert.InDelta(t, 13.0, fc.PredictedConsumptionKWH, 1e-9)
		assert.InDelta(t, 1.2, fc.PredictedSolarKWH, 1e-9)
		require.NotNil(t, fc.Weather)
		assert.True(t, slot.Equal(fc.Weather.TS))
	})

	t.Run("Forecast_NoSlot", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		defer ts.Close()

		later := now.Add(24 * time.Hour)
		o := &OpenMeteo{apiURL: ts.URL, client: ts.Client(), now: func() time.Time { return later }}
		_, err := o.Forecast(ctx, types.DefaultLocation())
		assert.ErrorIs(t, err, ErrNoSlot)
	})

	t.Run("Forecast_MismatchedSeries", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"hourly":{"time":[1,2],"temperature_2m":[1],"shortwave_radiation":[1,2]}}`))
		}))
		defer ts.Close()

		o := &OpenMeteo{apiURL: ts.URL, client: ts.Client(), now: time.Now}
		_, err := o.Forecast(ctx, types.DefaultLocation())
		assert.ErrorContains(t, err, "mismatched")
	})

	t.Run("Forecast_BadStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		o := &OpenMeteo{apiURL: ts.URL, client: ts.Client(), now: time.Now}
		_, err := o.Forecast(ctx, types.DefaultLocation())
		assert.ErrorContains(t, err, "500")
	})
}

func TestOpenMeteoValidate(t *testing.T) {
	assert.NoError(t, (&OpenMeteo{apiURL: "https://api.open-meteo.com"}).Validate())
	assert.Error(t, (&OpenMeteo{}).Validate())
	assert.Error(t, (&OpenMeteo{apiURL: "://bad"}).Validate())
}
