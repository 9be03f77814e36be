package utility

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	m := NewMap()
	_, err := m.Provider(ProviderOctopusAgile)
	assert.Error(t, err)

	fixed := NewFixed(0.25)
	m.SetProvider(ProviderFixed, fixed)
	p, err := m.Provider(ProviderFixed)
	require.NoError(t, err)
	assert.Same(t, fixed, p)
	assert.Equal(t, []string{ProviderFixed}, m.Names())

	fb, err := m.Fallback().GetCurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackPrice, fb.PricePerKWH)

	m.SetFallback(fixed)
	assert.Same(t, fixed, m.Fallback())
}

func TestFixed(t *testing.T) {
	f := NewFixed(0.3)
	f.now = func() time.Time { return time.Date(2026, 1, 1, 10, 25, 0, 0, time.UTC) }
	p, err := f.GetCurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderFixed, p.Provider)
	assert.Equal(t, 0.3, p.PricePerKWH)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), p.TSStart)
	assert.Equal(t, time.Hour, p.TSEnd.Sub(p.TSStart))
}

func TestFixedValidate(t *testing.T) {
	assert.NoError(t, NewFixed(0).Validate())
	assert.NoError(t, NewFixed(DefaultFallbackPrice).Validate())
	for _, p := range []float64{-0.01, math.NaN(), math.Inf(1)} {
		assert.Error(t, NewFixed(p).Validate(), p)
	}
}

func TestOctopusValidate(t *testing.T) {
	o := &Octopus{apiURL: "https://api.octopus.energy", product: "AGILE-18-02-21", tariff: "E-1R-AGILE-18-02-21-L"}
	assert.NoError(t, o.Validate())

	noURL := *o
	noURL.apiURL = ""
	assert.Error(t, noURL.Validate())

	badURL := *o
	badURL.apiURL = "://bad"
	assert.Error(t, badURL.Validate())

	noTariff := *o
	noTariff.tariff = ""
	assert.Error(t, noTariff.Validate())
}
