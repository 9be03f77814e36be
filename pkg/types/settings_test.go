package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("v1: initial defaults", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 0.15, s.PriceThreshold)
		assert.Equal(t, 0.05, s.FeedInTariff)
		assert.Equal(t, 10.0, s.PanelAreaM2)
		assert.Equal(t, 0.18, s.PanelEfficiency)
		assert.Equal(t, 5.0, s.SunHours)
		assert.False(t, s.Pause)
	})

	t.Run("v1 to v2: keeps threshold", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{PriceThreshold: 0.3, FeedInTariff: 0.02}, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 0.3, s.PriceThreshold)
		assert.Equal(t, 0.02, s.FeedInTariff)
		assert.Equal(t, 10.0, s.PanelAreaM2)
	})

	t.Run("no change: current version", func(t *testing.T) {
		current := Settings{PriceThreshold: 0.2, Pause: true}
		s, changed, err := MigrateSettings(current, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, current, s)
	})
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.PriceThreshold = -1
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.PanelEfficiency = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.FeedInTariff = math.NaN()
	assert.Error(t, bad.Validate())
}

func TestBatteryStateValidate(t *testing.T) {
	require.NoError(t, DefaultBatteryState().Validate())
	assert.InDelta(t, 0.81, DefaultBatteryState().RoundTripEfficiency(), 1e-9)

	tests := []struct {
		name string
		mod  func(b *BatteryState)
	}{
		{"zero capacity", func(b *BatteryState) { b.CapacityKWH = 0 }},
		{"negative charge", func(b *BatteryState) { b.ChargeKWH = -0.1 }},
		{"over capacity", func(b *BatteryState) { b.ChargeKWH = 21 }},
		{"zero charge efficiency", func(b *BatteryState) { b.ChargeEfficiency = 0 }},
		{"discharge efficiency above one", func(b *BatteryState) { b.DischargeEfficiency = 1.01 }},
		{"infinite capacity", func(b *BatteryState) { b.CapacityKWH = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBatteryState()
			tt.mod(&b)
			assert.Error(t, b.Validate())
		})
	}
}
