package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/mqtt"
	"github.com/greengrid/greengrid/pkg/types"
)

func TestSimulated(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC)

	t.Run("flat", func(t *testing.T) {
		s := NewSimulated(ProfileFlat, nil)
		s.now = func() time.Time { return now }
		r, err := s.Read(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, "home", r.HouseholdID)
		assert.Equal(t, 12.5, r.ConsumptionKWH)
		assert.Equal(t, 4.2, r.SolarKWH)
		assert.Equal(t, types.ReadingSourceSimulated, r.Source)
		assert.Equal(t, now, r.Timestamp)
	})

	t.Run("diurnal", func(t *testing.T) {
		s := NewSimulated(ProfileDiurnal, time.UTC)
		s.now = func() time.Time { return now }
		r, err := s.Read(ctx, "home")
		require.NoError(t, err)
		assert.InDelta(t, 8.4, r.SolarKWH, 1e-9)

		c, solar := DiurnalAt(time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC))
		assert.Equal(t, 0.0, solar)
		assert.Greater(t, c, 0.0)

		evening, _ := DiurnalAt(time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC))
		morning, _ := DiurnalAt(time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC))
		assert.Greater(t, evening, morning)
	})
}

type fakeSubscriber struct {
	topic   string
	handler mqtt.Handler
}

func (f *fakeSubscriber) Topic(parts ...string) string {
	return "greengrid/" + parts[0] + "/" + parts[1]
}

func (f *fakeSubscriber) Subscribe(topic string, h mqtt.Handler) error {
	f.topic = topic
	f.handler = h
	return nil
}

func TestMQTT(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC)

	m := NewMQTT(15 * time.Minute)
	m.now = func() time.Time { return now }
	sub := &fakeSubscriber{}
	require.NoError(t, m.Subscribe(ctx, sub))
	assert.Equal(t, "greengrid/+/reading", sub.topic)

	_, err := m.Read(ctx, "home")
	assert.ErrorIs(t, err, ErrNoReading)

	sub.handler("greengrid/home/reading", []byte(`{"timestamp":"2026-06-01T12:55:00Z","consumptionKWH":3.5,"solarKWH":1.25}`))
	r, err := m.Read(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, 3.5, r.ConsumptionKWH)
	assert.Equal(t, 1.25, r.SolarKWH)
	assert.Equal(t, types.ReadingSourceMQTT, r.Source)

	t.Run("older reading ignored", func(t *testing.T) {
		sub.handler("greengrid/home/reading", []byte(`{"timestamp":"2026-06-01T12:00:00Z","consumptionKWH":9,"solarKWH":9}`))
		r, err := m.Read(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, 3.5, r.ConsumptionKWH)
	})

	t.Run("invalid payloads ignored", func(t *testing.T) {
		sub.handler("greengrid/other/reading", []byte(`nope`))
		sub.handler("greengrid/other/reading", []byte(`{"consumptionKWH":1}`))
		sub.handler("greengrid/other/reading", []byte(`{"consumptionKWH":-1,"solarKWH":1}`))
		_, err := m.Read(ctx, "other")
		assert.ErrorIs(t, err, ErrNoReading)
	})

	t.Run("missing timestamp uses now", func(t *testing.T) {
		sub.handler("greengrid/other/reading", []byte(`{"consumptionKWH":1,"solarKWH":0}`))
		r, err := m.Read(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, now, r.Timestamp)
	})

	t.Run("stale", func(t *testing.T) {
		m.now = func() time.Time { return now.Add(time.Hour) }
		_, err := m.Read(ctx, "home")
		assert.ErrorIs(t, err, ErrNoReading)
	})
}

func TestConfigSensor(t *testing.T) {
	ctx := context.Background()

	c := &Config{Provider: ProviderSimulated, Profile: ProfileFlat}
	s, err := c.Sensor(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, s)

	c = &Config{Provider: ProviderMQTT}
	_, err = c.Sensor(ctx, nil)
	assert.Error(t, err)

	s, err = c.Sensor(ctx, &fakeSubscriber{})
	require.NoError(t, err)
	assert.IsType(t, &MQTT{}, s)

	c = &Config{Provider: "bogus"}
	_, err = c.Sensor(ctx, nil)
	assert.Error(t, err)
}
