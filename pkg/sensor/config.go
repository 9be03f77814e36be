package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

const (
	ProviderSimulated = "simulated"
	ProviderMQTT      = "mqtt"
)

// Config holds the selected sensor and lets main finish wiring it once the
// mqtt connection is up.
type Config struct {
	Provider string
	Profile  string
	MaxAge   time.Duration

	simulated *Simulated
	mqtt      *MQTT
}

// Configured registers the sensor flags.
func Configured() *Config {
	c := &Config{}
	provider := lflag.String("sensor-provider", ProviderSimulated, "Sensor provider: simulated or mqtt")
	profile := lflag.String("sensor-profile", ProfileFlat, "Simulated sensor profile: flat or diurnal")
	maxAge := lflag.Duration("sensor-max-age", 15*time.Minute, "Readings older than this are ignored by the mqtt sensor")

	lflag.Do(func() {
		c.Provider = *provider
		c.Profile = *profile
		c.MaxAge = *maxAge
	})
	return c
}

// Sensor returns the sensor for the configured provider. The mqtt sensor
// subscribes on sub.
func (c *Config) Sensor(ctx context.Context, sub Subscriber) (Sensor, error) {
	switch c.Provider {
	case ProviderSimulated, "":
		if c.Profile != ProfileFlat && c.Profile != ProfileDiurnal && c.Profile != "" {
			return nil, fmt.Errorf("unknown sensor profile: %s", c.Profile)
		}
		if c.simulated == nil {
			c.simulated = NewSimulated(c.Profile, time.Local)
		}
		return c.simulated, nil
	case ProviderMQTT:
		if sub == nil {
			return nil, fmt.Errorf("mqtt sensor requires an mqtt broker")
		}
		if c.mqtt == nil {
			m := NewMQTT(c.MaxAge)
			if err := m.Subscribe(ctx, sub); err != nil {
				return nil, err
			}
			c.mqtt = m
		}
		return c.mqtt, nil
	default:
		return nil, fmt.Errorf("unknown sensor provider: %s", c.Provider)
	}
}
