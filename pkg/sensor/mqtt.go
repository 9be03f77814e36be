package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/mqtt"
	"github.com/greengrid/greengrid/pkg/types"
)

// Subscriber is the part of the mqtt connection the sensor needs.
type Subscriber interface {
	Topic(parts ...string) string
	Subscribe(topic string, h mqtt.Handler) error
}

// MQTT keeps the latest reading each household publishes to
// {prefix}/{householdID}/reading.
type MQTT struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	latest map[string]types.Reading
}

// NewMQTT returns an MQTT sensor rejecting readings older than maxAge. A zero
// maxAge accepts readings of any age.
func NewMQTT(maxAge time.Duration) *MQTT {
	return &MQTT{
		maxAge: maxAge,
		now:    time.Now,
		latest: make(map[string]types.Reading),
	}
}

// Subscribe starts receiving readings from sub.
func (m *MQTT) Subscribe(ctx context.Context, sub Subscriber) error {
	topic := sub.Topic("+", "reading")
	if err := sub.Subscribe(topic, func(topic string, payload []byte) {
		m.handle(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.Ctx(ctx).InfoContext(ctx, "subscribed to sensor readings", slog.String("topic", topic))
	return nil
}

type mqttReading struct {
	Timestamp      time.Time `json:"timestamp"`
	ConsumptionKWH *float64  `json:"consumptionKWH"`
	SolarKWH       *float64  `json:"solarKWH"`
}

func (m *MQTT) handle(ctx context.Context, topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[len(parts)-1] != "reading" {
		log.Ctx(ctx).WarnContext(ctx, "ignoring reading on unexpected topic", slog.String("topic", topic))
		return
	}
	householdID := parts[len(parts)-2]

	var msg mqttReading
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode reading", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	if msg.ConsumptionKWH == nil || msg.SolarKWH == nil || *msg.ConsumptionKWH < 0 || *msg.SolarKWH < 0 {
		log.Ctx(ctx).WarnContext(ctx, "ignoring incomplete reading", slog.String("topic", topic))
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}

	m.Set(types.Reading{
		HouseholdID:    householdID,
		Timestamp:      msg.Timestamp.UTC(),
		ConsumptionKWH: *msg.ConsumptionKWH,
		SolarKWH:       *msg.SolarKWH,
		Source:         types.ReadingSourceMQTT,
	})
}

// Set records r as the latest reading of its household unless a newer one is
// already known.
func (m *MQTT) Set(r types.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.latest[r.HouseholdID]; ok && prev.Timestamp.After(r.Timestamp) {
		return
	}
	m.latest[r.HouseholdID] = r
}

// Read implements Sensor.
func (m *MQTT) Read(ctx context.Context, householdID string) (types.Reading, error) {
	m.mu.RLock()
	r, ok := m.latest[householdID]
	m.mu.RUnlock()
	if !ok {
		return types.Reading{}, fmt.Errorf("%w for %s", ErrNoReading, householdID)
	}
	if m.maxAge > 0 && m.now().Sub(r.Timestamp) > m.maxAge {
		return types.Reading{}, fmt.Errorf("%w for %s: last at %s", ErrNoReading, householdID, r.Timestamp.Format(time.RFC3339))
	}
	return r, nil
}
