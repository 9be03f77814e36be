package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/greengrid/greengrid/pkg/types"
)

// Publisher pushes every new advisory to {prefix}/{householdID}/advisory as a
// retained message so home-automation picks up the latest one on connect.
type Publisher struct {
	conn *Conn
}

// NewPublisher returns a Publisher on conn.
func NewPublisher(conn *Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Notify implements the coordinator notifier.
func (p *Publisher) Notify(ctx context.Context, a types.Advisory) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal advisory: %w", err)
	}
	topic := p.conn.Topic(a.HouseholdID, "advisory")
	if err := p.conn.Publish(topic, b, true); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
