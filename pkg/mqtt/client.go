package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/levenlabs/go-lflag"
)

// ErrNotConfigured is returned when no broker was configured.
var ErrNotConfigured = errors.New("mqtt broker not configured")

// Client is the subset of the paho client that Conn uses.
type Client interface {
	Connect() paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newClient = func(opts *paho.ClientOptions) Client {
	return paho.NewClient(opts)
}

// Handler is called with the topic and payload of every received message.
type Handler func(topic string, payload []byte)

// Conn is a connection to the home-automation broker.
type Conn struct {
	broker   string
	clientID string
	username string
	password string
	prefix   string
	qos      byte
	timeout  time.Duration

	client Client
}

// Configured registers the mqtt flags and returns an unconnected Conn.
func Configured() *Conn {
	c := &Conn{timeout: 5 * time.Second}
	broker := lflag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883), empty disables MQTT")
	clientID := lflag.String("mqtt-client-id", "greengrid", "MQTT client id")
	username := lflag.String("mqtt-username", "", "MQTT username")
	password := lflag.String("mqtt-password", "", "MQTT password")
	prefix := lflag.String("mqtt-topic-prefix", "greengrid", "Prefix for every MQTT topic")
	qos := 1
	lflag.JSON(&qos, "mqtt-qos", qos, "MQTT quality of service for publish and subscribe")

	lflag.Do(func() {
		c.broker = *broker
		c.clientID = *clientID
		c.username = *username
		c.password = *password
		c.prefix = strings.Trim(*prefix, "/")
		c.qos = byte(qos)
	})
	return c
}

// New returns an unconnected Conn for broker.
func New(broker, clientID, prefix string) *Conn {
	return &Conn{
		broker:   broker,
		clientID: clientID,
		prefix:   strings.Trim(prefix, "/"),
		qos:      1,
		timeout:  5 * time.Second,
	}
}

// Enabled returns true if a broker is configured.
func (c *Conn) Enabled() bool {
	return c.broker != ""
}

// Connect dials the broker. Reconnects are handled by paho.
func (c *Conn) Connect() error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if c.qos > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", c.qos)
	}
	opts := paho.NewClientOptions().
		AddBroker(c.broker).
		SetClientID(c.clientID).
		SetConnectTimeout(c.timeout).
		SetAutoReconnect(true)
	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("timed out connecting to %s", c.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.broker, err)
	}
	c.client = client
	return nil
}

// Topic joins parts under the configured prefix.
func (c *Conn) Topic(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, "/")
	}
	return c.prefix + "/" + strings.Join(parts, "/")
}

// Publish sends payload to topic and waits for the broker to acknowledge it.
func (c *Conn) Publish(topic string, payload []byte, retained bool) error {
	if c.client == nil {
		return ErrNotConfigured
	}
	return c.wait(c.client.Publish(topic, c.qos, retained, payload))
}

// Subscribe calls h for every message on topic.
func (c *Conn) Subscribe(topic string, h Handler) error {
	if c.client == nil {
		return ErrNotConfigured
	}
	return c.wait(c.client.Subscribe(topic, c.qos, func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}))
}

func (c *Conn) wait(token paho.Token) error {
	if !token.WaitTimeout(c.timeout) {
		return errors.New("timed out waiting for broker")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *Conn) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
