package mqtt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMosquitto starts a broker accepting anonymous clients and returns its
// URL.
func startMosquitto(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()

	conf := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(conf, []byte("listener 1883\nallow_anonymous true\n"), 0644))

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{
				{
					HostFilePath:      conf,
					ContainerFilePath: "/mosquitto/config/mosquitto.conf",
					FileMode:          0644,
				},
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestIntegration(t *testing.T) {
	broker := startMosquitto(t)

	sub := New(broker, "sub", "greengrid")
	pub := New(broker, "pub", "greengrid")
	for _, c := range []*Conn{sub, pub} {
		var err error
		for i := 0; i < 5; i++ {
			if err = c.Connect(); err == nil {
				break
			}
			time.Sleep(500 * time.Millisecond)
		}
		require.NoError(t, err)
		defer c.Close()
	}

	msgCh := make(chan string, 1)
	require.NoError(t, sub.Subscribe(sub.Topic("+", "reading"), func(topic string, payload []byte) {
		msgCh <- topic + " " + string(payload)
	}))
	require.NoError(t, pub.Publish(pub.Topic("home", "reading"), []byte(`{"consumptionKWH":1}`), false))

	select {
	case got := <-msgCh:
		require.Equal(t, `greengrid/home/reading {"consumptionKWH":1}`, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
