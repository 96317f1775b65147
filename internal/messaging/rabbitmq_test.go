package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"timetodo_backend/internal/models"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	sent       []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

var fixedNow = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func newFakePublisher() (*RabbitPublisher, *fakeChannel) {
	ch := &fakeChannel{}
	p := newPublisher(nil, ch, "analytics")
	p.now = func() time.Time { return fixedNow }
	return p, ch
}

func TestRabbitPublisher_PublishesEventAsJSON(t *testing.T) {
	p, ch := newFakePublisher()
	userID := "9b2f6c1e-3c1a-4f5e-8a51-0c7e4a1d2b3c"
	event := &models.AnalyticsEvent{
		BaseModel:     models.BaseModel{ID: "e1"},
		EventType:     "login",
		EventCategory: "auth",
		UserID:        &userID,
		EventData:     []byte(`{"provider":"oidc"}`),
		Timestamp:     fixedNow,
	}

	require.NoError(t, p.Publish(context.Background(), "events.tracked", event))

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "analytics", got.exchange)
	assert.Equal(t, "events.tracked", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, fixedNow, got.msg.Timestamp)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "login", body["event_type"])
	assert.Equal(t, "auth", body["event_category"])
	assert.Equal(t, userID, body["user_id"])
	assert.Equal(t, map[string]any{"provider": "oidc"}, body["event_data"])
}

func TestRabbitPublisher_MarshalError(t *testing.T) {
	p, ch := newFakePublisher()

	err := p.Publish(context.Background(), "events.tracked", struct {
		Ch chan int `json:"ch"`
	}{Ch: make(chan int)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "messaging.Publish")
	assert.Empty(t, ch.sent)
}

func TestRabbitPublisher_ChannelErrorIsWrapped(t *testing.T) {
	p, ch := newFakePublisher()
	ch.publishErr = amqp.ErrClosed

	err := p.Publish(context.Background(), "events.tracked", map[string]string{"a": "b"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestRabbitPublisher_ConcurrentPublish(t *testing.T) {
	p, ch := newFakePublisher()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Publish(context.Background(), "events.tracked", map[string]int{"n": i}))
		}()
	}
	wg.Wait()

	assert.Len(t, ch.sent, 20)
}

func TestRabbitPublisher_CloseWithoutConnection(t *testing.T) {
	p, ch := newFakePublisher()
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "any", nil))
	assert.NoError(t, p.Close())
}

// amqpURI - TEST_RABBITMQ_URL или контейнер rabbitmq
func amqpURI(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_RABBITMQ_URL"); url != "" {
		return url
	}
	if testing.Short() {
		t.Skip("rabbitmq container tests skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestRabbitPublisher_DeliversToBoundQueue(t *testing.T) {
	uri := amqpURI(t)

	p, err := NewRabbitPublisher(uri, "analytics-test", 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	conn, err := Connect(uri, 3, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "events.#", "analytics-test", false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "events.tracked", map[string]string{"event_type": "login"}))

	select {
	case d := <-deliveries:
		assert.Equal(t, "application/json", d.ContentType)
		assert.JSONEq(t, `{"event_type":"login"}`, string(d.Body))
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
