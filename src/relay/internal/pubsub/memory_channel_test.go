package pubsub_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger(logger.LoggerEnvDevelopment)
	os.Exit(m.Run())
}

type received struct {
	topic   string
	payload any
}

func TestMemoryChannel_PublishReachesSubscribers(t *testing.T) {
	ctx := context.Background()
	ch := pubsub.NewMemoryChannel()

	var first, second []received
	require.NoError(t, ch.Subscribe(ctx, "message:a1", func(topic string, payload any) {
		first = append(first, received{topic, payload})
	}))
	require.NoError(t, ch.Subscribe(ctx, "message:a1", func(topic string, payload any) {
		second = append(second, received{topic, payload})
	}))

	require.NoError(t, ch.Publish(ctx, "message:a1", "hello"))
	require.NoError(t, ch.Publish(ctx, "message:b2", "ignored"))

	assert.Equal(t, []received{{"message:a1", "hello"}}, first)
	assert.Equal(t, []received{{"message:a1", "hello"}}, second)
}

func TestMemoryChannel_PublishWithoutSubscribers(t *testing.T) {
	ch := pubsub.NewMemoryChannel()
	assert.NoError(t, ch.Publish(context.Background(), "heartbeat-clear:a1", nil))
}

func TestMemoryChannel_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	ch := pubsub.NewMemoryChannel()

	calls := 0
	require.NoError(t, ch.Subscribe(ctx, "disconnect:a1", func(string, any) { calls++ }))
	require.NoError(t, ch.Unsubscribe(ctx, "disconnect:a1"))
	require.NoError(t, ch.Publish(ctx, "disconnect:a1", "bye"))

	assert.Equal(t, 0, calls)
	assert.NoError(t, ch.Unsubscribe(ctx, "never-subscribed"))
}

func TestMemoryChannel_Closed(t *testing.T) {
	ctx := context.Background()
	ch := pubsub.NewMemoryChannel()
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Publish(ctx, "message:a1", "x"), pubsub.ErrChannelClosed)
	assert.ErrorIs(t, ch.Subscribe(ctx, "message:a1", func(string, any) {}), pubsub.ErrChannelClosed)
	assert.ErrorIs(t, ch.Unsubscribe(ctx, "message:a1"), pubsub.ErrChannelClosed)
}

func TestMemoryChannel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := pubsub.NewMemoryChannel()
	assert.ErrorIs(t, ch.Publish(ctx, "message:a1", "x"), context.Canceled)
}

func TestAMQPChannel_RoundTrip(t *testing.T) {
	url := os.Getenv("RELAY_TEST_AMQP_URL")
	if url == "" {
		t.Skip("RELAY_TEST_AMQP_URL not set")
	}
	ctx := context.Background()

	ch, err := pubsub.NewAMQPChannel(url, "relay_pubsub_test", false)
	require.NoError(t, err)
	defer ch.Close()

	got := make(chan received, 1)
	require.NoError(t, ch.Subscribe(ctx, "disconnect:a1", func(topic string, payload any) {
		got <- received{topic, payload}
	}))

	require.NoError(t, ch.Publish(ctx, "disconnect:a1", "booted"))

	select {
	case r := <-got:
		assert.Equal(t, received{"disconnect:a1", "booted"}, r)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive notification in time")
	}

	require.NoError(t, ch.Unsubscribe(ctx, "disconnect:a1"))
}

func TestAMQPChannel_CloseDeletesExchange(t *testing.T) {
	url := os.Getenv("RELAY_TEST_AMQP_URL")
	if url == "" {
		t.Skip("RELAY_TEST_AMQP_URL not set")
	}
	ctx := context.Background()

	ch, err := pubsub.NewAMQPChannel(url, "relay_pubsub_deleted", true)
	require.NoError(t, err)
	require.NoError(t, ch.Subscribe(ctx, "message:a1", func(string, any) {}))
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Publish(ctx, "message:a1", "late"), pubsub.ErrChannelClosed)
}
