//go:build integration

package consumer_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"turnstile/internal/platform/kafka/consumer"
	"turnstile/internal/platform/kafka/producer"
	"turnstile/pkg/testutil/containers"
)

// TestProduceConsumeRoundTrip publishes keyed messages and verifies a group
// consumer receives them in order.
func TestProduceConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t)
	topic := "turnstile.audit.test." + uuid.NewString()

	prod, err := producer.New(ctx, broker.Brokers, topic)
	require.NoError(t, err)
	defer prod.Close()

	key := []byte(uuid.NewString())
	const messages = 5
	for i := 0; i < messages; i++ {
		err := prod.Produce(ctx, key, []byte(fmt.Sprintf("event-%d", i)))
		require.NoError(t, err)
	}

	cons, err := consumer.New(broker.Brokers, "turnstile-test-"+uuid.NewString(), topic)
	require.NoError(t, err)
	defer cons.Close()

	var (
		mu       sync.Mutex
		received []string
	)
	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	done := make(chan error, 1)
	go func() {
		done <- cons.Run(consumeCtx, func(_ context.Context, msg consumer.Message) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, string(msg.Value))
			if len(received) == messages {
				stopConsume()
			}
			return nil
		})
	}()

	// Run exits with a cancellation error once the handler has seen every
	// message and stopped the consume context.
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, messages)
	for i, value := range received {
		require.Equal(t, fmt.Sprintf("event-%d", i), value, "same-key messages arrive in produce order")
	}
}

// TestTopicBootstrapIsIdempotent verifies a second producer against an
// existing topic does not fail on creation.
func TestTopicBootstrapIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t)
	topic := "turnstile.audit.test." + uuid.NewString()

	first, err := producer.New(ctx, broker.Brokers, topic)
	require.NoError(t, err)
	defer first.Close()

	second, err := producer.New(ctx, broker.Brokers, topic)
	require.NoError(t, err)
	defer second.Close()
}
