package queue

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testPayload struct {
	Value string `json:"value"`
}

func TestInMemoryQueue_PublishConsume(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(zap.NewNop())
	defer func() { _ = q.Close() }()

	var got atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = q.Consume(ctx, "events", func(message []byte) error {
			var p testPayload
			if err := json.Unmarshal(message, &p); err != nil {
				return err
			}
			got.Store(p.Value)
			return nil
		})
	}()

	require.NoError(t, q.Publish(ctx, "events", testPayload{Value: "hello"}))

	require.Eventually(t, func() bool {
		v, ok := got.Load().(string)
		return ok && v == "hello"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInMemoryQueue_PublishAfterClose(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(zap.NewNop())
	require.NoError(t, q.Close())

	err := q.Publish(context.Background(), "events", testPayload{Value: "late"})
	assert.Error(t, err)
}

func TestInMemoryQueue_ConsumeStopsOnContext(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(zap.NewNop())
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := q.Consume(ctx, "events", func([]byte) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_HandlerErrorDoesNotStopConsumer(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue(zap.NewNop())
	defer func() { _ = q.Close() }()

	var count atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = q.Consume(ctx, "events", func([]byte) error {
			if count.Add(1) == 1 {
				return assert.AnError
			}
			return nil
		})
	}()

	require.NoError(t, q.Publish(ctx, "events", testPayload{Value: "a"}))
	require.NoError(t, q.Publish(ctx, "events", testPayload{Value: "b"}))

	require.Eventually(t, func() bool { return count.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}
