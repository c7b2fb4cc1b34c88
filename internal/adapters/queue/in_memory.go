package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const topicBuffer = 64

// InMemoryQueue is an in-memory implementation of the Queue interface.
// Topics are created on first use by either side.
type InMemoryQueue struct {
	messages map[string]chan []byte
	mu       sync.Mutex
	logger   *zap.Logger
	closed   bool
}

// NewInMemoryQueue creates a new InMemoryQueue.
func NewInMemoryQueue(logger *zap.Logger) Queue {
	return &InMemoryQueue{
		messages: make(map[string]chan []byte),
		logger:   logger,
	}
}

func (q *InMemoryQueue) topic(name string) (chan []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("queue is closed")
	}

	topicChan, ok := q.messages[name]
	if !ok {
		topicChan = make(chan []byte, topicBuffer)
		q.messages[name] = topicChan
	}

	return topicChan, nil
}

// Publish publishes a message to the queue on a specific topic.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, message interface{}) error {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	topicChan, err := q.topic(topic)
	if err != nil {
		return err
	}

	select {
	case topicChan <- jsonMessage:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume consumes messages from the queue on a specific topic and
// passes them to the handler until the context ends.
func (q *InMemoryQueue) Consume(ctx context.Context, topic string, handler Handler) error {
	topicChan, err := q.topic(topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-topicChan:
			if !ok {
				return nil
			}
			if err := handler(message); err != nil {
				q.logger.Error("error processing message", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// Close closes all topic channels, ending consumers.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for _, topicChan := range q.messages {
		close(topicChan)
	}

	return nil
}
