package queue

import "context"

// Handler is a function that processes messages.
type Handler func(message []byte) error

// Queue is an interface for a message queue.
type Queue interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Consume(ctx context.Context, topic string, handler Handler) error
	Close() error
}
