package message_broaker

import "context"

// MessageBroker carries enqueue notices between instances. Delivery is best effort:
// the job table stays the source of truth and workers still poll.
type MessageBroker interface {
	Publish(ctx context.Context, queue string, message []byte) error
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}
