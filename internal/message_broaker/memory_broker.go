package message_broaker

import (
	"context"
	"errors"
	"sync"
)

var ErrBrokerClosed = errors.New("broker is closed")

// MemoryBroker delivers messages to the consumers of one process. A full subscriber
// buffer drops the message instead of blocking the publisher.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string][]chan []byte
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]chan []byte), done: make(chan struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, queue string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for _, ch := range b.subs[queue] {
		select {
		case ch <- append([]byte(nil), message...):
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	ch := make(chan []byte, consumeBuffer)
	b.subs[queue] = append(b.subs[queue], ch)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case <-ctx.Done():
			b.unsubscribe(queue, ch)
		case <-b.done:
		}
	}()
	return ch, nil
}

// Close closes every subscriber channel and waits for the consume watchers to exit.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for queue, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, queue)
	}
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *MemoryBroker) unsubscribe(queue string, target chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[queue]
	for i, ch := range subs {
		if ch == target {
			b.subs[queue] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}
