// Package mock provides an in-memory queue for tests with the same FIFO and
// timeout behavior as the Redis list.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue"
)

// MemoryQueue satisfies queue.Producer and queue.Consumer.
type MemoryQueue struct {
	mu     sync.Mutex
	msgs   [][]byte
	notify chan struct{}

	PushErr error
	// PopErrs are returned by successive Pop calls before any message.
	PopErrs []error
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}, 1)}
}

func (q *MemoryQueue) Push(_ context.Context, msg []byte) error {
	if q.PushErr != nil {
		return q.PushErr
	}
	q.mu.Lock()
	q.msgs = append(q.msgs, append([]byte(nil), msg...))
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.PopErrs) > 0 {
			err := q.PopErrs[0]
			q.PopErrs = q.PopErrs[1:]
			q.mu.Unlock()
			return nil, err
		}
		if len(q.msgs) > 0 {
			msg := q.msgs[0]
			q.msgs = q.msgs[1:]
			q.mu.Unlock()
			return msg, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of waiting messages.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Messages returns a copy of the waiting messages, oldest first.
func (q *MemoryQueue) Messages() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]byte(nil), q.msgs...)
}

var (
	_ queue.Producer = (*MemoryQueue)(nil)
	_ queue.Consumer = (*MemoryQueue)(nil)
)
