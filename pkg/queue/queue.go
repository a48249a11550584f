// Package queue provides the FIFO hand-off used between pipeline stages.
package queue

import (
	"context"
	"sync"

	"github.com/gammazero/deque"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Queue is a FIFO of types.Message for one writer and one reader.
// With a positive capacity Push blocks while the queue is full; capacity 0
// means unbounded.
type Queue struct {
	name     string
	capacity int

	mu  sync.Mutex
	buf deque.Deque[types.Message]

	// one-slot wakeups; waiters re-check state after each signal
	notEmpty chan struct{}
	notFull  chan struct{}
}

// New returns an empty queue. A negative capacity is treated as unbounded.
func New(name string, capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		name:     name,
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

// Name is the label given at construction.
func (q *Queue) Name() string { return q.name }

// Cap returns the bound, or 0 when unbounded.
func (q *Queue) Cap() int { return q.capacity }

// Len returns the number of buffered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Len()
}

// Push appends m, blocking while a bounded queue is full.
// It returns ctx.Err() if ctx is done before m is accepted.
func (q *Queue) Push(ctx context.Context, m types.Message) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.mu.Lock()
		if q.capacity == 0 || q.buf.Len() < q.capacity {
			q.buf.PushBack(m)
			q.mu.Unlock()
			wake(q.notEmpty)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notFull:
		}
	}
}

// Pop removes and returns the oldest message, blocking while the queue is
// empty. It returns ctx.Err() if ctx is done first.
func (q *Queue) Pop(ctx context.Context) (types.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Message{}, err
		}

		q.mu.Lock()
		if q.buf.Len() > 0 {
			m := q.buf.PopFront()
			q.mu.Unlock()
			wake(q.notFull)
			return m, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return types.Message{}, ctx.Err()
		case <-q.notEmpty:
		}
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
