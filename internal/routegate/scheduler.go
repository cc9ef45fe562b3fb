package routegate

import "sync"

// Scheduler runs work outside the current render
type Scheduler interface {
	Defer(fn func())
}

// GoScheduler runs each deferred function on its own goroutine
type GoScheduler struct{}

func (GoScheduler) Defer(fn func()) {
	go fn()
}

// QueueScheduler holds deferred functions until Flush. Drivers that need a
// deterministic order use it instead of GoScheduler.
type QueueScheduler struct {
	mu    sync.Mutex
	queue []func()
}

// NewQueueScheduler creates an empty queue
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{}
}

func (q *QueueScheduler) Defer(fn func()) {
	q.mu.Lock()
	q.queue = append(q.queue, fn)
	q.mu.Unlock()
}

// Flush runs queued functions in order, including any they defer, until the
// queue is empty. It returns how many ran.
func (q *QueueScheduler) Flush() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.mu.Unlock()
			return ran
		}
		fn := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		fn()
		ran++
	}
}

// Pending returns the number of queued functions
func (q *QueueScheduler) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
