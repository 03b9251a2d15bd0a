package cache

import (
	"sync"
	"sync/atomic"
)

// reclaimQueue collects entries whose values were reclaimed. push runs on
// runtime cleanup goroutines; the owning map drains the queue before each
// operation. drain never waits for new notices.
type reclaimQueue[K comparable, T any] struct {
	n     atomic.Int64
	mu    sync.Mutex
	items []*refEntry[K, T]
}

func (q *reclaimQueue[K, T]) push(e *refEntry[K, T]) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.n.Add(1)
	q.mu.Unlock()
}

// drain removes and returns every pending notice.
func (q *reclaimQueue[K, T]) drain() []*refEntry[K, T] {
	if q.n.Load() == 0 {
		return nil
	}
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.n.Store(0)
	q.mu.Unlock()
	return items
}

