package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// fakeCollector is a Collector whose references hold their values
// strongly until the test reclaims them by hand.
type fakeCollector[T any] struct {
	mu   sync.Mutex
	refs map[*T]*fakeRef[T]
}

type fakeRef[T any] struct {
	mu      sync.Mutex
	v       *T
	cb      func()
	stopped bool
}

func newFakeCollector[T any]() *fakeCollector[T] {
	return &fakeCollector[T]{refs: make(map[*T]*fakeRef[T])}
}

func (c *fakeCollector[T]) Track(v *T, reclaimed func()) Ref[T] {
	r := &fakeRef[T]{v: v, cb: reclaimed}
	c.mu.Lock()
	c.refs[v] = r
	c.mu.Unlock()
	return r
}

// reclaim simulates the collector reclaiming v and reports whether a
// notice was delivered.
func (c *fakeCollector[T]) reclaim(v *T) bool {
	c.mu.Lock()
	r, ok := c.refs[v]
	delete(c.refs, v)
	c.mu.Unlock()
	if !ok {
		return false
	}

	r.mu.Lock()
	r.v = nil
	cb, stopped := r.cb, r.stopped
	r.mu.Unlock()
	if stopped {
		return false
	}
	cb()
	return true
}

// drop clears the referent without delivering a notice, as if the value
// was collected but its cleanup has not run yet.
func (c *fakeCollector[T]) drop(v *T) {
	c.mu.Lock()
	r := c.refs[v]
	c.mu.Unlock()
	r.mu.Lock()
	r.v = nil
	r.mu.Unlock()
}

func (r *fakeRef[T]) Get() (*T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v, r.v != nil
}

func (r *fakeRef[T]) Clear() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// countingMetrics records every signal it receives.
type countingMetrics struct {
	hits, misses, loads, size atomic.Int64
	mu                        sync.Mutex
	evicts                    map[EvictReason]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{evicts: make(map[EvictReason]int)}
}

func (m *countingMetrics) Hit()                      { m.hits.Add(1) }
func (m *countingMetrics) Miss()                     { m.misses.Add(1) }
func (m *countingMetrics) Size(n int)                { m.size.Store(int64(n)) }
func (m *countingMetrics) Load(time.Duration, error) { m.loads.Add(1) }
func (m *countingMetrics) Evict(r EvictReason) {
	m.mu.Lock()
	m.evicts[r]++
	m.mu.Unlock()
}

func (m *countingMetrics) evicted(r EvictReason) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evicts[r]
}

// box is a small pointer-carrying value for the GC-assisted maps.
type box struct {
	key string
	buf []byte
}

// boxFunc returns a computation producing a fresh *box per call and a
// counter of invocations.
func boxFunc() (Func[string, *box], *atomic.Int64) {
	var calls atomic.Int64
	return func(k string) (*box, error) {
		calls.Add(1)
		return &box{key: k, buf: make([]byte, 64)}, nil
	}, &calls
}
