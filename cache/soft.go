package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IvanBrykalov/memocache/internal/singleflight"
	"github.com/IvanBrykalov/memocache/policy"
)

// SoftMap is a memoizing map whose values the garbage collector may
// reclaim. Values are *T held through collectible references. With the
// default SoftCollector a value stays cached while it is in use and
// becomes collectible after going untouched for two GC cycles; a value
// something outside the map still references is never lost. Reclaimed
// keys are purged lazily: every operation first drains the reclamation
// queue (see Clean), and a later Put simply recomputes.
//
// Computations must return fresh heap values (see Collector); maps over
// shared or static values take StrongCollector. A computed nil pointer is
// cached and reported as present.
// All methods are safe for concurrent use; computations run on the
// calling goroutine, coalesced per key.
type SoftMap[K comparable, T any] struct {
	mu      sync.Mutex
	m       map[K]*refEntry[K, T]
	queue   reclaimQueue[K, T]
	compute Func[K, *T]
	collect Collector[T]
	sf      singleflight.Group[K, filled[*T]]

	opt   Options[K, *T]
	log   *slog.Logger
	meter meter

	// Recency bookkeeping; set only for bounded maps (see NewLRU).
	ring *ring[K, T]
	pol  policy.Tracker[K]
	max  int
}

// filled is the outcome of a coalesced computation; fresh is true when
// the flight inserted a new entry.
type filled[V any] struct {
	v     V
	fresh bool
}

// NewSoft constructs a GC-assisted map. compute must not be nil.
func NewSoft[K comparable, T any](compute Func[K, *T], opt SoftOptions[K, T]) *SoftMap[K, T] {
	m := &SoftMap[K, T]{}
	m.init(compute, opt)
	return m
}

func (m *SoftMap[K, T]) init(compute Func[K, *T], opt SoftOptions[K, T]) {
	if compute == nil {
		panic("cache: nil computation")
	}
	opt.applyDefaults()
	if opt.Collector == nil {
		opt.Collector = SoftCollector[T]()
	}
	m.m = make(map[K]*refEntry[K, T])
	m.compute = compute
	m.collect = opt.Collector
	m.opt = opt.Options
	m.log = opt.Logger
	m.meter.m = opt.Metrics
}

// Get returns the value for k if it is cached and not yet reclaimed.
// In a bounded map a hit moves k to the most recently used end.
func (m *SoftMap[K, T]) Get(k K) (*T, bool, error) {
	m.mu.Lock()
	m.cleanLocked()
	v, ok := m.lookupLocked(k, true)
	m.mu.Unlock()

	m.meter.lookup(ok)
	return v, ok, nil
}

// Put computes and caches the value for k unless it is already present.
func (m *SoftMap[K, T]) Put(k K) (bool, error) {
	_, fresh, err := m.fill(k, false)
	return fresh, err
}

// PutGet returns the value for k, computing it on a miss.
func (m *SoftMap[K, T]) PutGet(k K, onHit, onMiss func(k K, v *T)) (*T, error) {
	v, fresh, err := m.fill(k, true)
	if err != nil {
		return nil, err
	}
	m.meter.lookup(!fresh)
	if fresh {
		if onMiss != nil {
			onMiss(k, v)
		}
	} else if onHit != nil {
		onHit(k, v)
	}
	return v, nil
}

// PutAll puts every key in order and returns how many were computed.
func (m *SoftMap[K, T]) PutAll(keys ...K) (int, error) {
	n := 0
	for _, k := range keys {
		fresh, err := m.Put(k)
		if err != nil {
			return n, fmt.Errorf("cache: put %v: %w", k, err)
		}
		if fresh {
			n++
		}
	}
	return n, nil
}

// Remove drops k. It reports false if k was not resident.
func (m *SoftMap[K, T]) Remove(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanLocked()
	e, ok := m.m[k]
	if !ok {
		return false
	}
	m.dropLocked(e, policy.Removed)
	m.meter.m.Size(len(m.m))
	return true
}

// Clear drops every key.
func (m *SoftMap[K, T]) Clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanLocked()
	if len(m.m) == 0 {
		return false
	}
	for _, e := range m.m {
		m.dropLocked(e, policy.Removed)
	}
	m.meter.m.Size(0)
	return true
}

// Clean drains pending reclamation notices and removes the affected keys.
// It returns the number of keys removed. It never waits for the collector.
func (m *SoftMap[K, T]) Clean() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanLocked()
}

// Len returns the number of resident keys after draining reclamations.
func (m *SoftMap[K, T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanLocked()
	return len(m.m)
}

// Keys returns a live view over the resident keys.
func (m *SoftMap[K, T]) Keys() KeyView[K] {
	return keyView[K]{
		view: view[K]{size: m.Len, snapshot: m.keySnapshot},
		contains: func(k K) bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.cleanLocked()
			_, ok := m.lookupLocked(k, false)
			return ok
		},
	}
}

// Values returns a live view over the values that are still reachable.
func (m *SoftMap[K, T]) Values() View[*T] {
	return view[*T]{size: m.Len, snapshot: m.valueSnapshot}
}

// Stats returns a snapshot of the map's counters.
func (m *SoftMap[K, T]) Stats() Stats { return m.meter.snapshot() }

// -------------------- internals --------------------

// fill returns the value for k, computing it at most once across
// concurrent callers. touch promotes a hit in bounded maps.
func (m *SoftMap[K, T]) fill(k K, touch bool) (*T, bool, error) {
	m.mu.Lock()
	m.cleanLocked()
	if v, ok := m.lookupLocked(k, touch); ok {
		m.mu.Unlock()
		return v, false, nil
	}
	m.mu.Unlock()

	r, err, shared := m.sf.Do(k, func() (filled[*T], error) {
		// Re-check: a previous flight may have finished after our miss.
		m.mu.Lock()
		if v, ok := m.lookupLocked(k, touch); ok {
			m.mu.Unlock()
			return filled[*T]{v: v}, nil
		}
		m.mu.Unlock()

		v, err := m.run(k)
		if err != nil {
			return filled[*T]{}, err
		}

		m.mu.Lock()
		m.insertLocked(k, v)
		m.mu.Unlock()
		return filled[*T]{v: v, fresh: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return r.v, r.fresh && !shared, nil
}

func (m *SoftMap[K, T]) run(k K) (*T, error) {
	start := time.Now()
	v, err := m.compute(k)
	m.meter.load(time.Since(start), err)
	if err != nil {
		m.log.Debug("computation failed", "key", k, "err", err)
	}
	return v, err
}

// lookupLocked returns the live value for k. An entry whose value is gone
// but whose notice has not been drained yet is evicted on the spot.
func (m *SoftMap[K, T]) lookupLocked(k K, touch bool) (*T, bool) {
	e, ok := m.m[k]
	if !ok {
		return nil, false
	}
	v, live := e.current()
	if !live {
		m.evictLocked(e, EvictReclaimed)
		return nil, false
	}
	if touch && m.pol != nil {
		m.pol.OnGet(e)
	}
	return v, true
}

func (m *SoftMap[K, T]) insertLocked(k K, v *T) {
	if old, ok := m.m[k]; ok {
		m.dropLocked(old, policy.Removed)
	}

	e := &refEntry[K, T]{k: k}
	if v == nil {
		e.ref = strongRef[T]{}
	} else {
		e.ref = m.collect.Track(v, func() { m.queue.push(e) })
	}
	m.m[k] = e

	if m.pol != nil {
		if victim := m.pol.OnAdd(e); victim != nil {
			m.evictLocked(victim.(*refEntry[K, T]), EvictPolicy)
		}
		for len(m.m) > m.max {
			lru := m.ring.back()
			if lru == nil {
				break
			}
			m.evictLocked(lru, EvictCapacity)
		}
	}
	m.meter.m.Size(len(m.m))
}

// cleanLocked purges keys whose values were reclaimed. A notice for an
// entry that was already replaced or removed is ignored.
func (m *SoftMap[K, T]) cleanLocked() int {
	n := 0
	for _, e := range m.queue.drain() {
		if cur, ok := m.m[e.k]; ok && cur == e {
			m.evictLocked(e, EvictReclaimed)
			n++
		}
	}
	if n > 0 {
		m.log.Debug("purged reclaimed keys", "count", n)
		m.meter.m.Size(len(m.m))
	}
	return n
}

// evictLocked removes e and reports the eviction.
func (m *SoftMap[K, T]) evictLocked(e *refEntry[K, T], reason EvictReason) {
	why := policy.Evicted
	if reason == EvictReclaimed {
		why = policy.Reclaimed
	}
	m.dropLocked(e, why)
	m.meter.evict(reason)
	if cb := m.opt.OnEvict; cb != nil {
		cb(e.k, reason)
	}
}

// dropLocked unlinks e from the ring before releasing it, so the ring
// never holds a node the index no longer knows about.
func (m *SoftMap[K, T]) dropLocked(e *refEntry[K, T], why policy.Removal) {
	if m.pol != nil {
		m.pol.OnRemove(e, why)
		m.ring.unlink(e)
	}
	delete(m.m, e.k)
	e.dispose()
}

func (m *SoftMap[K, T]) keySnapshot() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanLocked()
	out := make([]K, 0, len(m.m))
	for k := range m.m {
		out = append(out, k)
	}
	return out
}

func (m *SoftMap[K, T]) valueSnapshot() []*T {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanLocked()
	out := make([]*T, 0, len(m.m))
	for _, e := range m.m {
		if v, ok := e.current(); ok {
			out = append(out, v)
		}
	}
	return out
}

var _ Map[string, *int] = (*SoftMap[string, int])(nil)
