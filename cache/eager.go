package cache

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/memocache/internal/singleflight"
	"github.com/IvanBrykalov/memocache/internal/util"
)

// EagerMap is the baseline memoizing map: Put computes on the calling
// goroutine and stores the result directly; nothing is ever evicted
// implicitly. Keys are spread over lock-striped shards.
//
// A computed nil value (nil pointer, map, slice, func, chan or interface)
// is treated as absent and not retained, so Put recomputes it every time.
type EagerMap[K comparable, V any] struct {
	shards  []*eagerShard[K, V]
	size    atomic.Int64
	compute Func[K, V]
	sf      singleflight.Group[K, filled[V]]

	opt   Options[K, V]
	log   *slog.Logger
	meter meter
}

// eagerShard is an independent partition with its own lock and index.
type eagerShard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]valueEntry[K, V]
}

// NewEager constructs an eager map. compute must not be nil.
// Shards <= 0 picks an automatic count; see Options.Shards.
func NewEager[K comparable, V any](compute Func[K, V], opt Options[K, V]) *EagerMap[K, V] {
	if compute == nil {
		panic("cache: nil computation")
	}
	opt.applyDefaults()

	n := util.ShardCount(opt.Shards)
	shards := make([]*eagerShard[K, V], n)
	for i := range shards {
		shards[i] = &eagerShard[K, V]{m: make(map[K]valueEntry[K, V])}
	}
	m := &EagerMap[K, V]{
		shards:  shards,
		compute: compute,
		opt:     opt,
		log:     opt.Logger,
	}
	m.meter.m = opt.Metrics
	return m
}

// Get returns the cached value for k.
func (m *EagerMap[K, V]) Get(k K) (V, bool, error) {
	v, ok := m.shard(k).load(k)
	m.meter.lookup(ok)
	return v, ok, nil
}

// Put computes and stores the value for k unless it is already present.
// It returns true when this call ran the computation, even if the result
// was nil and therefore not retained.
func (m *EagerMap[K, V]) Put(k K) (bool, error) {
	_, fresh, err := m.fill(k)
	return fresh, err
}

// PutGet returns the value for k, computing it on a miss.
func (m *EagerMap[K, V]) PutGet(k K, onHit, onMiss func(k K, v V)) (V, error) {
	v, fresh, err := m.fill(k)
	if err != nil {
		var zero V
		return zero, err
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
func (m *EagerMap[K, V]) PutAll(keys ...K) (int, error) {
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

// Remove deletes k if present.
func (m *EagerMap[K, V]) Remove(k K) bool {
	s := m.shard(k)
	s.mu.Lock()
	_, ok := s.m[k]
	if ok {
		delete(s.m, k)
		m.size.Add(-1)
	}
	s.mu.Unlock()

	if ok {
		m.meter.m.Size(m.Len())
	}
	return ok
}

// Clear deletes every key.
func (m *EagerMap[K, V]) Clear() bool {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		removed += len(s.m)
		m.size.Add(int64(-len(s.m)))
		clear(s.m)
		s.mu.Unlock()
	}
	if removed == 0 {
		return false
	}
	m.meter.m.Size(m.Len())
	return true
}

// Len returns the total number of resident keys across all shards.
func (m *EagerMap[K, V]) Len() int { return int(m.size.Load()) }

// Keys returns a live view over the resident keys.
func (m *EagerMap[K, V]) Keys() KeyView[K] {
	return keyView[K]{
		view: view[K]{
			size: m.Len,
			snapshot: func() []K {
				out := make([]K, 0, m.Len())
				m.each(func(e valueEntry[K, V]) { out = append(out, e.k) })
				return out
			},
		},
		contains: func(k K) bool {
			_, ok := m.shard(k).load(k)
			return ok
		},
	}
}

// Values returns a live view over the resident values.
func (m *EagerMap[K, V]) Values() View[V] {
	return view[V]{
		size: m.Len,
		snapshot: func() []V {
			out := make([]V, 0, m.Len())
			m.each(func(e valueEntry[K, V]) { out = append(out, e.v) })
			return out
		},
	}
}

// Stats returns a snapshot of the map's counters.
func (m *EagerMap[K, V]) Stats() Stats { return m.meter.snapshot() }

// ---- helpers ----

// shard picks a shard by hashing the key; len(m.shards) is a power of two.
func (m *EagerMap[K, V]) shard(k K) *eagerShard[K, V] {
	return m.shards[util.ShardIndex(util.Hash(k), len(m.shards))]
}

func (m *EagerMap[K, V]) each(fn func(valueEntry[K, V])) {
	for _, s := range m.shards {
		s.mu.RLock()
		for _, e := range s.m {
			fn(e)
		}
		s.mu.RUnlock()
	}
}

func (m *EagerMap[K, V]) fill(k K) (V, bool, error) {
	s := m.shard(k)
	if v, ok := s.load(k); ok {
		return v, false, nil
	}

	r, err, shared := m.sf.Do(k, func() (filled[V], error) {
		if v, ok := s.load(k); ok {
			return filled[V]{v: v}, nil
		}

		start := time.Now()
		v, err := m.compute(k)
		m.meter.load(time.Since(start), err)
		if err != nil {
			m.log.Debug("computation failed", "key", k, "err", err)
			return filled[V]{}, err
		}

		if !isNil(v) {
			s.mu.Lock()
			if _, dup := s.m[k]; !dup {
				s.m[k] = valueEntry[K, V]{k: k, v: v}
				m.size.Add(1)
			}
			s.mu.Unlock()
			m.meter.m.Size(m.Len())
		}
		return filled[V]{v: v, fresh: true}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return r.v, r.fresh && !shared, nil
}

func (s *eagerShard[K, V]) load(k K) (V, bool) {
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	return e.v, ok
}

// isNil reports whether v is nil or a nil value of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

var _ Map[string, int] = (*EagerMap[string, int])(nil)
