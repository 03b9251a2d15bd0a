package cache

import (
	"github.com/IvanBrykalov/memocache/policy/lru"
)

// LRUMap is a SoftMap with a hard bound on resident keys. Entries are
// threaded on an intrusive recency ring; whenever an insertion pushes
// Len() above MaximumSize the least recently used key is evicted, so the
// bound holds after every call returns. Values may additionally vanish
// through garbage collection exactly as in SoftMap; both paths unlink the
// ring node before the entry is released.
//
// Recency is updated on admission and on every successful Get or PutGet
// hit. Put on a resident key does not count as a use.
type LRUMap[K comparable, T any] struct {
	SoftMap[K, T]
}

// NewLRU constructs a bounded map. It panics if MaximumSize <= 0.
func NewLRU[K comparable, T any](compute Func[K, *T], opt LRUOptions[K, T]) *LRUMap[K, T] {
	if opt.MaximumSize <= 0 {
		panic("cache: MaximumSize must be > 0")
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}

	m := &LRUMap[K, T]{}
	m.init(compute, opt.SoftOptions)
	m.max = opt.MaximumSize
	m.ring = newRing[K, T]()
	m.pol = opt.Policy.New(ringHooks[K, T]{r: m.ring})
	return m
}

// MaximumSize returns the bound on resident keys.
func (m *LRUMap[K, T]) MaximumSize() int { return m.max }

// Recency returns the resident keys from most to least recently used.
func (m *LRUMap[K, T]) Recency() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanLocked()
	return m.ring.keys()
}

var _ Map[string, *int] = (*LRUMap[string, int])(nil)
