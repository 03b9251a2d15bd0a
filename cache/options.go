package cache

import (
	"log/slog"
	"time"

	"github.com/IvanBrykalov/memocache/policy"
)

// EvictReason explains why an entry left a map without an explicit Remove.
type EvictReason int

const (
	// EvictCapacity: removed from the LRU end to honour MaximumSize.
	EvictCapacity EvictReason = iota
	// EvictPolicy: victim nominated by the recency policy (e.g. 2Q probation overflow).
	EvictPolicy
	// EvictReclaimed: the value was reclaimed by the garbage collector.
	EvictReclaimed
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictPolicy:
		return "policy"
	case EvictReclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

// Metrics exposes map-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
	// Load observes one finished computation; err is its outcome.
	Load(d time.Duration, err error)
}

// Options configures behaviour shared by all maps. Zero values are safe;
// defaults are applied by the constructors:
//   - nil Metrics => NoopMetrics
//   - nil Logger  => logs are discarded
type Options[K comparable, V any] struct {
	// Shards is the number of lock partitions of an EagerMap. If 0, an
	// automatic value is chosen (≈ 2*GOMAXPROCS); values are rounded up to
	// a power of two. Other maps ignore it.
	Shards int

	// OnEvict is called for every eviction under the map lock; keep it
	// lightweight and do not call back into the map.
	OnEvict func(k K, reason EvictReason)

	Metrics Metrics
	Logger  *slog.Logger
}

func (o *Options[K, V]) applyDefaults() {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// SoftOptions configures a SoftMap.
type SoftOptions[K comparable, T any] struct {
	Options[K, *T]

	// Collector wraps computed values in collectible references.
	// nil => SoftCollector. WeakCollector drops idle values at the next
	// GC; StrongCollector never does.
	Collector Collector[T]
}

// LRUOptions configures an LRUMap.
type LRUOptions[K comparable, T any] struct {
	SoftOptions[K, T]

	// MaximumSize is the hard bound on resident keys; must be > 0.
	MaximumSize int

	// Policy orders the recency ring; nil => strict LRU.
	Policy policy.Policy[K]
}

// FutureOptions configures a FutureMap.
type FutureOptions[K comparable, V any] struct {
	Options[K, V]

	// Workers bounds how many computations run at once; tasks beyond the
	// bound stay pending until a slot frees up. <= 0 => 4*GOMAXPROCS.
	Workers int

	// Promote replaces a successfully finished task record with a plain
	// value entry. Failed tasks are always kept so their error can be
	// replayed.
	Promote bool
}
