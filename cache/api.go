package cache

import "context"

// Map is the contract shared by every memoizing map in this package.
// Callers never supply values: each key's value is produced by the
// computation the map was constructed with, at most once while the key
// stays resident.
// All methods are safe for concurrent use by multiple goroutines.
type Map[K comparable, V any] interface {
	// Get returns the cached value for k. It never starts a computation.
	// ok=false means absent. Only FutureMap blocks (while k is pending)
	// or returns a non-nil error (a captured computation failure).
	Get(k K) (v V, ok bool, err error)

	// Put ensures a computation for k is registered and reports whether
	// this call registered it. Put on a pending or ready key is a no-op
	// returning false. Synchronous maps return the computation error and
	// register nothing.
	Put(k K) (bool, error)

	// PutGet is Put followed by Get. onHit runs when k was already
	// present, onMiss when this call computed it; either may be nil.
	// A failed computation runs neither and returns the error.
	PutGet(k K, onHit, onMiss func(k K, v V)) (V, error)

	// PutAll calls Put for every key and returns how many were newly
	// registered. It stops at the first error.
	PutAll(keys ...K) (int, error)

	// Remove evicts k and reports whether anything changed.
	Remove(k K) bool

	// Clear evicts every key and reports whether anything changed.
	Clear() bool

	// Len returns the number of resident keys.
	Len() int

	// Keys and Values are live views over the backing store.
	Keys() KeyView[K]
	Values() View[V]

	// Stats returns a snapshot of the map's counters.
	Stats() Stats
}

// Func computes the value for a key. It must be deterministic and safe to
// invoke more than once for the same key: reclaimed values are recomputed.
type Func[K comparable, V any] func(k K) (V, error)

// ContextFunc is the computation run by FutureMap on a background
// goroutine. ctx is cancelled when the pending key is removed or the map
// is closed; honouring it is up to the computation.
type ContextFunc[K comparable, V any] func(ctx context.Context, k K) (V, error)

// Stats is a point-in-time snapshot of a map's counters.
type Stats struct {
	Hits         uint64 // lookups that found a value
	Misses       uint64 // lookups that found nothing
	Computations uint64 // computations that returned
	Failures     uint64 // computations that returned an error
	Evictions    uint64 // entries removed by capacity, policy or reclamation
}
