package cache

// entry is the unit of storage. How it holds its value differs by map:
// a plain value, a collectible reference (which doubles as the LRU ring
// node) or a background task.
//
// All methods are called under the owning map's lock.
type entry[K comparable, V any] interface {
	key() K
	// current returns the value if one is available right now.
	current() (V, bool)
	// dispose releases whatever the entry holds once it leaves the map.
	dispose()
}

// valueEntry holds a value directly.
type valueEntry[K comparable, V any] struct {
	k K
	v V
}

func (e valueEntry[K, V]) key() K             { return e.k }
func (e valueEntry[K, V]) current() (V, bool) { return e.v, true }
func (e valueEntry[K, V]) dispose()           {}

// refEntry holds a collectible reference to a *T. In a bounded map it is
// also an intrusive node of the recency ring; prev/next are nil while the
// entry is not linked.
type refEntry[K comparable, T any] struct {
	k   K
	ref Ref[T]

	prev *refEntry[K, T]
	next *refEntry[K, T]
}

func (e *refEntry[K, T]) key() K { return e.k }

// Key implements policy.Node.
func (e *refEntry[K, T]) Key() K { return e.k }

func (e *refEntry[K, T]) current() (*T, bool) {
	if e.ref == nil {
		return nil, false
	}
	return e.ref.Get()
}

func (e *refEntry[K, T]) dispose() {
	if e.ref != nil {
		e.ref.Clear()
		e.ref = nil
	}
}

var (
	_ entry[string, int]  = valueEntry[string, int]{}
	_ entry[string, *int] = (*refEntry[string, int])(nil)
	_ entry[string, int]  = (*task[string, int])(nil)
)
