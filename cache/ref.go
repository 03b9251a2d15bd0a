package cache

import (
	"runtime"
	"sync"
	"unsafe"
	"weak"
)

// Ref is a collectible reference to a cached value.
type Ref[T any] interface {
	// Get returns the referent, or (nil, false) once it was reclaimed.
	Get() (*T, bool)
	// Clear detaches the reference from its reclamation signal. After
	// Clear the reclaimed callback passed to Collector.Track never runs.
	Clear()
}

// Collector wraps values in Refs and reports their reclamation.
//
// Track must arrange for reclaimed to be invoked at most once, from any
// goroutine, after v has been reclaimed. reclaimed must not block.
//
// The collectors in this package rely on weak pointers, so the values a
// computation returns must be fresh heap allocations: a pointer into a
// package-level variable makes the runtime abort. Maps whose computations
// hand out shared or static values should use StrongCollector. Pointers
// to zero-size types are always held strongly.
type Collector[T any] interface {
	Track(v *T, reclaimed func()) Ref[T]
}

// SoftCollector returns the default Collector. A value is held strongly
// while it is in use and becomes collectible once it has gone untouched
// (no Get, PutGet hit or view read) for two consecutive garbage
// collection cycles. How quickly idle values go therefore follows the
// collector's pace, which rises with allocation and memory pressure.
func SoftCollector[T any]() Collector[T] {
	c := &softCollector[T]{
		cur:  make(map[*softRef[T]]struct{}),
		prev: make(map[*softRef[T]]struct{}),
	}
	c.arm()
	return c
}

// WeakCollector returns a Collector of plain weak pointers: a value is
// reclaimed as soon as nothing outside the map references it, usually at
// the next garbage collection.
func WeakCollector[T any]() Collector[T] { return weakCollector[T]{} }

// StrongCollector returns a Collector that never lets go of a value. A
// SoftMap on it never loses keys by itself; an LRUMap is then governed by
// MaximumSize alone.
func StrongCollector[T any]() Collector[T] { return strongCollector[T]{} }

// pinned reports whether v must be held strongly regardless of the
// collector: nil, or a zero-size value, which has no heap identity.
func pinned[T any](v *T) bool {
	return v == nil || unsafe.Sizeof(*v) == 0
}

// -------------------- weak --------------------

type weakCollector[T any] struct{}

func (weakCollector[T]) Track(v *T, reclaimed func()) Ref[T] {
	if pinned(v) {
		return strongRef[T]{v: v}
	}
	return &weakRef[T]{
		p: weak.Make(v),
		// The cleanup must not reference v, otherwise v never becomes unreachable.
		c: runtime.AddCleanup(v, func(fn func()) { fn() }, reclaimed),
	}
}

type weakRef[T any] struct {
	p weak.Pointer[T]
	c runtime.Cleanup
}

func (r *weakRef[T]) Get() (*T, bool) {
	v := r.p.Value()
	return v, v != nil
}

func (r *weakRef[T]) Clear() { r.c.Stop() }

// -------------------- soft --------------------

// softCollector keeps a strong reference to every value touched during
// the current or the previous GC generation. A sentinel object whose
// cleanup re-arms itself marks the end of each cycle; the sentinel holds
// the collector weakly, so an abandoned collector stops ticking.
type softCollector[T any] struct {
	mu   sync.Mutex
	cur  map[*softRef[T]]struct{}
	prev map[*softRef[T]]struct{}
}

// gcSentinel carries a pointer so it is never tiny-allocated alongside
// other objects.
type gcSentinel struct{ _ *byte }

func (c *softCollector[T]) arm() {
	runtime.AddCleanup(new(gcSentinel), rotateSoft[T], weak.Make(c))
}

func rotateSoft[T any](wc weak.Pointer[softCollector[T]]) {
	c := wc.Value()
	if c == nil {
		return
	}
	c.rotate()
	c.arm()
}

// rotate ends a generation: values untouched since the previous rotation
// lose their strong reference.
func (c *softCollector[T]) rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for r := range c.prev {
		if _, touched := c.cur[r]; !touched {
			r.hold = nil
		}
	}
	c.prev, c.cur = c.cur, make(map[*softRef[T]]struct{}, len(c.cur))
}

func (c *softCollector[T]) Track(v *T, reclaimed func()) Ref[T] {
	if pinned(v) {
		return strongRef[T]{v: v}
	}
	r := &softRef[T]{c: c, p: weak.Make(v), hold: v}
	r.cleanup = runtime.AddCleanup(v, func(fn func()) { fn() }, reclaimed)

	c.mu.Lock()
	c.cur[r] = struct{}{}
	c.mu.Unlock()
	return r
}

type softRef[T any] struct {
	c       *softCollector[T]
	p       weak.Pointer[T]
	cleanup runtime.Cleanup

	hold *T // guarded by c.mu; nil once the value went idle
}

// Get returns the value and marks it used in the current generation. A
// value that went idle but was not collected yet is held strongly again.
func (r *softRef[T]) Get() (*T, bool) {
	v := r.p.Value()
	if v == nil {
		return nil, false
	}
	r.c.mu.Lock()
	r.hold = v
	r.c.cur[r] = struct{}{}
	r.c.mu.Unlock()
	return v, true
}

func (r *softRef[T]) Clear() {
	r.cleanup.Stop()
	r.c.mu.Lock()
	r.hold = nil
	delete(r.c.cur, r)
	delete(r.c.prev, r)
	r.c.mu.Unlock()
}

// -------------------- strong --------------------

type strongCollector[T any] struct{}

func (strongCollector[T]) Track(v *T, _ func()) Ref[T] { return strongRef[T]{v: v} }

// strongRef is present until cleared and can never be reclaimed. It also
// records a computation that produced a nil pointer.
type strongRef[T any] struct{ v *T }

func (r strongRef[T]) Get() (*T, bool) { return r.v, true }
func (strongRef[T]) Clear()            {}
