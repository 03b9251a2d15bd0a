package cache

import "iter"

// View is a live, read-only view over a map's contents. Every call
// observes the map at that moment, so later mutations are reflected.
type View[T any] interface {
	Len() int
	// All iterates over a snapshot taken when iteration starts; the loop
	// body may mutate the map.
	All() iter.Seq[T]
	// Slice returns a snapshot copy.
	Slice() []T
}

// KeyView is a View over keys with membership tests.
type KeyView[K comparable] interface {
	View[K]
	Contains(k K) bool
}

type view[T any] struct {
	size     func() int
	snapshot func() []T
}

func (v view[T]) Len() int   { return v.size() }
func (v view[T]) Slice() []T { return v.snapshot() }
func (v view[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.snapshot() {
			if !yield(x) {
				return
			}
		}
	}
}

type keyView[K comparable] struct {
	view[K]
	contains func(K) bool
}

func (v keyView[K]) Contains(k K) bool { return v.contains(k) }
