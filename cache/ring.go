package cache

import "github.com/IvanBrykalov/memocache/policy"

// ring is an intrusive circular doubly linked list threaded through
// refEntry nodes, with one sentinel: bounds.next is the most recently
// used entry and bounds.prev the least recently used one. All operations
// are O(1) and run under the map lock.
type ring[K comparable, T any] struct {
	bounds refEntry[K, T]
	n      int
}

func newRing[K comparable, T any]() *ring[K, T] {
	r := &ring[K, T]{}
	r.bounds.next = &r.bounds
	r.bounds.prev = &r.bounds
	return r
}

// pushFront splices e in right after the sentinel.
func (r *ring[K, T]) pushFront(e *refEntry[K, T]) {
	e.prev = &r.bounds
	e.next = r.bounds.next
	r.bounds.next.prev = e
	r.bounds.next = e
	r.n++
}

// unlink detaches e; unlinked entries are ignored.
func (r *ring[K, T]) unlink(e *refEntry[K, T]) {
	if e.next == nil {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	r.n--
}

func (r *ring[K, T]) moveToFront(e *refEntry[K, T]) {
	if r.bounds.next == e || e.next == nil {
		return
	}
	r.unlink(e)
	r.pushFront(e)
}

// back returns the LRU entry, or nil if the ring is empty.
func (r *ring[K, T]) back() *refEntry[K, T] {
	if r.n == 0 {
		return nil
	}
	return r.bounds.prev
}

// keys lists keys from MRU to LRU.
func (r *ring[K, T]) keys() []K {
	out := make([]K, 0, r.n)
	for e := r.bounds.next; e != &r.bounds; e = e.next {
		out = append(out, e.k)
	}
	return out
}

// ringHooks adapts the ring to policy.Hooks.
type ringHooks[K comparable, T any] struct{ r *ring[K, T] }

func (h ringHooks[K, T]) MoveToFront(n policy.Node[K]) { h.r.moveToFront(n.(*refEntry[K, T])) }
func (h ringHooks[K, T]) PushFront(n policy.Node[K])   { h.r.pushFront(n.(*refEntry[K, T])) }
func (h ringHooks[K, T]) Remove(n policy.Node[K])      { h.r.unlink(n.(*refEntry[K, T])) }
func (h ringHooks[K, T]) Len() int                     { return h.r.n }

// Back returns an untyped nil for an empty ring so policies can compare
// the result against nil.
func (h ringHooks[K, T]) Back() policy.Node[K] {
	if b := h.r.back(); b != nil {
		return b
	}
	return nil
}
