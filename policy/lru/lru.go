// Package lru implements strict least-recently-used ordering.
package lru

import "github.com/IvanBrykalov/memocache/policy"

// lru moves every admitted or hit node to the front of the ring.
// It never nominates victims; the map trims from Back() when over budget.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type lruPolicy[K comparable] struct{}

// New returns a Policy factory producing strict LRU trackers.
func New[K comparable]() policy.Policy[K] { return lruPolicy[K]{} }

// New implements policy.Policy.
func (lruPolicy[K]) New(h policy.Hooks[K]) policy.Tracker[K] {
	return &lru[K]{h: h}
}

// OnAdd links the node at the MRU end.
func (p *lru[K]) OnAdd(n policy.Node[K]) (evict policy.Node[K]) {
	p.h.PushFront(n)
	return nil
}

// OnGet re-splices the node at the MRU end.
func (p *lru[K]) OnGet(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnRemove keeps no state for plain LRU.
func (p *lru[K]) OnRemove(policy.Node[K], policy.Removal) {}
