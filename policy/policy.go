// Package policy defines the recency-ordering contract used by the bounded
// memo map. The map owns an intrusive ring with a sentinel node and exposes
// O(1) ring operations as Hooks; a policy decides which of them to apply on
// admission, hit and removal, and may nominate a victim on admission.
package policy

// Node is the minimal contract a ring entry must satisfy for a policy.
type Node[K comparable] interface {
	Key() K
}

// Hooks expose O(1) ring operations to a policy. Implementations are
// provided by the map; the front of the ring is the most recently used end.
//
// Concurrency: all hook calls happen under the map lock.
// Hooks manage only the ring; the map owns the key->entry index.
type Hooks[K comparable] interface {
	// MoveToFront re-splices the node at the MRU end.
	MoveToFront(Node[K])
	// PushFront links a new node at the MRU end.
	PushFront(Node[K])
	// Remove unlinks the node from the ring.
	Remove(Node[K])
	// Back returns the LRU node, or nil if the ring is empty.
	Back() Node[K]
	// Len returns the number of linked nodes.
	Len() int
}

// Tracker is a policy instance bound to one map's hooks.
// All methods are invoked under the map lock.
//
//   - OnAdd links the node and may return a victim the map must evict
//     before enforcing its size bound.
//   - OnGet records a hit.
//   - OnRemove notifies the policy that the node left the map and why.
//     The map unlinks it afterwards.
type Tracker[K comparable] interface {
	OnAdd(Node[K]) (evict Node[K])
	OnGet(Node[K])
	OnRemove(Node[K], Removal)
}

// Removal tells a policy why a node left the map.
type Removal uint8

const (
	// Removed: the caller removed or cleared the key, or it was replaced.
	Removed Removal = iota
	// Evicted: the map dropped the node to honour its size bound, either
	// from the LRU end or as a victim nominated by the policy.
	Evicted
	// Reclaimed: the garbage collector took the value.
	Reclaimed
)

func (r Removal) String() string {
	switch r {
	case Removed:
		return "removed"
	case Evicted:
		return "evicted"
	case Reclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

// Policy is a factory that binds a Tracker to a map's hooks.
type Policy[K comparable] interface {
	New(Hooks[K]) Tracker[K]
}
