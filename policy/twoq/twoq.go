// Package twoq implements the 2Q recency policy: first-time keys are
// admitted into a small probation queue (A1in) and only promoted to the
// main ring segment (Am) on a second hit, so one-off scans cannot flush
// the working set of a bounded memo map.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/memocache/policy"
)

// twoQ tracks A1in membership and the A1out ghost keys.
//
// Resident queues:
//   - A1in: its own list + index by node; admits first-time keys.
//   - Am:   every other linked node; ordering is driven by the map hooks.
//
// Ghosts (A1out) remember keys that proved worth keeping but lost their
// node anyway; a key that comes back while it is still a ghost bypasses
// A1in. Which removals leave a ghost depends on why the node left:
//   - Evicted from A1in: the classic 2Q ghost.
//   - Reclaimed from Am: the key was hot and only memory pressure took
//     it, so its recomputation should not go through probation again.
//   - Removed by the caller: history is forgotten.
//
// Concurrency: all methods are called under the map lock.
type twoQ[K comparable] struct {
	h policy.Hooks[K]

	capIn    int
	capGhost int

	// A1in: MRU at Front() -> LRU at Back()
	inList *list.List
	inIdx  map[policy.Node[K]]*list.Element

	// A1out: keys only, MRU at Front() -> LRU at Back()
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

// New constructs a 2Q policy factory. A common sizing is capIn ≈ 25% and
// capGhost ≈ 50% of the map's MaximumSize.
func New[K comparable](capIn, capGhost int) policy.Policy[K] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K]{capIn: capIn, capGhost: capGhost}
}

type twoQPolicy[K comparable] struct {
	capIn    int
	capGhost int
}

func (p twoQPolicy[K]) New(h policy.Hooks[K]) policy.Tracker[K] {
	return &twoQ[K]{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admits a ghost key straight into Am and anything else into A1in.
// When A1in overflows its LRU is returned as the victim.
func (q *twoQ[K]) OnAdd(n policy.Node[K]) (evict policy.Node[K]) {
	q.h.PushFront(n)
	if q.forget(n.Key()) {
		return nil
	}

	q.inIdx[n] = q.inList.PushFront(n)
	if q.inList.Len() > q.capIn {
		return q.inList.Back().Value.(policy.Node[K])
	}
	return nil
}

// OnGet promotes an A1in node to Am and moves it to MRU.
func (q *twoQ[K]) OnGet(n policy.Node[K]) {
	q.leaveProbation(n)
	q.h.MoveToFront(n)
}

// OnRemove drops n from A1in and decides whether its key becomes a ghost.
func (q *twoQ[K]) OnRemove(n policy.Node[K], why policy.Removal) {
	probation := q.leaveProbation(n)
	switch why {
	case policy.Evicted:
		if probation {
			q.remember(n.Key())
		}
	case policy.Reclaimed:
		if !probation {
			q.remember(n.Key())
		}
	default:
		q.forget(n.Key())
	}
}

// leaveProbation removes n from A1in and reports whether it was there.
func (q *twoQ[K]) leaveProbation(n policy.Node[K]) bool {
	el, ok := q.inIdx[n]
	if !ok {
		return false
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)
	return true
}

// remember records k as the most recent ghost, dropping the oldest ghosts
// beyond capGhost.
func (q *twoQ[K]) remember(k K) {
	q.forget(k)
	q.ghostIdx[k] = q.ghostList.PushFront(k)
	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		delete(q.ghostIdx, tail.Value.(K))
		q.ghostList.Remove(tail)
	}
}

// forget drops k from the ghosts and reports whether it was one.
func (q *twoQ[K]) forget(k K) bool {
	el, ok := q.ghostIdx[k]
	if !ok {
		return false
	}
	q.ghostList.Remove(el)
	delete(q.ghostIdx, k)
	return true
}
