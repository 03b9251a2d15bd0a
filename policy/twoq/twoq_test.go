package twoq

import (
	"testing"

	"github.com/IvanBrykalov/memocache/policy"
)

// --- test doubles (same shape as in LRU tests) ---

type testNode[K comparable] struct{ k K }

func (n *testNode[K]) Key() K { return n.k }

type mockHooks[K comparable] struct {
	pushFrontCnt   int
	moveToFrontCnt int
}

func (h *mockHooks[K]) MoveToFront(policy.Node[K]) { h.moveToFrontCnt++ }
func (h *mockHooks[K]) PushFront(policy.Node[K])   { h.pushFrontCnt++ }
func (h *mockHooks[K]) Remove(policy.Node[K])      {}
func (h *mockHooks[K]) Back() policy.Node[K]       { return nil }
func (h *mockHooks[K]) Len() int                   { return 0 }

func newTwoQ(capIn, capGhost int) (*twoQ[string], *mockHooks[string]) {
	h := &mockHooks[string]{}
	return New[string](capIn, capGhost).New(h).(*twoQ[string]), h
}

// --- tests ---

func TestTwoQ_AddGoesToA1in(t *testing.T) {
	t.Parallel()

	p, h := newTwoQ(2, 4)
	n1 := &testNode[string]{k: "a"}
	if ev := p.OnAdd(n1); ev != nil {
		t.Fatalf("OnAdd should not evict yet")
	}
	if p.inList.Len() != 1 {
		t.Fatalf("A1in must have 1 element, got %d", p.inList.Len())
	}
	if _, ok := p.inIdx[n1]; !ok {
		t.Fatalf("n1 must be present in A1in index")
	}
	if h.pushFrontCnt != 1 {
		t.Fatalf("admission must link the node into the ring")
	}
}

// Overflowing A1in nominates its oldest node.
func TestTwoQ_OverflowReturnsLRUOfA1in(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(2, 4)
	n1 := &testNode[string]{k: "a"}
	n2 := &testNode[string]{k: "b"}
	n3 := &testNode[string]{k: "c"}

	p.OnAdd(n1)
	p.OnAdd(n2)
	if ev := p.OnAdd(n3); ev != n1 {
		t.Fatalf("expected victim n1 (LRU of A1in), got %v", ev)
	}
}

func TestTwoQ_OnRemoveFromA1inGoesToGhost(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(2, 2)
	n1 := &testNode[string]{k: "a"}
	p.OnAdd(n1)
	p.OnRemove(n1, policy.Evicted)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be removed from A1in")
	}
	if _, ok := p.ghostIdx["a"]; !ok {
		t.Fatal("key 'a' must be in ghost (A1out)")
	}
}

// A key that returns while still a ghost skips probation.
func TestTwoQ_AddFromGhostGoesToAm(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(1, 2)
	n1 := &testNode[string]{k: "a"}
	p.OnAdd(n1)
	p.OnRemove(n1, policy.Evicted)

	n2 := &testNode[string]{k: "a"}
	if ev := p.OnAdd(n2); ev != nil {
		t.Fatalf("OnAdd from ghost must not evict (got %v)", ev)
	}
	if _, ok := p.inIdx[n2]; ok {
		t.Fatalf("n2 must NOT be in A1in")
	}
	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatalf("ghost must be consumed on re-admission")
	}
}

func TestTwoQ_GetPromotesFromA1inToAm(t *testing.T) {
	t.Parallel()

	p, h := newTwoQ(2, 2)
	n1 := &testNode[string]{k: "a"}
	p.OnAdd(n1)
	p.OnGet(n1)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be promoted out of A1in after Get")
	}
	if h.moveToFrontCnt != 1 {
		t.Fatalf("OnGet must call MoveToFront once")
	}
}

// Ghost capacity drops the oldest ghost keys first.
func TestTwoQ_GhostCapacity(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(4, 2)
	for _, k := range []string{"a", "b", "c"} {
		n := &testNode[string]{k: k}
		p.OnAdd(n)
		p.OnRemove(n, policy.Evicted)
	}
	if p.ghostList.Len() != 2 {
		t.Fatalf("ghost list must be capped at 2, got %d", p.ghostList.Len())
	}
	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatal("oldest ghost 'a' must be dropped")
	}
}

// Reclamation of a promoted key leaves a ghost; reclamation of a key
// still on probation does not.
func TestTwoQ_ReclaimedGhostsOnlyHotKeys(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(2, 4)
	hot := &testNode[string]{k: "hot"}
	cold := &testNode[string]{k: "cold"}
	p.OnAdd(hot)
	p.OnGet(hot)
	p.OnAdd(cold)

	p.OnRemove(hot, policy.Reclaimed)
	p.OnRemove(cold, policy.Reclaimed)

	if _, ok := p.ghostIdx["hot"]; !ok {
		t.Fatal("reclaimed Am key must become a ghost")
	}
	if _, ok := p.ghostIdx["cold"]; ok {
		t.Fatal("reclaimed A1in key must not become a ghost")
	}
	if p.inList.Len() != 0 {
		t.Fatalf("A1in must be empty, got %d", p.inList.Len())
	}

	// The recomputed hot key skips probation.
	again := &testNode[string]{k: "hot"}
	p.OnAdd(again)
	if _, ok := p.inIdx[again]; ok {
		t.Fatal("ghost key must bypass A1in")
	}
}

// An explicit removal forgets any ghost the key had.
func TestTwoQ_RemovedForgetsHistory(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(1, 4)
	a := &testNode[string]{k: "a"}
	p.OnAdd(a)
	p.OnRemove(a, policy.Evicted)
	if _, ok := p.ghostIdx["a"]; !ok {
		t.Fatal("evicted probation key must become a ghost")
	}

	a2 := &testNode[string]{k: "a"}
	p.OnAdd(a2) // consumes the ghost, lands in Am
	p.OnRemove(a2, policy.Removed)
	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatal("explicit removal must not leave a ghost")
	}

	a3 := &testNode[string]{k: "a"}
	p.OnAdd(a3)
	if _, ok := p.inIdx[a3]; !ok {
		t.Fatal("a forgotten key goes through probation again")
	}
}

// Evicting a promoted key leaves no ghost.
func TestTwoQ_EvictedFromAmLeavesNoGhost(t *testing.T) {
	t.Parallel()

	p, _ := newTwoQ(2, 4)
	n := &testNode[string]{k: "a"}
	p.OnAdd(n)
	p.OnGet(n)
	p.OnRemove(n, policy.Evicted)
	if p.ghostList.Len() != 0 {
		t.Fatalf("Am eviction must leave no ghost, got %d", p.ghostList.Len())
	}
}
