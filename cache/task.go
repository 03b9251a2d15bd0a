package cache

import "context"

// taskState is the cooperative-cancellation flag of a task.
type taskState uint8

const (
	// taskCancellable: nobody depends on the result; Remove cancels the
	// computation's context.
	taskCancellable taskState = iota
	// taskCommitted: a caller is waiting for the value (WaitForValue or
	// PutGet); Remove drops the registry record but lets the computation
	// finish for that caller.
	taskCommitted
	// taskFinished: val and err are published.
	taskFinished
)

// task is the registry record of one background computation.
//
// state and removed are guarded by the owning map's lock. val and err are
// written once, before done is closed. released is closed when the task
// finishes or leaves the registry, whichever happens first; removed is
// written before released is closed and never afterwards.
type task[K comparable, V any] struct {
	k       K
	state   taskState
	removed bool
	cancel  context.CancelFunc

	val V
	err error

	done     chan struct{}
	released chan struct{}
}

func newTask[K comparable, V any](k K, cancel context.CancelFunc) *task[K, V] {
	return &task[K, V]{
		k:        k,
		cancel:   cancel,
		done:     make(chan struct{}),
		released: make(chan struct{}),
	}
}

func (t *task[K, V]) key() K { return t.k }

func (t *task[K, V]) current() (V, bool) {
	if t.state != taskFinished || t.err != nil {
		var zero V
		return zero, false
	}
	return t.val, true
}

// dispose withdraws a pending task from the registry and releases its
// Get waiters. A cancellable task also has its context cancelled.
func (t *task[K, V]) dispose() {
	if t.state == taskFinished || t.removed {
		return
	}
	t.removed = true
	close(t.released)
	if t.state == taskCancellable {
		t.cancel()
	}
}

// finish publishes the outcome. The caller holds the map lock.
func (t *task[K, V]) finish(v V, err error) {
	t.val, t.err = v, err
	t.state = taskFinished
	close(t.done)
	if !t.removed {
		close(t.released)
	}
}

// result is what a Get observes once the task was released.
func (t *task[K, V]) result() (V, bool, error) {
	var zero V
	switch {
	case t.removed:
		return zero, false, nil
	case t.err != nil:
		return zero, false, t.err
	default:
		return t.val, true, nil
	}
}
