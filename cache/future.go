package cache

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/IvanBrykalov/memocache/internal/singleflight"
)

// FutureMap computes values on background goroutines. A key is absent,
// pending (its computation is running or queued) or ready (value or
// captured failure). Put starts work without waiting; Get waits for a
// pending key but never starts work; Remove cancels.
//
// A single mutex guards the task registry. Waiters release it while
// blocked and take it again to re-check state on wake.
//
// Failures, including panics (reported as *PanicError), are captured and
// replayed to every Get and WaitForValue until the key is removed.
//
// Waits are unbounded; use GetContext to bound one externally.
type FutureMap[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[K, V]
	closed  bool

	compute ContextFunc[K, V]
	sem     *semaphore.Weighted
	promote bool

	// ctx parents every task context; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log   *slog.Logger
	meter meter
}

// NewFuture constructs an async map. compute must not be nil.
func NewFuture[K comparable, V any](compute ContextFunc[K, V], opt FutureOptions[K, V]) *FutureMap[K, V] {
	if compute == nil {
		panic("cache: nil computation")
	}
	opt.applyDefaults()
	workers := opt.Workers
	if workers <= 0 {
		workers = 4 * runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &FutureMap[K, V]{
		entries: make(map[K]entry[K, V]),
		compute: compute,
		sem:     semaphore.NewWeighted(int64(workers)),
		promote: opt.Promote,
		ctx:     ctx,
		cancel:  cancel,
		log:     opt.Logger,
	}
	m.meter.m = opt.Metrics
	return m
}

// Put starts computing k in the background unless k is pending or ready.
// It returns ErrClosed after Close.
func (m *FutureMap[K, V]) Put(k K) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.entries[k]; ok {
		return false, nil
	}
	m.startLocked(k)
	return true, nil
}

// PutAll starts every absent key and returns how many were started.
func (m *FutureMap[K, V]) PutAll(keys ...K) (int, error) {
	n := 0
	for _, k := range keys {
		fresh, err := m.Put(k)
		if err != nil {
			return n, fmt.Errorf("cache: put %v: %w", k, err)
		}
		if fresh {
			n++
		}
	}
	return n, nil
}

// Get returns the value for k, blocking while k is pending. An absent key
// returns immediately without starting work; a key removed while the
// caller waits yields absent.
func (m *FutureMap[K, V]) Get(k K) (V, bool, error) {
	return m.GetContext(context.Background(), k)
}

// GetContext is Get with a bounded wait. When ctx ends first it returns
// ctx.Err(); the computation itself keeps running.
func (m *FutureMap[K, V]) GetContext(ctx context.Context, k K) (V, bool, error) {
	var zero V

	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok {
		m.mu.Unlock()
		m.meter.lookup(false)
		return zero, false, nil
	}
	t, isTask := e.(*task[K, V])
	if !isTask {
		m.mu.Unlock()
		m.meter.lookup(true)
		v, _ := e.current()
		return v, true, nil
	}
	if t.state == taskFinished {
		m.mu.Unlock()
		return m.observe(t)
	}
	m.mu.Unlock()

	select {
	case <-t.released:
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observe(t)
}

// WaitForValue starts k if it is absent and waits for its value. The task
// is committed: a concurrent Remove no longer cancels its computation,
// and this caller receives the result even if the key was removed.
func (m *FutureMap[K, V]) WaitForValue(k K) (V, error) {
	v, _, err := m.await(k)
	return v, err
}

// PutGet is WaitForValue with hit/miss callbacks: onMiss when this call
// started the computation, onHit otherwise.
func (m *FutureMap[K, V]) PutGet(k K, onHit, onMiss func(k K, v V)) (V, error) {
	v, fresh, err := m.await(k)
	if err != nil {
		return v, err
	}
	m.meter.lookup(!fresh)
	if fresh {
		if onMiss != nil {
			onMiss(k, v)
		}
	} else if onHit != nil {
		onHit(k, v)
	}
	return v, nil
}

// Remove cancels a pending key or discards a ready one. Goroutines blocked
// in Get for that key return absent.
func (m *FutureMap[K, V]) Remove(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[k]
	if !ok {
		return false
	}
	m.dropLocked(e)
	m.meter.m.Size(len(m.entries))
	return true
}

// Clear removes every key, cancelling pending ones.
func (m *FutureMap[K, V]) Clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return false
	}
	for _, e := range m.entries {
		m.dropLocked(e)
	}
	m.meter.m.Size(0)
	return true
}

// WaitForAll blocks until no key is pending. Keys registered by other
// goroutines while waiting are waited for as well.
func (m *FutureMap[K, V]) WaitForAll() {
	for {
		pending := m.pendingTasks()
		if len(pending) == 0 {
			return
		}
		for _, t := range pending {
			<-t.released
		}
	}
}

// Pending returns the number of keys whose computation has not finished.
func (m *FutureMap[K, V]) Pending() int { return len(m.pendingTasks()) }

// Len returns the number of pending and ready keys.
func (m *FutureMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Keys returns a live view over pending and ready keys.
func (m *FutureMap[K, V]) Keys() KeyView[K] {
	return keyView[K]{
		view: view[K]{
			size: m.Len,
			snapshot: func() []K {
				m.mu.Lock()
				defer m.mu.Unlock()
				out := make([]K, 0, len(m.entries))
				for k := range m.entries {
					out = append(out, k)
				}
				return out
			},
		},
		contains: func(k K) bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			_, ok := m.entries[k]
			return ok
		},
	}
}

// Values returns a live view over successfully computed values. Pending
// and failed keys contribute nothing; the view never blocks.
func (m *FutureMap[K, V]) Values() View[V] {
	snapshot := func() []V {
		m.mu.Lock()
		defer m.mu.Unlock()
		out := make([]V, 0, len(m.entries))
		for _, e := range m.entries {
			if v, ok := e.current(); ok {
				out = append(out, v)
			}
		}
		return out
	}
	return view[V]{
		size:     func() int { return len(snapshot()) },
		snapshot: snapshot,
	}
}

// Stats returns a snapshot of the map's counters.
func (m *FutureMap[K, V]) Stats() Stats { return m.meter.snapshot() }

// Close cancels every pending computation, rejects further Puts and
// waits for the background goroutines to return. Ready values stay
// readable. Close is safe to call multiple times.
func (m *FutureMap[K, V]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for k, e := range m.entries {
		if t, ok := e.(*task[K, V]); ok && t.state != taskFinished {
			m.dropLocked(t)
			m.log.Debug("pending computation abandoned on close", "key", k)
		}
	}
	m.meter.m.Size(len(m.entries))
	m.mu.Unlock()

	// Cancel outside the lock so finishing tasks can publish.
	m.cancel()
	m.wg.Wait()
	return nil
}

// -------------------- internals --------------------

func (m *FutureMap[K, V]) startLocked(k K) *task[K, V] {
	ctx, cancel := context.WithCancel(m.ctx)
	t := newTask[K, V](k, cancel)
	m.entries[k] = t
	m.meter.m.Size(len(m.entries))

	m.wg.Add(1)
	go m.execute(ctx, t)
	return t
}

// execute runs on the task's goroutine: wait for a worker slot, compute,
// publish.
func (m *FutureMap[K, V]) execute(ctx context.Context, t *task[K, V]) {
	defer m.wg.Done()
	defer t.cancel()

	var v V
	err := errGoexit
	defer func() { m.complete(t, v, err) }()

	if aerr := m.sem.Acquire(ctx, 1); aerr != nil {
		err = aerr
		return
	}
	defer m.sem.Release(1)
	v, err = m.call(ctx, t.k)
}

// call invokes the computation, converting a panic into *PanicError.
func (m *FutureMap[K, V]) call(ctx context.Context, k K) (v V, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = singleflight.Recovered(r)
		}
		m.meter.load(time.Since(start), err)
	}()
	return m.compute(ctx, k)
}

func (m *FutureMap[K, V]) complete(t *task[K, V], v V, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.finish(v, err)
	if t.removed {
		return
	}
	if err != nil {
		m.log.Warn("background computation failed", "key", t.k, "err", err)
		return
	}
	if m.promote {
		m.entries[t.k] = valueEntry[K, V]{k: t.k, v: v}
	}
}

// await registers k if needed, commits its task and waits for the result.
func (m *FutureMap[K, V]) await(k K) (V, bool, error) {
	var zero V

	m.mu.Lock()
	fresh := false
	e, ok := m.entries[k]
	if !ok {
		if m.closed {
			m.mu.Unlock()
			return zero, false, ErrClosed
		}
		e, fresh = m.startLocked(k), true
	}
	t, isTask := e.(*task[K, V])
	if !isTask {
		m.mu.Unlock()
		v, _ := e.current()
		return v, false, nil
	}
	if t.state == taskCancellable {
		t.state = taskCommitted
	}
	m.mu.Unlock()

	<-t.done
	return t.val, fresh, t.err
}

// observe reports a released task to a Get caller. The caller holds the lock.
func (m *FutureMap[K, V]) observe(t *task[K, V]) (V, bool, error) {
	v, ok, err := t.result()
	m.meter.lookup(ok)
	return v, ok, err
}

func (m *FutureMap[K, V]) dropLocked(e entry[K, V]) {
	delete(m.entries, e.key())
	if t, ok := e.(*task[K, V]); ok && t.state != taskFinished {
		m.log.Debug("pending computation removed", "key", t.k, "committed", t.state == taskCommitted)
	}
	e.dispose()
}

func (m *FutureMap[K, V]) pendingTasks() []*task[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task[K, V]
	for _, e := range m.entries {
		if t, ok := e.(*task[K, V]); ok && t.state != taskFinished {
			out = append(out, t)
		}
	}
	return out
}

var _ Map[string, int] = (*FutureMap[string, int])(nil)
