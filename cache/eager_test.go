package cache

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func lenFunc(calls *atomic.Int64) Func[string, int] {
	return func(k string) (int, error) {
		calls.Add(1)
		return len(k), nil
	}
}

// Put computes once; a second Put is a no-op; Get never computes.
func TestEager_PutGetRemove(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := NewEager(lenFunc(&calls), Options[string, int]{})

	_, ok, err := m.Get("abc")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, calls.Load(), "Get must not compute")

	fresh, err := m.Put("abc")
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = m.Put("abc")
	require.NoError(t, err)
	require.False(t, fresh)
	require.EqualValues(t, 1, calls.Load())

	v, ok, err := m.Get("abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, v)

	require.True(t, m.Remove("abc"))
	require.False(t, m.Remove("abc"))
	require.Zero(t, m.Len())

	_, err = m.Put("abc")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load(), "removed key recomputes")
}

// A failing computation registers nothing and its error propagates.
func TestEager_ErrorNotRegistered(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := NewEager(func(k string) (int, error) {
		if k == "bad" {
			return 0, boom
		}
		return 1, nil
	}, Options[string, int]{})

	fresh, err := m.Put("bad")
	require.ErrorIs(t, err, boom)
	require.False(t, fresh)
	require.Zero(t, m.Len())

	var hit, miss bool
	_, err = m.PutGet("bad", func(string, int) { hit = true }, func(string, int) { miss = true })
	require.ErrorIs(t, err, boom)
	require.False(t, hit)
	require.False(t, miss)

	n, err := m.PutAll("a", "b", "bad", "c")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, n)
	require.False(t, m.Keys().Contains("c"), "PutAll stops at the first error")

	st := m.Stats()
	require.EqualValues(t, 3, st.Failures)
}

// A nil result is indistinguishable from absent and is never retained.
func TestEager_NilNotRetained(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := NewEager(func(k string) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	}, Options[string, []byte]{})

	fresh, err := m.Put("k")
	require.NoError(t, err)
	require.True(t, fresh)

	_, ok, _ := m.Get("k")
	require.False(t, ok)
	require.Zero(t, m.Len())

	_, err = m.Put("k")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

// Exactly one of the callbacks runs, matching whether PutGet computed.
func TestEager_PutGetCallbacks(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := NewEager(lenFunc(&calls), Options[string, int]{})

	var hits, misses []string
	onHit := func(k string, _ int) { hits = append(hits, k) }
	onMiss := func(k string, _ int) { misses = append(misses, k) }

	v, err := m.PutGet("hello", onHit, onMiss)
	require.NoError(t, err)
	require.Equal(t, 5, v)
	v, err = m.PutGet("hello", onHit, onMiss)
	require.NoError(t, err)
	require.Equal(t, 5, v)

	require.Equal(t, []string{"hello"}, misses)
	require.Equal(t, []string{"hello"}, hits)

	// nil callbacks are allowed
	_, err = m.PutGet("x", nil, nil)
	require.NoError(t, err)

	st := m.Stats()
	require.EqualValues(t, 1, st.Hits)
	require.EqualValues(t, 2, st.Misses)
	require.EqualValues(t, 2, st.Computations)
}

// Concurrent callers for one key share a single computation.
func TestEager_ConcurrentPutCoalesced(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	gate := make(chan struct{})
	m := NewEager(func(k string) (int, error) {
		calls.Add(1)
		<-gate
		return 42, nil
	}, Options[string, int]{})

	const workers = 32
	var started sync.WaitGroup
	started.Add(workers)
	var g errgroup.Group
	var fresh atomic.Int64
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			started.Done()
			v, err := m.PutGet("k", nil, func(string, int) { fresh.Add(1) })
			if err != nil {
				return err
			}
			if v != 42 {
				return errors.New("wrong value " + strconv.Itoa(v))
			}
			return nil
		})
	}
	started.Wait()
	close(gate)
	require.NoError(t, g.Wait())

	require.EqualValues(t, 1, calls.Load())
	require.EqualValues(t, 1, fresh.Load(), "only the computing caller sees a miss")
	require.Equal(t, 1, m.Len())
}

// Views are live: they reflect mutations made after they were obtained.
func TestEager_LiveViews(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	m := NewEager(lenFunc(&calls), Options[string, int]{Shards: 4})
	keys, values := m.Keys(), m.Values()
	require.Zero(t, keys.Len())

	n, err := m.PutAll("a", "bb", "ccc", "a")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, 3, keys.Len())
	require.True(t, keys.Contains("bb"))
	require.ElementsMatch(t, []string{"a", "bb", "ccc"}, keys.Slice())
	require.ElementsMatch(t, []int{1, 2, 3}, values.Slice())

	sum := 0
	for v := range values.All() {
		sum += v
	}
	require.Equal(t, 6, sum)

	require.True(t, m.Clear())
	require.False(t, m.Clear())
	require.Zero(t, keys.Len())
	require.Empty(t, values.Slice())
}

// A panicking computation re-panics on the computing goroutine and leaves
// nothing behind.
func TestEager_Panic(t *testing.T) {
	t.Parallel()

	m := NewEager(func(k string) (int, error) {
		panic("kaboom")
	}, Options[string, int]{})

	require.PanicsWithValue(t, "kaboom", func() { _, _ = m.Put("k") })
	require.Zero(t, m.Len())
}

func TestEager_NilComputationPanics(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { NewEager[string, int](nil, Options[string, int]{}) })
}
