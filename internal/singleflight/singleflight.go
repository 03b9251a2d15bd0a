// Package singleflight coalesces concurrent computations of the same key.
package singleflight

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError carries a value recovered from a panicking computation
// together with the stack of the goroutine that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("computation panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recovered wraps a value returned by recover() into a *PanicError.
func Recovered(r any) *PanicError {
	return &PanicError{Value: r, Stack: debug.Stack()}
}

var errGoexit = errors.New("singleflight: computation called runtime.Goexit")

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once per flight. Other concurrent
// callers wait for the shared result.
//
// Concurrency notes:
//   - The first caller for a given key becomes the leader and runs fn
//     synchronously on the calling goroutine; Do returns once fn does.
//   - Followers wait on c.done. Publishing (val, err) happens-before
//     close(c.done), so reads after <-done observe the final values.
//   - If fn panics, followers receive a *PanicError and the leader
//     re-panics with the original value.
//
// The zero Group is ready to use.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do runs fn once for the given key among concurrent callers. shared is
// true for followers that received the leader's result.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.val, c.err, true
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)
	return c.val, c.err, false
}

// Pending reports whether a flight for key is in progress.
func (g *Group[K, V]) Pending(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		if normal {
			g.finish(key, c)
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit in fn; nothing to re-raise.
			c.err = errGoexit
			g.finish(key, c)
			return
		}
		c.err = Recovered(r)
		g.finish(key, c)
		panic(r)
	}()

	c.val, c.err = fn()
	normal = true
}

// finish wakes followers and removes the in-flight marker.
func (g *Group[K, V]) finish(key K, c *call[V]) {
	close(c.done)

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()
}
