package cache

import (
	"errors"

	"github.com/IvanBrykalov/memocache/internal/singleflight"
)

// ErrClosed is returned by FutureMap operations that would start work
// after Close.
var ErrClosed = errors.New("cache: map is closed")

// errGoexit is recorded for a background computation that called
// runtime.Goexit instead of returning.
var errGoexit = errors.New("cache: computation called runtime.Goexit")

// PanicError is the error recorded when a computation panics. Goroutines
// waiting on that computation receive it; the panicking goroutine of a
// synchronous map re-panics instead.
type PanicError = singleflight.PanicError
