package cache

import (
	"time"

	"github.com/IvanBrykalov/memocache/internal/util"
)

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                      {}
func (NoopMetrics) Miss()                     {}
func (NoopMetrics) Evict(EvictReason)         {}
func (NoopMetrics) Size(int)                  {}
func (NoopMetrics) Load(time.Duration, error) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}

// meter keeps the per-map counters behind Stats and forwards every
// signal to the configured Metrics.
type meter struct {
	m Metrics

	hits         util.Counter
	misses       util.Counter
	computations util.Counter
	failures     util.Counter
	evictions    util.Counter
}

func (s *meter) lookup(hit bool) {
	if hit {
		s.hits.Add(1)
		s.m.Hit()
		return
	}
	s.misses.Add(1)
	s.m.Miss()
}

func (s *meter) load(d time.Duration, err error) {
	s.computations.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
	s.m.Load(d, err)
}

func (s *meter) evict(r EvictReason) {
	s.evictions.Add(1)
	s.m.Evict(r)
}

func (s *meter) snapshot() Stats {
	return Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Computations: s.computations.Load(),
		Failures:     s.failures.Load(),
		Evictions:    s.evictions.Load(),
	}
}
