// Package cache provides generic memoizing maps: each key's value is
// produced by a computation supplied at construction, and callers only
// ever name keys. At most one computation per key is in flight or has
// produced the value currently held.
//
// Variants
//
//   - EagerMap: computes on Put on the calling goroutine and keeps the
//     value until it is removed. The store is split into shards, each
//     guarded by an RWMutex; the shard count is a power of two. A nil
//     result is not retained.
//
//   - SoftMap: values are *T held through collectible references, so the
//     garbage collector may reclaim a value once it goes idle. The default
//     SoftCollector keeps values strongly while they are used and lets
//     them go after two GC cycles without a read; WeakCollector lets go
//     as soon as nothing outside the map refers to a value. Reclaimed
//     keys are purged lazily: every operation drains the reclamation
//     queue first (see Clean). Computations must return fresh heap
//     values; use StrongCollector for shared or static ones.
//
//   - LRUMap: a SoftMap with a hard MaximumSize. Entries are also nodes of
//     an intrusive ring around a sentinel; hits move a node to the MRU end
//     and the LRU end is evicted whenever the map grows past its bound.
//     The recency policy is pluggable via the policy package (strict LRU
//     by default, 2Q for scan resistance).
//
//   - FutureMap: Put starts the computation on a background goroutine and
//     returns at once. Get blocks while the key is pending; Remove cancels
//     the computation's context and releases blocked readers with absent.
//     WaitForValue and PutGet commit a task so it runs to completion for
//     them even if the key is removed meanwhile. Failures, panics
//     included, are captured and replayed until the key is removed.
//
// Basic usage
//
//	m := cache.NewEager(func(k string) (int, error) {
//	    return len(k), nil
//	}, cache.Options[string, int]{})
//	_, _ = m.Put("hello")
//	if v, ok, _ := m.Get("hello"); ok {
//	    _ = v // 5
//	}
//
// Bounded, GC-assisted
//
//	lru := cache.NewLRU(func(k string) (*Page, error) {
//	    return loadPage(k)
//	}, cache.LRUOptions[string, Page]{MaximumSize: 1024})
//	p, err := lru.PutGet("/index", nil, nil)
//
// Background computations
//
//	f := cache.NewFuture(func(ctx context.Context, host string) ([]netip.Addr, error) {
//	    return resolve(ctx, host)
//	}, cache.FutureOptions[string, []netip.Addr]{Workers: 16})
//	defer f.Close()
//	_, _ = f.PutAll("a.example", "b.example")
//	f.WaitForAll()
//
// Exporting metrics
//
//	m := prom.New(nil, "memo", "pages", nil) // implements Metrics
//	lru := cache.NewLRU(load, cache.LRUOptions[string, Page]{
//	    SoftOptions: cache.SoftOptions[string, Page]{
//	        Options: cache.Options[string, *Page]{Metrics: m},
//	    },
//	    MaximumSize: 1024,
//	})
//
// Thread-safety
//
// All methods are safe for concurrent use. Keys and Values return live
// views: each call on a view reads the map's state at that moment.
package cache
