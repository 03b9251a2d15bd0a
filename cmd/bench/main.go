// Command bench runs a synthetic workload against a memo map and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/memocache/cache"
	pmet "github.com/IvanBrykalov/memocache/metrics/prom"
	"github.com/IvanBrykalov/memocache/policy"
	"github.com/IvanBrykalov/memocache/policy/twoq"
)

// payload is what the synthetic computation produces.
type payload struct {
	sum  uint64
	body []byte
}

// closer is implemented by maps that own background goroutines.
type closer interface{ Close() error }

func main() {
	// ---- Flags ----
	var (
		variant  = flag.String("variant", "lru", "map variant: eager | soft | lru | future")
		maxSize  = flag.Int("max", 100_000, "bound on resident keys (lru)")
		shards   = flag.Int("shards", 0, "number of shards (eager, 0=auto)")
		polName  = flag.String("policy", "lru", "recency policy (lru variant): lru | 2q")
		tasks    = flag.Int("tasks", 0, "concurrent computations (future, 0=auto)")
		cost     = flag.Int("cost", 256, "bytes hashed per computation")
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys  = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "memo", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build map ----
	costN := *cost
	compute := func(k string) (*payload, error) {
		body := make([]byte, costN)
		for i := range body {
			body[i] = k[i%len(k)]
		}
		h := fnv.New64a()
		_, _ = h.Write(body)
		return &payload{sum: h.Sum64(), body: body}, nil
	}

	opt := cache.Options[string, *payload]{Shards: *shards, Metrics: metrics}
	var m cache.Map[string, *payload]
	switch *variant {
	case "eager":
		m = cache.NewEager(compute, opt)
	case "soft":
		m = cache.NewSoft(compute, cache.SoftOptions[string, payload]{Options: opt})
	case "lru":
		var pol policy.Policy[string]
		switch *polName {
		case "lru":
			// nil => strict LRU
		case "2q":
			pol = twoq.New[string](*maxSize/4, *maxSize/2)
		default:
			log.Fatalf("unknown policy: %q (use lru or 2q)", *polName)
		}
		m = cache.NewLRU(compute, cache.LRUOptions[string, payload]{
			SoftOptions: cache.SoftOptions[string, payload]{Options: opt},
			MaximumSize: *maxSize,
			Policy:      pol,
		})
	case "future":
		m = cache.NewFuture(func(_ context.Context, k string) (*payload, error) {
			return compute(k)
		}, cache.FutureOptions[string, *payload]{Options: opt, Workers: *tasks})
	default:
		log.Fatalf("unknown variant: %q (use eager, soft, lru or future)", *variant)
	}
	if c, ok := m.(closer); ok {
		defer func() { _ = c.Close() }()
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			localZipf := rand.NewZipf(localR, *zipfS, *zipfV, keysMax)

			for ctx.Err() == nil {
				k := "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				total.Add(1)
				if int(localR.Int31n(100)) < readPctVal {
					reads.Add(1)
					_, ok, err := m.Get(k)
					if err != nil {
						return err
					}
					if ok {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
					continue
				}
				writes.Add(1)
				if _, err := m.PutGet(k, nil, nil); err != nil {
					return fmt.Errorf("putget %s: %w", k, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("workload: %v", err)
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := total.Load()
	readsN, writesN := reads.Load(), writes.Load()
	hitsN, missesN := hits.Load(), misses.Load()

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	st := m.Stats()
	fmt.Printf("variant=%s policy=%s max=%d workers=%d keys=%d dur=%v seed=%d\n",
		*variant, *polName, *maxSize, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("computations=%d  evictions=%d  Len()=%d\n", st.Computations, st.Evictions, m.Len())
}
