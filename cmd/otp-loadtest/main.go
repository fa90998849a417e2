package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// codeBook captures delivered codes so the verify phase can answer them.
type codeBook struct {
	mu    sync.RWMutex
	codes map[string]string
}

func (b *codeBook) Deliver(_ context.Context, identity, code string) error {
	b.mu.Lock()
	b.codes[identity] = code
	b.mu.Unlock()
	return nil
}

func (b *codeBook) get(identity string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.codes[identity]
}

func main() {
	var (
		identities  = flag.Int("identities", 100000, "number of identities to issue codes for")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "verify operations")
		wrongRatio  = flag.Float64("wrong-ratio", 0.3, "fraction of verify calls sent with a wrong code")
		shards      = flag.Int("shards", 32, "record store shards")
		limiter     = flag.Bool("limiter", false, "enable the redis request limiter")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 || *wrongRatio < 0 || *wrongRatio > 1 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0; wrong-ratio must be in [0,1]")
		os.Exit(2)
	}

	cfg := goOTP.DefaultConfig()
	cfg.Code.Shards = *shards
	cfg.Code.TTL = time.Hour
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	book := &codeBook{codes: make(map[string]string, *identities)}
	builder := goOTP.New().WithDeliverer(book)

	if *limiter {
		client, cleanup := openRedis(*redisAddr)
		defer cleanup()
		cfg.Limiter.Enabled = true
		cfg.Limiter.MaxRequests = *identities
		cfg.Limiter.MaxVerifyPerIP = *ops
		builder = builder.WithRedis(client)
	}

	svc, err := builder.WithConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx := context.Background()
	names := make([]string, *identities)
	for i := range names {
		names[i] = fmt.Sprintf("user-%d@example.com", i)
	}

	issueStats := runPhase(*identities, *concurrency, func(i int, _ *rand.Rand) (string, error) {
		res, err := svc.IssueCode(ctx, names[i])
		return res.Status.String(), err
	})

	verifyStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) (string, error) {
		identity := names[r.Intn(len(names))]
		code := book.get(identity)
		if r.Float64() < *wrongRatio {
			code = "000000"
		}
		res, err := svc.VerifyCode(ctx, identity, code)
		return res.Status.String(), err
	})

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("verify", verifyStats)
	fmt.Printf("active codes after run: %d\n", svc.ActiveCodes())
}

func openRedis(addr string) (redis.UniversalClient, func()) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }
	}

	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
		os.Exit(1)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	outcomes map[string]int
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) (string, error)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		outcomes  = make(map[string]int)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				outcome, err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					outcome = "error"
				}
				mu.Lock()
				latencies = append(latencies, d)
				outcomes[outcome]++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	stats := computeStats(time.Since(start), latencies, failures)
	stats.outcomes = outcomes
	return stats
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)

	keys := make([]string, 0, len(s.outcomes))
	for k := range s.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-10s %d\n", k, s.outcomes[k])
	}
}
