//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/clock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var integrationStart = time.Unix(1_700_000_000, 0)

// redisMode describes which Redis backend a limiter suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis. A real standalone server is added
// when REDIS_ADDR is set, a cluster when REDIS_CLUSTER_ADDRS is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: strings.Split(addrs, ",")})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func newInbox() *inbox {
	return &inbox{codes: make(map[string]string)}
}

func (b *inbox) Deliver(_ context.Context, identity, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[identity] = code
	return nil
}

func (b *inbox) code(identity string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[identity]
}

func newIntegrationService(t *testing.T, cfg goOTP.Config, rdb redis.UniversalClient) (*goOTP.Service, *clock.Fake, *inbox) {
	t.Helper()

	fc := clock.NewFake(integrationStart)
	box := newInbox()
	b := goOTP.New().WithConfig(cfg).WithClock(fc).WithDeliverer(box)
	if rdb != nil {
		b = b.WithRedis(rdb)
	}
	svc, err := b.Build()
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, fc, box
}
