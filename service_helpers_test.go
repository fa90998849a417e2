package goOTP

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goOTP/clock"
)

var testStart = time.Unix(1_700_000_000, 0)

type recordingDeliverer struct {
	mu    sync.Mutex
	sent  map[string][]string
	calls int
	err   error
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{sent: make(map[string][]string)}
}

func (d *recordingDeliverer) Deliver(_ context.Context, identity, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.err != nil {
		return d.err
	}
	d.sent[identity] = append(d.sent[identity], code)
	return nil
}

func (d *recordingDeliverer) last(identity string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	codes := d.sent[identity]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// sequenceCodes returns the given codes in order, then repeats the last one.
func sequenceCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return CodeGeneratorFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	})
}

func fixedCode(code string) CodeGenerator {
	return sequenceCodes(code)
}

func failingCodes() CodeGenerator {
	return CodeGeneratorFunc(func() (string, error) {
		return "", errors.New("entropy exhausted")
	})
}

type testService struct {
	*Service
	clock     *clock.Fake
	deliverer *recordingDeliverer
}

func newTestService(t *testing.T, mutate func(*Config), configure ...func(*Builder)) testService {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	fc := clock.NewFake(testStart)
	d := newRecordingDeliverer()

	b := New().
		WithConfig(cfg).
		WithClock(fc).
		WithDeliverer(d)
	for _, fn := range configure {
		fn(b)
	}

	svc, err := b.Build()
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	t.Cleanup(svc.Close)

	return testService{Service: svc, clock: fc, deliverer: d}
}

func withGenerator(g CodeGenerator) func(*Builder) {
	return func(b *Builder) { b.WithCodeGenerator(g) }
}

func mustIssue(t *testing.T, svc *Service, identity string) IssueResult {
	t.Helper()
	res, err := svc.IssueCode(context.Background(), identity)
	if err != nil {
		t.Fatalf("issue %q: %v", identity, err)
	}
	return res
}

func mustVerify(t *testing.T, svc *Service, identity, code string) VerifyResult {
	t.Helper()
	res, err := svc.VerifyCode(context.Background(), identity, code)
	if err != nil {
		t.Fatalf("verify %q: %v", identity, err)
	}
	return res
}
