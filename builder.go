package goOTP

import (
	"errors"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/logging"
	"github.com/MrEthical07/goOTP/internal/reaper"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/MrEthical07/goOTP/receipt"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Service. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	clock     clock.Clock
	logger    *zap.Logger
	deliverer Deliverer
	generator CodeGenerator
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig sets the service configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the request limiter. It is only
// required when Limiter.Enabled is true; codes are never stored in Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithClock replaces the wall clock. Tests use clock.NewFake.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger. A nil logger is replaced by zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithDeliverer sets where issued codes are sent. Without one, codes are
// discarded.
func (b *Builder) WithDeliverer(d Deliverer) *Builder {
	b.deliverer = d
	return b
}

func (b *Builder) WithCodeGenerator(g CodeGenerator) *Builder {
	b.generator = g
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every collaborator and starts
// the background workers. The returned Service must be closed.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Limiter.Enabled && b.redis == nil {
		return nil, errors.New("Limiter requires redis client")
	}

	// -------- RECORD STORE --------
	store, err := stores.NewMemoryStore(cfg.Code.Shards)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config:    cfg,
		store:     store,
		clock:     b.clock,
		logger:    b.logger,
		deliverer: b.deliverer,
		generator: b.generator,
		metrics:   NewMetrics(cfg.Metrics),
	}
	if svc.clock == nil {
		svc.clock = clock.Real()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.deliverer == nil {
		svc.deliverer = discardDeliverer{}
	}
	if svc.generator == nil {
		svc.generator = randomCodes{digits: cfg.Code.Length}
	}

	// -------- RECEIPTS --------
	if cfg.Receipt.Enabled {
		rm, err := receipt.NewManager(receipt.Config{
			TTL:           cfg.Receipt.TTL,
			SigningMethod: receipt.SigningMethod(cfg.Receipt.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Receipt.PrivateKey),
			PublicKey:     cloneBytes(cfg.Receipt.PublicKey),
			Issuer:        cfg.Receipt.Issuer,
			Audience:      cfg.Receipt.Audience,
		})
		if err != nil {
			return nil, err
		}
		svc.receipts = rm
	}

	// -------- REQUEST LIMITER --------
	if cfg.Limiter.Enabled {
		svc.limiter = limiters.NewRequestLimiter(b.redis, limiters.RequestConfig{
			EnableIdentifierThrottle: cfg.Limiter.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.Limiter.EnableIPThrottle,
			MaxRequests:              cfg.Limiter.MaxRequests,
			Window:                   cfg.Limiter.Window,
			MaxVerifyPerIP:           cfg.Limiter.MaxVerifyPerIP,
			RedisPrefix:              cfg.Limiter.RedisPrefix,
		})
	}

	// -------- REAPER --------
	rp, err := reaper.New(reaper.Config{
		Interval: cfg.Reaper.SweepInterval,
		Clock:    svc.clock,
		Sweep:    svc.sweep,
		Logger:   logging.WithComponent(svc.logger, "reaper"),
		OnSweep: func(evicted int) {
			svc.metrics.Inc(MetricReaperSweeps)
			svc.metrics.Add(MetricReaperEvicted, uint64(evicted))
		},
	})
	if err != nil {
		return nil, err
	}
	svc.reaper = rp

	svc.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	svc.delivery = newDeliveryDispatcher(cfg.Delivery, svc.runDelivery)
	svc.reaper.Start()

	b.built = true

	return svc, nil
}
