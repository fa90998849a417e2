package goOTP

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/stores"
)

// Config holds every tunable of a Service. Obtain one from DefaultConfig and
// override fields; Builder.Build validates it.
type Config struct {
	Code     CodeConfig     `yaml:"code"`
	Reaper   ReaperConfig   `yaml:"reaper"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Limiter  LimiterConfig  `yaml:"limiter"`
	Receipt  ReceiptConfig  `yaml:"receipt"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

/*
====================================
CODE CONFIG
====================================
*/

type CodeConfig struct {
	// TTL is how long an issued code stays valid.
	TTL time.Duration `yaml:"ttl"`
	// MaxAttempts is the number of wrong guesses after which a code is
	// destroyed.
	MaxAttempts int `yaml:"max_attempts"`
	// Length is the number of digits per code.
	Length int `yaml:"length"`
	// Shards is the number of independently locked partitions of the record
	// store.
	Shards int `yaml:"shards"`
}

/*
====================================
REAPER CONFIG
====================================
*/

type ReaperConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig controls how codes are handed to the Deliverer. With Async
// false the Deliverer runs on the caller's goroutine after the record is
// stored; with Async true it runs on a background worker.
type DeliveryConfig struct {
	Async      bool          `yaml:"async"`
	BufferSize int           `yaml:"buffer_size"`
	DropIfFull bool          `yaml:"drop_if_full"`
	Timeout    time.Duration `yaml:"timeout"`
}

/*
====================================
LIMITER CONFIG
====================================
*/

// LimiterConfig configures the optional Redis request limiter. Issue and
// resend share one budget per identity and per IP; verify is budgeted per IP.
type LimiterConfig struct {
	Enabled                  bool          `yaml:"enabled"`
	EnableIdentifierThrottle bool          `yaml:"enable_identifier_throttle"`
	EnableIPThrottle         bool          `yaml:"enable_ip_throttle"`
	MaxRequests              int           `yaml:"max_requests"`
	Window                   time.Duration `yaml:"window"`
	MaxVerifyPerIP           int           `yaml:"max_verify_per_ip"`
	RedisPrefix              string        `yaml:"redis_prefix"`
}

/*
====================================
RECEIPT CONFIG
====================================
*/

type ReceiptConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TTL           time.Duration `yaml:"ttl"`
	SigningMethod string        `yaml:"signing_method"` // "ed25519" (default), "hs256" optional
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`

	// Raw key material. For ed25519 either raw key bytes or PEM; for hs256
	// the shared secret.
	PrivateKey []byte `yaml:"-"`
	PublicKey  []byte `yaml:"-"`

	// Key files, read by LoadConfigFile when the raw keys are empty.
	PrivateKeyFile string `yaml:"private_key_file"`
	PublicKeyFile  string `yaml:"public_key_file"`
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the baseline configuration: 6-digit codes valid for
// five minutes, three attempts, and a one-minute sweep.
func DefaultConfig() Config {
	return Config{
		Code: CodeConfig{
			TTL:         5 * time.Minute,
			MaxAttempts: 3,
			Length:      6,
			Shards:      stores.DefaultShards,
		},
		Reaper: ReaperConfig{
			SweepInterval: 60 * time.Second,
		},
		Delivery: DeliveryConfig{
			Async:      false,
			BufferSize: 256,
			DropIfFull: true,
			Timeout:    10 * time.Second,
		},
		Limiter: LimiterConfig{
			Enabled:                  false,
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxRequests:              5,
			Window:                   15 * time.Minute,
			MaxVerifyPerIP:           30,
			RedisPrefix:              "otp",
		},
		Receipt: ReceiptConfig{
			Enabled:       false,
			TTL:           10 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "goOTP",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Receipt.PrivateKey = cloneBytes(cfg.Receipt.PrivateKey)
	out.Receipt.PublicKey = cloneBytes(cfg.Receipt.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	// Code
	if c.Code.TTL <= 0 {
		return errors.New("Code TTL must be > 0")
	}
	if c.Code.MaxAttempts <= 0 {
		return errors.New("Code MaxAttempts must be > 0")
	}
	if c.Code.Length < internal.MinOTPDigits || c.Code.Length > internal.MaxOTPDigits {
		return errors.New("Code Length must be between 4 and 10")
	}
	if c.Code.Shards <= 0 || c.Code.Shards > stores.MaxShards {
		return errors.New("Code Shards must be between 1 and 4096")
	}

	// Reaper
	if c.Reaper.SweepInterval <= 0 {
		return errors.New("Reaper SweepInterval must be > 0")
	}

	// Delivery
	if c.Delivery.Timeout < 0 {
		return errors.New("Delivery Timeout must be >= 0")
	}
	if c.Delivery.Async && c.Delivery.BufferSize <= 0 {
		return errors.New("Delivery BufferSize must be > 0 when Async is true")
	}

	// Limiter
	if c.Limiter.Enabled {
		if !c.Limiter.EnableIdentifierThrottle && !c.Limiter.EnableIPThrottle {
			return errors.New("Limiter requires identifier or IP throttle when enabled")
		}
		if c.Limiter.MaxRequests <= 0 {
			return errors.New("Limiter MaxRequests must be > 0")
		}
		if c.Limiter.Window <= 0 {
			return errors.New("Limiter Window must be > 0")
		}
		if c.Limiter.EnableIPThrottle && c.Limiter.MaxVerifyPerIP <= 0 {
			return errors.New("Limiter MaxVerifyPerIP must be > 0 when EnableIPThrottle is true")
		}
		if strings.TrimSpace(c.Limiter.RedisPrefix) == "" {
			return errors.New("Limiter RedisPrefix must not be empty")
		}
	}

	// Receipt
	if c.Receipt.Enabled {
		if c.Receipt.TTL <= 0 {
			return errors.New("Receipt TTL must be > 0")
		}
		switch c.Receipt.SigningMethod {
		case "ed25519":
			// PublicKey alone yields a verify-only service.
			if len(c.Receipt.PrivateKey) == 0 && len(c.Receipt.PublicKey) == 0 {
				return errors.New("Receipt ed25519 requires PrivateKey or PublicKey")
			}
		case "hs256":
			if len(c.Receipt.PrivateKey) < 32 {
				return errors.New("Receipt hs256 requires a PrivateKey of at least 32 bytes")
			}
		default:
			return errors.New("unsupported Receipt signing method")
		}
		if c.Receipt.Audience != "" && strings.TrimSpace(c.Receipt.Audience) == "" {
			return errors.New("Receipt Audience must not be blank")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
