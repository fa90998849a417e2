package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/delivery/mail"
	"gopkg.in/yaml.v3"
)

const (
	redisModeOff      = "off"
	redisModeEmbedded = "embedded"
	redisModeExternal = "external"
)

type serverConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MetricsPath       string        `yaml:"metrics_path"`
}

type loggingConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
	// Audit writes audit events as JSON lines to stdout.
	Audit bool `yaml:"audit"`
}

type redisConfig struct {
	Mode     string `yaml:"mode"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type smtpConfig struct {
	Enabled     bool `yaml:"enabled"`
	mail.Config `yaml:",inline"`
}

type daemonConfig struct {
	Server  serverConfig  `yaml:"server"`
	Logging loggingConfig `yaml:"logging"`
	Redis   redisConfig   `yaml:"redis"`
	SMTP    smtpConfig    `yaml:"smtp"`
	OTP     goOTP.Config  `yaml:"otp"`
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Server: serverConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MetricsPath:       "/metrics",
		},
		Logging: loggingConfig{
			Level:       "info",
			Environment: "development",
		},
		Redis: redisConfig{
			Mode: redisModeOff,
		},
		SMTP: smtpConfig{
			Config: mail.Config{Port: 587},
		},
		OTP: goOTP.DefaultConfig(),
	}
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, cfg.validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := decodeDaemonConfig(f, &cfg); err != nil {
		return daemonConfig{}, err
	}
	if err := cfg.OTP.Receipt.LoadKeyFiles(filepath.Dir(path)); err != nil {
		return daemonConfig{}, err
	}
	return cfg, cfg.validate()
}

func decodeDaemonConfig(r io.Reader, cfg *daemonConfig) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c daemonConfig) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown_timeout must be > 0")
	}

	switch c.Redis.Mode {
	case redisModeOff:
		if c.OTP.Limiter.Enabled {
			return errors.New("otp limiter requires redis mode embedded or external")
		}
	case redisModeEmbedded:
	case redisModeExternal:
		if c.Redis.Addr == "" {
			return errors.New("redis addr is required in external mode")
		}
	default:
		return fmt.Errorf("unknown redis mode %q", c.Redis.Mode)
	}

	if c.SMTP.Enabled {
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return errors.New("smtp host and from are required when smtp is enabled")
		}
		if c.SMTP.Port <= 0 {
			return errors.New("smtp port must be > 0")
		}
	}

	return c.OTP.Validate()
}
