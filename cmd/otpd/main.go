// Command otpd serves the one-time code endpoints over HTTP.
//
// Run:
//
//	go run ./cmd/otpd -config otpd.yaml
//
// Without -config the daemon listens on :8080 with default OTP settings,
// no request limiter, and codes written to the log instead of being mailed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/delivery/mail"
	"github.com/MrEthical07/goOTP/httpapi"
	"github.com/MrEthical07/goOTP/internal/logging"
	"github.com/MrEthical07/goOTP/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the otpd YAML config")
	flag.Parse()

	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Environment)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("otpd stopped", zap.Error(err))
	}
}

func run(cfg daemonConfig, logger *zap.Logger) error {
	rdb, closeRedis, err := openRedis(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	builder := goOTP.New().
		WithConfig(cfg.OTP).
		WithLogger(logging.WithComponent(logger, "otp")).
		WithDeliverer(newDeliverer(cfg, logger))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	if cfg.Logging.Audit {
		builder = builder.WithAuditSink(goOTP.NewJSONWriterSink(os.Stdout))
	}

	svc, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build otp service: %w", err)
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, svc, logger),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("otpd listening", zap.String("addr", cfg.Server.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}
	return nil
}

func newRouter(cfg daemonConfig, svc *goOTP.Service, logger *zap.Logger) *gin.Engine {
	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.OTP.Metrics.Enabled && cfg.Server.MetricsPath != "" {
		r.GET(cfg.Server.MetricsPath, gin.WrapH(prometheus.NewExporter(svc).Handler()))
	}

	httpapi.New(svc, logging.WithComponent(logger, "http")).Register(r)
	return r
}

func openRedis(cfg redisConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	switch cfg.Mode {
	case redisModeEmbedded:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		logger.Info("using embedded redis", zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	case redisModeExternal:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Addr},
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("using redis", zap.String("addr", cfg.Addr))
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func newDeliverer(cfg daemonConfig, logger *zap.Logger) goOTP.Deliverer {
	if cfg.SMTP.Enabled {
		mc := cfg.SMTP.Config
		mc.CodeTTL = cfg.OTP.Code.TTL
		return mail.New(mc)
	}
	return logDeliverer(logging.WithComponent(logger, "delivery"))
}

// logDeliverer writes codes to the log. Development only.
func logDeliverer(logger *zap.Logger) goOTP.Deliverer {
	return goOTP.DelivererFunc(func(_ context.Context, identity, code string) error {
		logger.Warn("otp code (log delivery)", zap.String("identity", identity), zap.String("code", code))
		return nil
	})
}
