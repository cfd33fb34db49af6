package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AfshinJalili/captable/libs/health"
	"github.com/AfshinJalili/captable/libs/httpmiddleware"
	"github.com/AfshinJalili/captable/libs/kafka"
	"github.com/AfshinJalili/captable/libs/logging"
	"github.com/AfshinJalili/captable/libs/metrics"
	"github.com/AfshinJalili/captable/libs/trace"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/config"
	"github.com/AfshinJalili/captable/services/captable/internal/handlers"
	"github.com/AfshinJalili/captable/services/captable/internal/migrations"
	"github.com/AfshinJalili/captable/services/captable/internal/rate"
	"github.com/AfshinJalili/captable/services/captable/internal/security"
	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// store is everything the captable services need from persistence. Both the
// pgx store and the in-memory store satisfy it.
type store interface {
	Ping(ctx context.Context) error
	service.RegistryStore
	service.LedgerStore
	service.AggregateStore
	service.AuditStore
	service.AccountStore
	service.BootstrapStore
	audit.Store
}

func main() {
	configPath := pflag.String("config", os.Getenv("CAPTABLE_CONFIG"), "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)
	shutdownTracer, err := trace.InitTracer(context.Background(), cfg.App.ServiceName, cfg.App.Env, cfg.App.Trace.Endpoint)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
	} else {
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	if cfg.App.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP("captable")
	httpMetrics.Register(registry)
	serviceMetrics := service.NewMetrics(registry)
	auditMetrics := audit.NewMetrics(registry)

	ready := health.NewManager(false)

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()
	ready.AddCheck("storage", st.Ping)

	hasher := security.NewHasher(security.Argon2Params(cfg.Argon2))
	if cfg.Bootstrap.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := service.EnsureAdmin(ctx, st, hasher, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, logger)
		cancel()
		if err != nil {
			logger.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	limiter, limiterClose, err := buildLimiter(cfg, logger)
	if err != nil {
		logger.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = limiterClose()
	}()

	recorder, recorderClose, err := buildAuditRecorder(cfg, st, registry, logger)
	if err != nil {
		logger.Error("audit recorder init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = recorderClose()
	}()
	hook := audit.NewHook(recorder, logger, auditMetrics, cfg.Audit.Timeout)

	renderer, err := certificate.NewRenderer(cfg.Certificate.Format, certificate.Company{
		Name:     cfg.Company.Name,
		Address:  cfg.Company.Address,
		Email:    cfg.Company.Email,
		Website:  cfg.Company.Website,
		Currency: cfg.Company.Currency,
	})
	if err != nil {
		logger.Error("certificate renderer init failed", "error", err)
		os.Exit(1)
	}

	tokens := security.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTokenTTL)
	h := handlers.New(handlers.Services{
		Auth:      service.NewAuthService(st, hasher, tokens, limiter, hook, logger, serviceMetrics),
		Registry:  service.NewRegistryService(st, hasher, hook, logger, serviceMetrics),
		Ledger:    service.NewLedgerService(st, certificate.NewNumberGenerator(), renderer, cfg.Certificate.Format, hook, logger, serviceMetrics, cfg.Certificate.MaxAttempts),
		Aggregate: service.NewAggregateService(st),
		Audit:     service.NewAuditService(st),
	}, handlers.Info{Name: cfg.App.ServiceName, Version: cfg.App.Version}, logger)

	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(logger, httpMetrics))
	router.Use(httpmiddleware.Recovery(logger))
	router.Use(trace.Middleware(cfg.App.ServiceName))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(cfg.App.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	h.Register(router, []byte(cfg.JWTSecret))

	addr := fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("captable service starting", "addr", addr, "storage", cfg.DB.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()
	ready.SetReady(true)

	waitForShutdown(server, ready, logger)
}

func openStore(cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return storage.NewMemory(), func() {}, nil
	}

	pool, err := connectDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	if cfg.DB.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Run(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied")
	}
	return storage.New(pool), pool.Close, nil
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildLimiter(cfg *config.Config, logger *slog.Logger) (rate.Limiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.RateLimit.Redis.Addr == "" {
		return rate.NewMemory(cfg.RateLimit.LoginLimit, cfg.RateLimit.Window), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.Redis.Addr,
		Password: cfg.RateLimit.Redis.Password,
		DB:       cfg.RateLimit.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if cfg.App.IsDev() {
			logger.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
			return rate.NewMemory(cfg.RateLimit.LoginLimit, cfg.RateLimit.Window), noop, nil
		}
		return nil, nil, err
	}
	return rate.NewRedisLimiter(client, cfg.RateLimit.LoginLimit, cfg.RateLimit.Window, cfg.RateLimit.Redis.Prefix), client.Close, nil
}

// buildAuditRecorder always writes to the audit table and additionally
// publishes to Kafka when brokers are configured.
func buildAuditRecorder(cfg *config.Config, st audit.Store, registry prometheus.Registerer, logger *slog.Logger) (audit.Recorder, func() error, error) {
	recorder := audit.Multi{audit.NewStoreRecorder(st)}
	if len(cfg.Audit.Kafka.Brokers) == 0 {
		return recorder, func() error { return nil }, nil
	}

	producer, err := kafka.NewSyncProducer(kafka.ProducerConfig{
		Brokers:  cfg.Audit.Kafka.Brokers,
		ClientID: cfg.Audit.Kafka.ClientID,
		Timeout:  cfg.Audit.Timeout,
	}, logger, kafka.NewProducerMetrics(registry, "captable"))
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	var publisher kafka.Publisher = producer
	if cfg.Audit.Kafka.DLQTopic != "" {
		publisher = kafka.NewDLQPublisher(producer, producer, cfg.Audit.Kafka.DLQTopic, logger)
	}
	recorder = append(recorder, audit.NewKafkaRecorder(publisher, cfg.Audit.Kafka.Topic))
	logger.Info("audit events published to kafka", "topic", cfg.Audit.Kafka.Topic)
	return recorder, publisher.Close, nil
}

func waitForShutdown(server *http.Server, ready *health.Manager, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ready.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutdown started")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return
	}
	logger.Info("shutdown complete")
}
