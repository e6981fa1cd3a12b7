package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" //драйвер pgx для goose
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	httpapi "github.com/shestoi/GoBigTech/services/payment/internal/api/http"
	"github.com/shestoi/GoBigTech/services/payment/internal/config"
	eventkafka "github.com/shestoi/GoBigTech/services/payment/internal/event/kafka"
	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/internal/repository/memory"
	"github.com/shestoi/GoBigTech/services/payment/internal/repository/postgres"
	redisrepo "github.com/shestoi/GoBigTech/services/payment/internal/repository/redis"
	"github.com/shestoi/GoBigTech/services/payment/internal/service"
	platformgrpchealth "github.com/shestoi/GoBigTech/services/payment/platform/health/grpc"
	platformhealth "github.com/shestoi/GoBigTech/services/payment/platform/health/http"
	platformlogging "github.com/shestoi/GoBigTech/services/payment/platform/logging"
	platformobservability "github.com/shestoi/GoBigTech/services/payment/platform/observability"
	platformshutdown "github.com/shestoi/GoBigTech/services/payment/platform/shutdown"
)

const serviceName = "payment"

// App содержит все зависимости для запуска и корректного shutdown Payment Service
type App struct {
	logger      *zap.Logger
	grpcServer  *grpc.Server
	httpServer  *http.Server
	listener    net.Listener
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Payment Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"
	ctx := context.Background()

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)
	buildLogger := logger.With(zap.String("op", op))

	otelShutdown, err := platformobservability.Init(ctx, platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	// при ошибке сборки закрываем то, что уже успели открыть
	fail := func(err error) (*App, error) {
		_ = shutdownMgr.Shutdown()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var checks []platformhealth.Check

	// Хранилище
	var store repository.Store
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		buildLogger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fail(err)
		}
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
		if err := pool.Ping(ctx); err != nil {
			return fail(err)
		}
		if err := migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
			return fail(err)
		}
		buildLogger.Info("Database migrations applied successfully", zap.String("dir", cfg.MigrationsDir))

		store = postgres.NewRepository(pool)
		checks = append(checks, platformhealth.Check{Name: "postgres", Ping: pool.Ping})
	default:
		buildLogger.Warn("Using in-memory storage, data is lost on restart")
		store = memory.NewMemoryRepository()
	}

	deps := service.Deps{
		Store:                 store,
		Router:                service.StaticRouter{Connector: cfg.DefaultConnector},
		Logger:                logger,
		IntentFulfillmentTime: cfg.IntentFulfillmentTime,
		DefaultProductImg:     cfg.DefaultProductImg,
	}

	// Redis: кэш session-вызовов
	if cfg.RedisEnabled {
		buildLogger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		shutdownMgr.Add("redis_client", platformshutdown.Close(redisClient))

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fail(err)
		}

		deps.Surcharge = redisrepo.NewSurchargeCache(redisClient, logger)
		deps.Tokens = redisrepo.NewTokenCache(redisClient, logger)
		checks = append(checks, platformhealth.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	// Kafka: задачи process tracker
	if cfg.KafkaEnabled {
		publisher := eventkafka.NewKafkaSyncTaskPublisher(logger, cfg.Kafka, cfg.SyncTaskTopic)
		shutdownMgr.Add("kafka_sync_publisher", platformshutdown.Close(publisher))
		deps.Tasks = publisher
	}

	paymentService := service.NewService(deps, service.NoopFraudChecker{})

	// HTTP API
	handler := httpapi.NewHandler(paymentService, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, platformhealth.Readiness(checks...), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC: только health service
	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fail(err)
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(serviceName)),
	)
	health := platformgrpchealth.New(grpc_health_v1.HealthCheckResponse_SERVING)
	health.Register(grpcServer)

	// выполняются в обратном порядке: health -> серверы -> клиенты -> otel
	shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	buildLogger.Info("Payment service configured",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
	)

	return &App{
		logger:      logger,
		grpcServer:  grpcServer,
		httpServer:  httpServer,
		listener:    listener,
		shutdownMgr: shutdownMgr,
	}, nil
}

// migrate применяет SQL миграции goose
func migrate(dsn, dir string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return goose.Up(db, dir)
}

// Run запускает серверы и блокируется до получения сигнала shutdown
func (a *App) Run(ctx context.Context) error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting payment service")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.grpcServer.Serve(a.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			a.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	err := a.shutdownMgr.Wait(ctx)

	a.wg.Wait()
	a.logger.Info("Payment service stopped")
	return err
}
