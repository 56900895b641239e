package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/eduvid/internal/application/orchestrator"
	"github.com/aescanero/eduvid/internal/application/publisher"
	"github.com/aescanero/eduvid/internal/application/workers"
	"github.com/aescanero/eduvid/internal/config"
	"github.com/aescanero/eduvid/internal/ports"
	"github.com/aescanero/eduvid/pkg/adapters/cache"
	memcache "github.com/aescanero/eduvid/pkg/adapters/cache/memory"
	rediscache "github.com/aescanero/eduvid/pkg/adapters/cache/redis"
	redisevents "github.com/aescanero/eduvid/pkg/adapters/events/redis"
	"github.com/aescanero/eduvid/pkg/adapters/graph/neo4j"
	"github.com/aescanero/eduvid/pkg/adapters/llm"
	"github.com/aescanero/eduvid/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/eduvid/pkg/adapters/objectstore/s3"
	"github.com/aescanero/eduvid/pkg/adapters/persistence/postgres"
	"github.com/aescanero/eduvid/pkg/adapters/render/manim"
	memstorage "github.com/aescanero/eduvid/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/eduvid/pkg/adapters/storage/redis"
	"github.com/aescanero/eduvid/pkg/api/grpc"
	"github.com/aescanero/eduvid/pkg/api/http"
	"github.com/aescanero/eduvid/pkg/api/websocket"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting eduvid",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	// Initialize Redis client
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	metricsCollector := prometheus.NewCollector(nil)

	// Task registry, cache and status stream
	var registry ports.TaskRegistry
	switch cfg.RegistryBackend {
	case config.BackendRedis:
		registry = redisstorage.NewRegistry(redisClient, cfg.Redis.TaskRetention, logger)
	default:
		registry = memstorage.NewRegistry(logger)
	}

	var knowledgeCache ports.Cache
	switch cfg.CacheBackend {
	case config.BackendRedis:
		knowledgeCache = rediscache.NewCache(redisClient)
	case config.BackendMemory:
		knowledgeCache = memcache.NewCache()
	default:
		knowledgeCache = cache.Nop{}
	}

	var statusStream ports.EventStream
	if cfg.Redis.StreamMaxLen > 0 {
		statusStream = redisevents.NewStatusStream(redisClient, cfg.Redis.StreamMaxLen, logger)
	}

	statusPublisher := publisher.NewPublisher(registry, statusStream, metricsCollector, logger)

	// Stage collaborators
	graph, err := neo4j.NewGraph(ctx, neo4j.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create knowledge graph client", zap.Error(err))
	}

	contentGenerator, err := llm.NewContentGenerator(&llm.Config{
		Provider:       cfg.LLM.Provider,
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		RequestTimeout: cfg.LLM.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	renderer, err := manim.NewRenderer(manim.Options{
		ManimBinary:  cfg.Renderer.ManimBinary,
		FFmpegBinary: cfg.Renderer.FFmpegBinary,
		OutputDir:    cfg.Renderer.OutputDir,
		Quality:      cfg.Renderer.Quality,
	}, nil, logger)
	if err != nil {
		logger.Fatal("failed to create renderer", zap.Error(err))
	}

	objectStore, err := s3.NewStore(ctx, s3.Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		UsePathStyle:  cfg.Storage.UsePathStyle,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create object store", zap.Error(err))
	}

	db, err := postgres.Open(postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	videos, err := postgres.NewRepository(db, cfg.Postgres.AutoMigrate, logger)
	if err != nil {
		logger.Fatal("failed to create video repository", zap.Error(err))
	}

	// Initialize application components
	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		metricsCollector,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	orchestratorMgr := orchestrator.NewManager(
		orchestrator.Dependencies{
			Registry:  registry,
			Publisher: statusPublisher,
			Cache:     knowledgeCache,
			Graph:     graph,
			Content:   contentGenerator,
			Renderer:  renderer,
			Store:     objectStore,
			Videos:    videos,
			Metrics:   metricsCollector,
		},
		orchestrator.Options{
			CacheTTL:       cfg.Pipeline.CacheTTL,
			KnowledgeDepth: cfg.Pipeline.KnowledgeDepth,
			StageTimeout:   cfg.Pipeline.StageTimeout,
		},
		workerPool,
		orchestrator.NewValidator(),
		logger,
	)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:     cfg.HTTPPort,
		Tasks:    orchestratorMgr,
		Videos:   videos,
		Store:    objectStore,
		Concepts: graph,
		Health:   workerPool.Health(),
		Logger:   logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(statusPublisher, orchestratorMgr, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Health: workerPool.Health(),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("eduvid started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.String("registry_backend", cfg.RegistryBackend),
		zap.String("cache_backend", cfg.CacheBackend))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := graph.Close(shutdownCtx); err != nil {
		logger.Error("Neo4j close error", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("Postgres close error", zap.Error(err))
		}
	}

	if statusStream != nil {
		if err := statusStream.Close(); err != nil {
			logger.Error("status stream close error", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("eduvid shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
