package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/config"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/server"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage/memory"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage/migrations"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage/postgres"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// openStore returns the Postgres zap store when a DSN is configured and an
// in-memory store otherwise
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.ZapStore, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, zap history is kept in memory")
		return memory.NewZapStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to Postgres")
	return postgres.NewZapStore(pool), pool.Close, nil
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize Redis client for the zap feed and feature flags
	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	// Recent zaps list plus Pub/Sub fan-out
	zapCache := cache.NewRedisCacheFromClient(rclient, logger)
	defer zapCache.Close()

	// Feature flags double as the engine's pause switch
	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open zap store")
	}
	defer closeStore()

	// Pools, custody ledger and engine
	pools, err := amm.LoadPoolConfigs(cfg.PoolConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load pool config")
	}
	strategy, err := zap.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.WithError(err).Fatal("invalid zap strategy")
	}
	rtCfg := zap.RuntimeConfig{
		DefaultFee:         amm.Fee{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator},
		PoolConfigs:        pools,
		Strategy:           strategy,
		DefaultSlippageBps: cfg.DefaultSlippageBps,
		MaxSlippageBps:     cfg.MaxSlippageBps,
		MaxPriceImpactBps:  cfg.MaxPriceImpactBps,
		PublishTimeout:     cfg.PublishTimeout,
		Gate:               flagStore,
		Publishers: []zap.Publisher{
			zapCache,                             // Redis list + Pub/Sub for the indexer and websocket clients
			storage.StorePublisher{Store: store}, // Durable history for /v1/zaps/:id
		},
		Logger: logger,
	}
	if cfg.ProgramID != "" {
		if rtCfg.ProgramID, err = solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			logger.WithError(err).Fatal("invalid ZAP_PROGRAM_ID")
		}
	}
	rt, err := zap.NewRuntime(rtCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to start zap runtime")
	}

	// Initialize AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		MaxRows:            cfg.AIMaxRows,
		Logger:             logger,
	}

	// Only initialize AI if OpenRouter API key is provided
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close() // Clean up AI resources on shutdown
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Runtime:      rt,          // Pools, ledger and engine
		Store:        store,       // Zap history
		Cache:        zapCache,    // Redis-backed zap feed
		Flags:        flagStore,   // Redis-backed feature flags
		AI:           agent,       // Optional AI agent (can be nil)
		AIBaseConfig: aiBase,      // Base AI configuration for model overrides
		DevMode:      cfg.DevMode, // Enable dev-only routes and detailed errors
		Logger:       logger,      // Structured logger
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr, // Server bind address (e.g., ":8080")
			DevMode: cfg.DevMode, // Development mode flag
			APIKey:  cfg.APIKey,  // Optional API key for authentication
			ZapRate: float64(cfg.ZapRate),
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"pools":   rt.Factory.PairCount(),
		"account": rt.Account.String(),
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		// http.ErrServerClosed is expected during graceful shutdown
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("api server failed")
		}
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("shutdown did not complete")
	}
}
