// Package main provides the main entry point for the IPN settlement service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/ipn-settlement/app/handlers"
	"github.com/amirphl/ipn-settlement/app/middleware"
	"github.com/amirphl/ipn-settlement/app/router"
	"github.com/amirphl/ipn-settlement/app/scheduler"
	"github.com/amirphl/ipn-settlement/app/services"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/amirphl/ipn-settlement/config"
	"github.com/amirphl/ipn-settlement/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	db        *gorm.DB
	cache     *redis.Client
	executor  *businessflow.SettlementExecutor
	notifier  *businessflow.SettlementNotifier
	publisher services.SettlementEventPublisher
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() { _ = app.logger.Sync() }()

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		app.logger.Info("server starting", zap.String("address", address), zap.String("environment", cfg.Deployment.Environment))

		if err := app.server.Listen(address); err != nil {
			app.logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	app.logger.Info("shutting down gracefully")
	app.shutdown()
	app.logger.Info("server stopped")
}

// shutdown stops intake first, then drains in-flight settlements before
// closing the stores they depend on.
func (a *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.ShutdownWithContext(ctx); err != nil {
		a.logger.Error("error during http shutdown", zap.Error(err))
	}

	for _, fn := range a.stopFuncs {
		fn()
	}

	if err := a.executor.Shutdown(ctx); err != nil {
		a.logger.Error("settlement executor did not drain", zap.Error(err))
	}
	if err := a.notifier.Drain(ctx); err != nil {
		a.logger.Warn("notifications still in flight at shutdown", zap.Error(err))
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close event publisher", zap.Error(err))
	}

	if a.cache != nil {
		_ = a.cache.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	} else {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// A nil client means payment locks stay process-local.
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity
// issues. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeMessenger(cfg config.TelegramConfig, logger *zap.Logger) interface {
	businessflow.UserNotifier
	businessflow.OperatorNotifier
} {
	if cfg.BotToken == "" {
		logger.Warn("telegram bot token not configured, notifications are only logged")
		return services.NewLogMessenger(logger)
	}
	client, err := services.NewTelegramClient(cfg.APIBaseURL, cfg.BotToken, cfg.AdminChatID, cfg.Retries, cfg.Timeout, logger)
	if err != nil {
		logger.Error("telegram bot unavailable, notifications are only logged", zap.Error(err))
		return services.NewLogMessenger(logger)
	}
	return client
}

func initializeEventPublisher(cfg config.KafkaConfig, logger *zap.Logger) services.SettlementEventPublisher {
	if !cfg.Enabled {
		return services.NewNoopSettlementEventPublisher()
	}
	logger.Info("settlement events published to kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return services.NewKafkaSettlementEventPublisher(cfg.Brokers, cfg.Topic, logger)
}

// initializeApplication wires repositories, the settlement engine, handlers and router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logger, err := services.NewLogger(services.LoggerOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var stopFuncs []func()
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval, logger))
	}

	// Repositories
	adminRepo := repository.NewAdminRepository(db)
	pendingDepositRepo := repository.NewPendingDepositRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	reviewRepo := repository.NewSettlementReviewRepository(db)
	settlementLogRepo := repository.NewSettlementLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	shopClient := services.NewShopClient(cfg.Shop.BaseURL, cfg.Shop.APIKey, cfg.Shop.Timeout)
	messenger := initializeMessenger(cfg.Telegram, logger)
	publisher := initializeEventPublisher(cfg.Kafka, logger)

	// Settlement engine
	store := businessflow.NewRepositoryPendingDepositStore(pendingDepositRepo, logger)
	notifier := businessflow.NewSettlementNotifier(messenger, messenger, cfg.Settlement.NotifyTimeout, logger)
	engine := businessflow.NewSettlementEngine(
		businessflow.SettlementCollaborators{
			Store:     store,
			Creditor:  businessflow.NewLedgerBalanceCreditor(balanceRepo, cfg.Settlement.FiatCurrency, logger),
			Finalizer: shopClient,
			Releaser:  shopClient,
			Reviews:   reviewRepo,
			Audit:     settlementLogRepo,
			Events:    publisher,
		},
		notifier,
		businessflow.NewPaymentLocks(rc, cfg.Settlement.LockTTL),
		businessflow.SettlementTimeouts{
			Store:    cfg.Settlement.StoreTimeout,
			Finalize: cfg.Settlement.FinalizeTimeout,
			Credit:   cfg.Settlement.CreditTimeout,
			Release:  cfg.Settlement.ReleaseTimeout,
			Lock:     cfg.Settlement.LockTimeout,
		},
		cfg.Settlement.FiatCurrency,
		logger,
	)
	executor := businessflow.NewSettlementExecutor(cfg.Settlement.Workers, cfg.Settlement.QueueSize, logger)

	// Business flows
	ipnFlow := businessflow.NewIPNFlow(engine, executor, businessflow.IPNOptions{
		Secret:          cfg.NOWPayments.IPNSecret,
		VerifySignature: cfg.NOWPayments.VerifySignature,
		AckWait:         cfg.Settlement.AckWait,
	}, logger)
	reviewFlow := businessflow.NewSettlementReviewFlow(db, reviewRepo, store, engine, logger)
	pendingDepositFlow := businessflow.NewPendingDepositFlow(pendingDepositRepo, logger)
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, tokenService, logger)

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = adminAuthFlow.EnsureBootstrapAdmin(bootstrapCtx, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	// Background jobs
	sweeper := scheduler.NewPendingDepositSweeper(
		pendingDepositRepo,
		engine,
		executor,
		cfg.Settlement.PendingTTL,
		cfg.Settlement.SweepInterval,
		cfg.Settlement.SweepBatchSize,
		logger,
	)
	stopFuncs = append(stopFuncs, sweeper.Start(context.Background()))

	// Handlers and router
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	r := router.NewFiberRouter(cfg, router.Handlers{
		IPN:              handlers.NewIPNHandler(ipnFlow, logger),
		Admin:            handlers.NewAdminHandler(adminAuthFlow, logger),
		SettlementReview: handlers.NewSettlementReviewHandler(reviewFlow, logger),
		PendingDeposit:   handlers.NewPendingDepositHandler(pendingDepositFlow, logger),
	}, authMiddleware, logger)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		logger:    logger,
		db:        db,
		cache:     rc,
		executor:  executor,
		notifier:  notifier,
		publisher: publisher,
		stopFuncs: stopFuncs,
	}, nil
}
