package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/api"
	"github.com/lumistore/backoffice/internal/cache"
	"github.com/lumistore/backoffice/internal/config"
	"github.com/lumistore/backoffice/internal/database"
	"github.com/lumistore/backoffice/internal/limiter"
	"github.com/lumistore/backoffice/internal/logger"
	"github.com/lumistore/backoffice/internal/mq"
	"github.com/lumistore/backoffice/internal/repo"
	"github.com/lumistore/backoffice/internal/router"
	"github.com/lumistore/backoffice/internal/service"
	"github.com/lumistore/backoffice/internal/vision"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
// 迁移在HTTP服务器启动前完成，保证处理请求时表结构已就绪。
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			lg.Sugar().Infow("cache enabled", "type", "memory (fallback)", "ttl", cfg.Cache.TTL)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr, "ttl", cfg.Cache.TTL)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
}

// initNotifier 初始化事件通知器
// MQ不可用时降级为空实现：事件发布是尽力而为，不阻塞业务主流程。
func initNotifier(cfg *config.Config, lg *zap.Logger) (mq.Notifier, func()) {
	if !cfg.MQ.Enabled {
		lg.Sugar().Infow("mq disabled, events will not be published")
		return mq.NewNullNotifier(), func() {}
	}

	cm := mq.NewConnectionManager(cfg.MQ.URL, lg)
	if err := cm.Connect(); err != nil {
		lg.Sugar().Warnw("failed to connect to RabbitMQ, events will not be published", "error", err)
		return mq.NewNullNotifier(), func() {}
	}

	producer, err := mq.NewProducer(cm, cfg.MQ.Exchange, lg)
	if err != nil {
		lg.Sugar().Warnw("failed to create producer, events will not be published", "error", err)
		cm.Close()
		return mq.NewNullNotifier(), func() {}
	}

	lg.Sugar().Infow("mq enabled", "exchange", cfg.MQ.Exchange)
	return mq.NewNotifier(producer, lg), func() { cm.Close() }
}

// initLimiter 初始化限流器
func initLimiter(cfg *config.Config, lg *zap.Logger) limiter.Limiter {
	if !cfg.RateLimit.Enabled {
		return limiter.NewNullLimiter()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lg.Sugar().Infow("rate limiting enabled",
		"login_rate", cfg.RateLimit.LoginRate, "window", cfg.RateLimit.Window)

	return limiter.NewTokenBucketLimiter(client, &limiter.Config{
		Rate:   cfg.RateLimit.LoginRate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.LoginBurst,
	})
}

// initVisionClient 初始化图像识别客户端
// 未启用时返回nil，商品服务对nil客户端返回校验错误。
func initVisionClient(cfg *config.Config, lg *zap.Logger) vision.Client {
	if !cfg.Vision.Enabled {
		lg.Sugar().Infow("vision service disabled")
		return nil
	}
	lg.Sugar().Infow("vision service enabled", "base_url", cfg.Vision.BaseURL)
	return vision.NewClient(&vision.Config{
		BaseURL: cfg.Vision.BaseURL,
		APIKey:  cfg.Vision.APIKey,
		Timeout: cfg.Vision.Timeout,
		MaxTags: cfg.Vision.MaxTags,
	}, lg)
}

// initDependencies 初始化应用依赖（仓储、服务、处理器）
func initDependencies(
	cfg *config.Config,
	db *database.DB,
	cacheInstance cache.Cache,
	notifier mq.Notifier,
	rateLimiter limiter.Limiter,
	visionClient vision.Client,
	lg *zap.Logger,
) *router.Dependencies {
	userRepo := repo.NewUserRepository(db.DB)
	userService := service.NewUserService(userRepo, lg)
	jwtService := service.NewJWTService(cfg, lg)
	userHandler := api.NewUserHandler(userService, jwtService, lg)

	baseProductRepo := repo.NewProductRepository(db.DB)
	var productRepo repo.ProductRepository = baseProductRepo
	if cfg.Cache.Enabled {
		productRepo = repo.NewCachedProductRepository(baseProductRepo, cacheInstance, cfg.Cache.TTL)
	}

	inventoryRepo := repo.NewInventoryRepository(db.DB)
	orderRepo := repo.NewOrderRepository(db.DB)
	preorderRepo := repo.NewPreorderRepository(db.DB)
	reviewRepo := repo.NewReviewRepository(db.DB)
	customerRepo := repo.NewCustomerRepository(db.DB)

	productService := service.NewProductService(productRepo, visionClient, lg)
	inventoryService := service.NewInventoryService(inventoryRepo, notifier, lg)
	orderService := service.NewOrderService(orderRepo, notifier, lg)
	preorderService := service.NewPreorderService(preorderRepo, productRepo, orderRepo, notifier, cfg, lg)
	reviewService := service.NewReviewService(reviewRepo, productRepo, lg)
	customerService := service.NewCustomerService(customerRepo, lg)

	// 幂等中间件依赖可判重的存储，缓存关闭时退回进程内存
	idemCache := cacheInstance
	if !cfg.Cache.Enabled {
		idemCache = cache.NewMemoryCache()
	}

	return &router.Dependencies{
		UserHandler:      userHandler,
		ProductHandler:   api.NewProductHandler(productService, lg),
		InventoryHandler: api.NewInventoryHandler(inventoryService, lg),
		OrderHandler:     api.NewOrderHandler(orderService, lg),
		PreorderHandler:  api.NewPreorderHandler(preorderService, lg),
		ReviewHandler:    api.NewReviewHandler(reviewService, lg),
		CustomerHandler:  api.NewCustomerHandler(customerService, lg),
		DashboardHandler: api.NewDashboardHandler(orderService, inventoryService, reviewService, preorderService, customerService, lg),
		JWTService:       jwtService,
		Cache:            idemCache,
		Limiter:          rateLimiter,
	}
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	cacheInstance := initCache(cfg, lg)
	defer cacheInstance.Close()

	notifier, closeMQ := initNotifier(cfg, lg)
	defer closeMQ()

	rateLimiter := initLimiter(cfg, lg)
	visionClient := initVisionClient(cfg, lg)

	deps := initDependencies(cfg, db, cacheInstance, notifier, rateLimiter, visionClient, lg)

	handler := router.New().Setup(cfg, deps, lg)

	startServer(cfg, handler, lg)
}
