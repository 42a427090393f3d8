package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grocery-companion/internal/api"
	analyticsHandler "grocery-companion/internal/api/handlers/analytics"
	"grocery-companion/internal/api/handlers/health"
	"grocery-companion/internal/api/middleware"
	aiservice "grocery-companion/internal/core/ai/service"
	"grocery-companion/internal/core/analytics"
	"grocery-companion/internal/core/cache"
	"grocery-companion/internal/core/catalog"
	"grocery-companion/internal/core/matching"
	"grocery-companion/internal/core/queue"
	"grocery-companion/internal/core/recipe"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/infrastructure/database"
	"grocery-companion/internal/pkg/common"
	"grocery-companion/internal/store"

	"go.uber.org/zap"
)

func main() {
	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("catalog_base_url", cfg.Catalog.BaseURL),
		zap.Bool("openrouter_enabled", cfg.OpenRouter.Enabled),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
	)

	checks := map[string]health.Checker{}

	// 初始化快取，有 Redis 位址時優先使用
	searchCache, closeCache := setupCache(cfg, checks)
	defer closeCache()

	// 商品目錄與購物車
	catalogClient := catalog.NewClient(cfg.Catalog)
	checks["catalog"] = catalogClient.Health

	// 食材比對使用的工作池
	pool := queue.NewManager(cfg.Queue)
	defer pool.Close()

	matcher := matching.NewService(
		catalog.NewCachedSearcher(catalogClient, searchCache),
		catalogClient,
		pool,
		matching.Options{
			MaxSearchTerms: cfg.Matching.MaxSearchTerms,
			MaxMatches:     cfg.Matching.MaxMatches,
			SearchTimeout:  cfg.Matching.SearchTimeout,
		},
	)

	// 食材文字解析，未啟用模型時只用規則解析
	var completer recipe.Completer
	if cfg.OpenRouter.Enabled && cfg.OpenRouter.APIKey != "" {
		completer = aiservice.NewService(cfg.OpenRouter, searchCache)
	}
	parser := recipe.NewIngredientService(completer)

	// 購買分析需要資料庫
	var analyticsSvc analyticsHandler.Service
	if cfg.Database.DSN != "" {
		db, err := database.Open(cfg.Database, store.Models()...)
		if err != nil {
			common.LogFatal("Failed to initialize database", zap.Error(err))
		}
		defer func() {
			if err := database.Close(db); err != nil {
				common.LogError("Failed to close database", zap.Error(err))
			}
		}()
		checks["database"] = func(ctx context.Context) error { return database.Ping(ctx, db) }

		analyticsSvc = analytics.NewService(store.New(db), catalogClient, analytics.Options{
			Recommender: analytics.RecommenderOptions{
				MinConfidence:   cfg.Analytics.MinConfidence,
				MinPurchases:    cfg.Analytics.MinPurchases,
				SuggestionLimit: cfg.Analytics.SuggestionLimit,
				ReorderLimit:    cfg.Analytics.ReorderLimit,
			},
			HistoryLimit: cfg.Catalog.HistoryLimit,
			TopProducts:  cfg.Analytics.TopProducts,
		})
	} else {
		common.LogWarn("DATABASE_URL not set, analytics endpoints disabled")
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Stop()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	// 設置路由
	router := api.SetupRouter(api.Dependencies{
		Config:      cfg,
		Analytics:   analyticsSvc,
		Parser:      parser,
		Matcher:     matcher,
		Cart:        catalogClient,
		Queue:       pool,
		RateLimiter: limiter,
		Dedup:       dedup,
		Checks:      checks,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// setupCache 建立搜尋與模型回應的快取，Redis 無法連線時退回記憶體快取
func setupCache(cfg *config.Config, checks map[string]health.Checker) (cache.Cache, func()) {
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc, err := cache.NewService(ctx, cfg.Redis, cfg.Cache)
		if err == nil {
			checks["redis"] = svc.Ping
			common.LogInfo("Using redis cache", zap.String("addr", cfg.Redis.Addr))
			return svc, func() { _ = svc.Close() }
		}
		common.LogWarn("Redis unavailable, falling back to memory cache", zap.Error(err))
	}

	mgr := cache.NewManager(cfg.Cache)
	return mgr, func() { _ = mgr.Close() }
}
