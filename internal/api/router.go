package api

import (
	"time"

	"grocery-companion/internal/api/handlers"
	analyticsHandler "grocery-companion/internal/api/handlers/analytics"
	"grocery-companion/internal/api/handlers/health"
	recipeHandler "grocery-companion/internal/api/handlers/recipe"
	"grocery-companion/internal/api/middleware"
	"grocery-companion/internal/core/queue"
	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由使用的服務
type Dependencies struct {
	Config *config.Config
	// Analytics 為 nil 時分析端點返回 503
	Analytics analyticsHandler.Service
	Parser    recipeHandler.Parser
	Matcher   recipeHandler.Matcher
	// Cart 為 nil 時加入購物車端點返回 503
	Cart  recipeHandler.Cart
	Queue *queue.Manager
	// RateLimiter 為 nil 時不限流
	RateLimiter *middleware.RateLimiter
	Dedup       *middleware.Deduplicator
	Checks      map[string]health.Checker
}

// SetupRouter 設置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.UserIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Queue)
	for name, check := range deps.Checks {
		healthHandler.AddCheck(name, check)
	}
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUser())
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}
	if deps.Dedup != nil {
		api.Use(deps.Dedup.Middleware())
	}

	registerAnalytics(api, deps.Analytics, cfg.App.Debug)

	recipes := recipeHandler.NewHandler(deps.Parser, deps.Matcher, deps.Cart, cfg.App.Debug)
	recipeGroup := api.Group("/recipes")
	{
		recipeGroup.POST("/parse-text", recipes.HandleParseText)
		recipeGroup.POST("/match-products", recipes.HandleMatchProducts)
		recipeGroup.POST("/add-to-cart", recipes.HandleAddToCart)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("analytics_enabled", deps.Analytics != nil),
		zap.Bool("rate_limit_enabled", deps.RateLimiter != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}

// registerAnalytics 註冊分析與訂單路由，沒有資料庫時一律返回 503
func registerAnalytics(api *gin.RouterGroup, svc analyticsHandler.Service, debug bool) {
	unavailable := func(c *gin.Context) {
		handlers.RespondError(c, common.ErrStoreUnavailable, debug)
	}

	refresh, suggestions, recurring, top, sync := unavailable, unavailable, unavailable, unavailable, unavailable
	frequency, spending := unavailable, unavailable
	if svc != nil {
		h := analyticsHandler.NewHandler(svc, debug)
		refresh = h.HandleRefresh
		suggestions = h.HandleSuggestions
		recurring = h.HandleRecurring
		top = h.HandleTopProducts
		sync = h.HandleSyncOrders
		frequency = h.HandleFrequency
		spending = h.HandleSpending
	}

	analyticsGroup := api.Group("/analytics")
	{
		analyticsGroup.POST("/refresh", refresh)
		analyticsGroup.GET("/suggestions", suggestions)
		analyticsGroup.GET("/recurring", recurring)
		analyticsGroup.GET("/top-products", top)
		analyticsGroup.GET("/frequency", frequency)
		analyticsGroup.GET("/spending", spending)
	}
	api.POST("/orders/sync", sync)
}
