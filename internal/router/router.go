// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/api"
	"github.com/lumistore/backoffice/internal/cache"
	"github.com/lumistore/backoffice/internal/config"
	"github.com/lumistore/backoffice/internal/limiter"
	"github.com/lumistore/backoffice/internal/middleware"
	"github.com/lumistore/backoffice/internal/service"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	UserHandler      *api.UserHandler
	ProductHandler   *api.ProductHandler
	InventoryHandler *api.InventoryHandler
	OrderHandler     *api.OrderHandler
	PreorderHandler  *api.PreorderHandler
	ReviewHandler    *api.ReviewHandler
	CustomerHandler  *api.CustomerHandler
	DashboardHandler *api.DashboardHandler
	JWTService       service.JWTService
	Cache            cache.Cache
	Limiter          limiter.Limiter
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件
// 返回的处理器在gin引擎外层套了请求ID、访问日志、恢复和CORS中间件，
// 认证、鉴权和幂等中间件按路由组挂载。
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.cfg = cfg
	r.deps = deps
	r.logger = lg

	r.setupRoutes()

	return r.wrapGlobal(r.engine)
}

// wrapGlobal 将全局中间件包裹在引擎外层
func (r *GinRouter) wrapGlobal(h http.Handler) http.Handler {
	corsCfg := &middleware.CORSConfig{
		AllowedOrigins: r.cfg.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.CORS.AllowedHeaders,
	}

	h = middleware.CORS(corsCfg)(h)
	h = middleware.Timeout(r.cfg.App.RequestTimeout)(h)
	h = middleware.Recovery(r.logger)(h)
	h = middleware.AccessLog(r.logger)(h)
	h = middleware.RequestID(h)
	return h
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes() {
	r.engine.GET("/healthz", r.healthCheck)

	auth := r.adapt(middleware.AuthMiddleware(r.deps.JWTService, r.logger))
	admin := r.adapt(middleware.RequireAdmin(r.logger))
	idempotent := r.adapt(middleware.Idempotency(r.deps.Cache, 24*time.Hour, r.logger))

	v1 := r.engine.Group("/api/v1")
	{
		// 认证路由（无需认证）
		authGroup := v1.Group("/auth")
		{
			login := []gin.HandlerFunc{r.wrapHandler(r.deps.UserHandler.Login)}
			if r.cfg.RateLimit.Enabled {
				login = append([]gin.HandlerFunc{limiter.LoginRateLimitMiddleware(r.deps.Limiter)}, login...)
			}
			authGroup.POST("/login", login...)
			authGroup.POST("/refresh", r.wrapHandler(r.deps.UserHandler.RefreshToken))
			authGroup.GET("/me", auth, r.wrapHandler(r.deps.UserHandler.GetProfile))
		}

		// 商品路由（需要认证，写操作仅管理员）
		products := v1.Group("/products")
		products.Use(auth)
		{
			products.GET("", r.wrapHandler(r.deps.ProductHandler.ListProducts))
			products.GET("/:id", r.wrapHandler(r.deps.ProductHandler.GetProduct))
			products.GET("/:id/variants", r.wrapHandler(r.deps.ProductHandler.ListVariants))
			products.POST("/similar", r.wrapHandler(r.deps.ProductHandler.SimilarProducts))
			products.POST("", admin, r.wrapHandler(r.deps.ProductHandler.CreateProduct))
			products.PATCH("/:id", admin, r.wrapHandler(r.deps.ProductHandler.UpdateProduct))
			products.DELETE("/:id", admin, r.wrapHandler(r.deps.ProductHandler.DeleteProduct))
		}

		// 库存路由（需要认证；变更操作支持幂等键）
		inventory := v1.Group("/inventory")
		inventory.Use(auth)
		{
			inventory.GET("", r.wrapHandler(r.deps.InventoryHandler.ListInventory))
			inventory.GET("/alerts", r.wrapHandler(r.deps.InventoryHandler.GetAlerts))
			inventory.GET("/stats", r.wrapHandler(r.deps.InventoryHandler.GetStats))
			inventory.GET("/:id", r.wrapHandler(r.deps.InventoryHandler.GetInventory))
			inventory.GET("/:id/movements", r.wrapHandler(r.deps.InventoryHandler.GetMovements))
			inventory.PUT("/:id", r.wrapHandler(r.deps.InventoryHandler.UpdateThreshold))
			inventory.POST("/:id/adjust", idempotent, r.wrapHandler(r.deps.InventoryHandler.AdjustStock))
			inventory.POST("/bulk-adjust", idempotent, r.wrapHandler(r.deps.InventoryHandler.BulkAdjust))
			inventory.POST("/reserve", idempotent, r.wrapHandler(r.deps.InventoryHandler.ReserveStock))
			inventory.POST("/release", idempotent, r.wrapHandler(r.deps.InventoryHandler.ReleaseStock))
		}

		// 评价提交（需要认证）
		v1.POST("/reviews", auth, r.wrapHandler(r.deps.ReviewHandler.CreateReview))

		// 预订单创建（需要认证）
		v1.POST("/preorders", auth, r.wrapHandler(r.deps.PreorderHandler.CreatePreorder))

		// 管理员路由（需要认证+管理员权限）
		adminGroup := v1.Group("/admin")
		adminGroup.Use(auth, admin)
		{
			adminGroup.GET("/dashboard", r.wrapHandler(r.deps.DashboardHandler.Overview))

			// 订单管理
			orders := adminGroup.Group("/orders")
			{
				orders.GET("", r.wrapHandler(r.deps.OrderHandler.ListOrders))
				orders.GET("/recent", r.wrapHandler(r.deps.OrderHandler.RecentOrders))
				orders.GET("/stats", r.wrapHandler(r.deps.OrderHandler.GetStats))
				orders.GET("/by-number/:orderNumber", r.wrapHandler(r.deps.OrderHandler.GetOrderByNumber))
				orders.GET("/:id", r.wrapHandler(r.deps.OrderHandler.GetOrder))
				orders.GET("/:id/timeline", r.wrapHandler(r.deps.OrderHandler.GetTimeline))
				orders.PATCH("/:id/status", r.wrapHandler(r.deps.OrderHandler.TransitionOrder))
			}

			// 预订单管理
			preorders := adminGroup.Group("/preorders")
			{
				preorders.GET("", r.wrapHandler(r.deps.PreorderHandler.ListPreorders))
				preorders.GET("/stats", r.wrapHandler(r.deps.PreorderHandler.GetStats))
				preorders.POST("/bulk-status", r.wrapHandler(r.deps.PreorderHandler.BulkUpdateStatus))
				preorders.GET("/:id", r.wrapHandler(r.deps.PreorderHandler.GetPreorder))
				preorders.POST("/:id/confirm", r.wrapHandler(r.deps.PreorderHandler.ConfirmPreorder))
				preorders.POST("/:id/ready", r.wrapHandler(r.deps.PreorderHandler.MarkPreorderReady))
				preorders.POST("/:id/cancel", r.wrapHandler(r.deps.PreorderHandler.CancelPreorder))
				preorders.POST("/:id/convert", idempotent, r.wrapHandler(r.deps.PreorderHandler.ConvertPreorder))
			}

			// 评价管理
			reviews := adminGroup.Group("/reviews")
			{
				reviews.GET("", r.wrapHandler(r.deps.ReviewHandler.ListReviews))
				reviews.GET("/stats", r.wrapHandler(r.deps.ReviewHandler.GetStats))
				reviews.POST("/bulk-status", r.wrapHandler(r.deps.ReviewHandler.BulkUpdateStatus))
				reviews.GET("/:id", r.wrapHandler(r.deps.ReviewHandler.GetReview))
				reviews.PATCH("/:id/status", r.wrapHandler(r.deps.ReviewHandler.UpdateReviewStatus))
				reviews.POST("/:id/reply", r.wrapHandler(r.deps.ReviewHandler.ReplyReview))
				reviews.POST("/:id/flag", r.wrapHandler(r.deps.ReviewHandler.FlagReview))
				reviews.DELETE("/:id", r.wrapHandler(r.deps.ReviewHandler.DeleteReview))
			}

			// 客户查询
			customers := adminGroup.Group("/customers")
			{
				customers.GET("", r.wrapHandler(r.deps.CustomerHandler.ListCustomers))
				customers.GET("/:id", r.wrapHandler(r.deps.CustomerHandler.GetCustomer))
			}

			// 账号管理
			adminGroup.POST("/users", r.wrapHandler(r.deps.UserHandler.CreateUser))
		}
	}
}

// healthCheck 健康检查处理器
func (r *GinRouter) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": r.cfg.App.Version,
	})
}

// wrapHandler 将标准的 http.HandlerFunc 包装为 gin.HandlerFunc
func (r *GinRouter) wrapHandler(handler func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return gin.WrapF(handler)
}

// adapt 将标准库风格的中间件适配为 gin.HandlerFunc
// 内层处理器未被调用时说明中间件已写出响应，终止后续链。
func (r *GinRouter) adapt(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			passed = true
			c.Request = req
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}
