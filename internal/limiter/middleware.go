// Package limiter 限流中间件实现
package limiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumistore/backoffice/internal/resp"
)

const allowCheckTimeout = 5 * time.Second

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Limiter Limiter

	// Key生成函数
	KeyGenerator func(*gin.Context) string

	// 限流回调函数
	OnLimitReached func(*gin.Context, *LimitResult)
}

// DefaultKeyGenerator 默认Key生成器（基于IP）
func DefaultKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("global:%s", c.ClientIP())
}

// RateLimitMiddleware 创建限流中间件
// 限流后端不可用时放行请求并交由错误日志兜底，避免限流故障放大为全站不可用。
func RateLimitMiddleware(config *MiddlewareConfig) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator
	}
	if config.OnLimitReached == nil {
		config.OnLimitReached = defaultOnLimitReached
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), allowCheckTimeout)
		defer cancel()

		result, err := config.Limiter.Allow(ctx, config.KeyGenerator(c))
		if err != nil {
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			config.OnLimitReached(c, result)
			return
		}

		c.Next()
	}
}

// LoginRateLimitMiddleware 登录接口限流中间件，按来源IP限流
func LoginRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(&MiddlewareConfig{
		Limiter: limiter,
		KeyGenerator: func(c *gin.Context) string {
			return fmt.Sprintf("login:ip:%s", c.ClientIP())
		},
		OnLimitReached: func(c *gin.Context, result *LimitResult) {
			requestID := c.GetString("request_id")
			traceID := c.GetString("trace_id")
			resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeTooManyReq,
				"登录尝试过于频繁，请稍后重试", requestID, traceID)
			c.Abort()
		},
	})
}

// APIRateLimitMiddleware API接口限流中间件
func APIRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(&MiddlewareConfig{
		Limiter:      limiter,
		KeyGenerator: DefaultKeyGenerator,
	})
}

// setRateLimitHeaders 设置限流相关的响应头
func setRateLimitHeaders(c *gin.Context, result *LimitResult) {
	if result.Remaining >= 0 {
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	}
	if result.RetryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
	}
}

// defaultOnLimitReached 默认限流回调
func defaultOnLimitReached(c *gin.Context, result *LimitResult) {
	requestID := c.GetString("request_id")
	traceID := c.GetString("trace_id")
	resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeTooManyReq,
		"请求过于频繁，请稍后重试", requestID, traceID)
	c.Abort()
}
