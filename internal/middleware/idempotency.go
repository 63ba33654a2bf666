package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/cache"
	"github.com/lumistore/backoffice/internal/resp"
)

// HeaderIdempotencyKey 幂等键请求头
const HeaderIdempotencyKey = "X-Idempotency-Key"

// Idempotency 幂等性中间件
// 客户端在写操作上携带X-Idempotency-Key时，同一键在TTL内只接受一次请求，
// 重复提交返回409。读请求与未携带键的请求不受影响。
// 幂等键占位基于缓存SetNX；缓存不可用时放行（fail-open）。
func Idempotency(c cache.Cache, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqID := RequestIDFromContext(r.Context())
			cacheKey := "idempotency:" + r.Method + ":" + r.URL.Path + ":" + key

			acquired, err := c.SetNX(r.Context(), cacheKey, 1, ttl)
			if err != nil {
				logger.Warn("idempotency check failed, passing through",
					zap.String("request_id", reqID),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				logger.Info("duplicate request rejected",
					zap.String("request_id", reqID),
					zap.String("idempotency_key", key),
				)
				resp.Error(w, http.StatusConflict, resp.CodeConflict, "duplicate request", reqID, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
