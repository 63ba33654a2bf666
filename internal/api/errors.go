// Package api 提供后台管理系统的HTTP API处理器实现。
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/resp"
)

// writeServiceError 将服务层错误映射为统一的HTTP错误响应
// 映射约定：
//
//	ErrValidation               -> 400
//	ErrNotFound                 -> 404
//	ErrConflict / 库存与令牌类错误 / 非法状态迁移 -> 409
//	其余                        -> 500，细节只进日志
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, reqID, action string, err error) {
	var transitionErr *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrValidation):
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, domain.ErrNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeNotFound, err.Error(), reqID, "")
	case errors.As(err, &transitionErr):
		resp.Error(w, http.StatusConflict, resp.CodeConflict, transitionErr.Error(), reqID, "")
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrDoubleRelease),
		errors.Is(err, domain.ErrUnknownToken):
		resp.Error(w, http.StatusConflict, resp.CodeConflict, err.Error(), reqID, "")
	default:
		logger.Error(action+" failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, action+" failed", reqID, "")
	}
}

// pathID 从URL路径中提取指定段的整数ID
// 例如 /api/v1/admin/orders/42/status 中 index=4 取到42。
func pathID(r *http.Request, index int) (int64, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if index >= len(parts) {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[index], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// lastPathSegment 返回URL路径的最后一段
func lastPathSegment(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// queryInt 解析整数查询参数，缺省时返回def
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryIntPtr 解析可选整数查询参数
func queryIntPtr(r *http.Request, name string) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryInt64Ptr 解析可选int64查询参数
func queryInt64Ptr(r *http.Request, name string) *int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// queryBoolPtr 解析可选布尔查询参数
func queryBoolPtr(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryDatePtr 解析可选日期查询参数（2006-01-02）
func queryDatePtr(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

// pageRequest 从查询参数构造分页请求
func pageRequest(r *http.Request) domain.PageRequest {
	return domain.PageRequest{
		Page:  queryInt(r, "page", 0),
		Limit: queryInt(r, "limit", 0),
	}
}
