package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/middleware"
	"github.com/lumistore/backoffice/internal/resp"
	"github.com/lumistore/backoffice/internal/service"
)

// OrderHandler 订单相关的HTTP处理器
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler 创建订单处理器实例
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// ListOrders 获取订单列表
// GET /api/v1/admin/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.OrderListRequest{
		PageRequest: pageRequest(r),
		CustomerID:  queryInt64Ptr(r, "customer_id"),
		DateFrom:    queryDatePtr(r, "date_from"),
		DateTo:      queryDatePtr(r, "date_to"),
		Search:      r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		req.Status = &status
	}

	result, err := h.orderService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list orders", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// GetOrder 获取订单详情
// GET /api/v1/admin/orders/{id}
// 支持按订单号查询：GET /api/v1/admin/orders/by-number/{orderNumber}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid order ID", reqID, "")
		return
	}

	order, err := h.orderService.GetByID(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get order", err)
		return
	}
	resp.OK(w, order, reqID, "")
}

// GetOrderByNumber 根据订单号获取订单
// GET /api/v1/admin/orders/by-number/{orderNumber}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	orderNumber := lastPathSegment(r)
	order, err := h.orderService.GetByOrderNumber(orderNumber)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get order by number", err)
		return
	}
	resp.OK(w, order, reqID, "")
}

// RecentOrders 获取最近订单
// GET /api/v1/admin/orders/recent
func (h *OrderHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	orders, err := h.orderService.Recent(queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list recent orders", err)
		return
	}
	resp.OK(w, orders, reqID, "")
}

// GetTimeline 获取订单时间线
// GET /api/v1/admin/orders/{id}/timeline
func (h *OrderHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid order ID", reqID, "")
		return
	}

	timeline, err := h.orderService.Timeline(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get order timeline", err)
		return
	}
	resp.OK(w, timeline, reqID, "")
}

// TransitionOrder 推进订单状态
// PATCH /api/v1/admin/orders/{id}/status
func (h *OrderHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid order ID", reqID, "")
		return
	}

	var req domain.TransitionOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	order, err := h.orderService.Transition(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "transition order", err)
		return
	}
	resp.OK(w, order, reqID, "")
}

// GetStats 获取订单统计
// GET /api/v1/admin/orders/stats
func (h *OrderHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.orderService.Stats(queryDatePtr(r, "date_from"), queryDatePtr(r, "date_to"))
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get order stats", err)
		return
	}
	resp.OK(w, stats, reqID, "")
}
