package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/middleware"
	"github.com/lumistore/backoffice/internal/resp"
	"github.com/lumistore/backoffice/internal/service"
)

// DashboardHandler 聚合各业务域的统计数据
type DashboardHandler struct {
	orderService     service.OrderService
	inventoryService service.InventoryService
	reviewService    service.ReviewService
	preorderService  service.PreorderService
	customerService  service.CustomerService
	logger           *zap.Logger
}

// NewDashboardHandler 创建看板处理器实例
func NewDashboardHandler(
	orderService service.OrderService,
	inventoryService service.InventoryService,
	reviewService service.ReviewService,
	preorderService service.PreorderService,
	customerService service.CustomerService,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		orderService:     orderService,
		inventoryService: inventoryService,
		reviewService:    reviewService,
		preorderService:  preorderService,
		customerService:  customerService,
		logger:           logger,
	}
}

// dashboardResponse 看板概览响应
type dashboardResponse struct {
	Orders    *domain.OrderStats              `json:"orders"`
	Inventory *domain.InventoryStats          `json:"inventory"`
	Reviews   *domain.ReviewStats             `json:"reviews"`
	Preorders map[domain.PreorderStatus]int64 `json:"preorders"`
	Customers int64                           `json:"customers"`
}

// Overview 返回后台看板概览
// GET /api/v1/admin/dashboard
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	from := queryDatePtr(r, "date_from")
	to := queryDatePtr(r, "date_to")

	orderStats, err := h.orderService.Stats(from, to)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "load order stats", err)
		return
	}
	inventoryStats, err := h.inventoryService.Stats()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "load inventory stats", err)
		return
	}
	reviewStats, err := h.reviewService.Stats()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "load review stats", err)
		return
	}
	preorderCounts, err := h.preorderService.CountByStatus()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "load preorder stats", err)
		return
	}
	customerCount, err := h.customerService.Count()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "load customer count", err)
		return
	}

	resp.OK(w, &dashboardResponse{
		Orders:    orderStats,
		Inventory: inventoryStats,
		Reviews:   reviewStats,
		Preorders: preorderCounts,
		Customers: customerCount,
	}, reqID, "")
}
