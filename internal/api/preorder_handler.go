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

// PreorderHandler 预订单相关的HTTP处理器
type PreorderHandler struct {
	preorderService service.PreorderService
	logger          *zap.Logger
}

// NewPreorderHandler 创建预订单处理器实例
func NewPreorderHandler(preorderService service.PreorderService, logger *zap.Logger) *PreorderHandler {
	return &PreorderHandler{
		preorderService: preorderService,
		logger:          logger,
	}
}

// CreatePreorder 创建预订单
// POST /api/v1/preorders
func (h *PreorderHandler) CreatePreorder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreatePreorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	preorder, err := h.preorderService.Create(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create preorder", err)
		return
	}
	resp.OK(w, preorder, reqID, "")
}

// GetPreorder 获取预订单详情
// GET /api/v1/admin/preorders/{id}
func (h *PreorderHandler) GetPreorder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid preorder ID", reqID, "")
		return
	}

	preorder, err := h.preorderService.GetByID(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get preorder", err)
		return
	}
	resp.OK(w, preorder, reqID, "")
}

// ListPreorders 获取预订单列表
// GET /api/v1/admin/preorders
func (h *PreorderHandler) ListPreorders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.PreorderListRequest{
		PageRequest: pageRequest(r),
		CustomerID:  queryInt64Ptr(r, "customer_id"),
		ProductID:   queryInt64Ptr(r, "product_id"),
		DateFrom:    queryDatePtr(r, "date_from"),
		DateTo:      queryDatePtr(r, "date_to"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.PreorderStatus(s)
		req.Status = &status
	}

	result, err := h.preorderService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list preorders", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// ConfirmPreorder 确认预订单
// POST /api/v1/admin/preorders/{id}/confirm
func (h *PreorderHandler) ConfirmPreorder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.preorderService.Confirm, "confirm preorder")
}

// MarkPreorderReady 标记备货完成
// POST /api/v1/admin/preorders/{id}/ready
func (h *PreorderHandler) MarkPreorderReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.preorderService.MarkReady, "mark preorder ready")
}

// CancelPreorder 取消预订单
// POST /api/v1/admin/preorders/{id}/cancel
func (h *PreorderHandler) CancelPreorder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.preorderService.Cancel, "cancel preorder")
}

// transition 预订单状态迁移的公共处理
func (h *PreorderHandler) transition(w http.ResponseWriter, r *http.Request, op func(int64) (*domain.Preorder, error), action string) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid preorder ID", reqID, "")
		return
	}

	preorder, err := op(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, action, err)
		return
	}
	resp.OK(w, preorder, reqID, "")
}

// ConvertPreorder 预订单转正式订单
// POST /api/v1/admin/preorders/{id}/convert
func (h *PreorderHandler) ConvertPreorder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid preorder ID", reqID, "")
		return
	}

	// 请求体可省略：运费与税费默认为零
	var req domain.ConvertPreorderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
			return
		}
	}

	order, err := h.preorderService.ConvertToOrder(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "convert preorder", err)
		return
	}
	resp.OK(w, order, reqID, "")
}

// BulkUpdateStatus 批量更新预订单状态
// POST /api/v1/admin/preorders/bulk-status
func (h *PreorderHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.BulkPreorderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if len(req.IDs) == 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "ids must not be empty", reqID, "")
		return
	}

	results := h.preorderService.BulkUpdateStatus(&req)
	resp.OK(w, results, reqID, "")
}

// GetStats 按状态统计预订单
// GET /api/v1/admin/preorders/stats
func (h *PreorderHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	counts, err := h.preorderService.CountByStatus()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get preorder stats", err)
		return
	}
	resp.OK(w, counts, reqID, "")
}
