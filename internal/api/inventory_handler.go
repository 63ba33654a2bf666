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

// InventoryHandler 库存相关的HTTP处理器
type InventoryHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler 创建库存处理器实例
func NewInventoryHandler(inventoryService service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// ListInventory 获取库存列表
// GET /api/v1/inventory
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.InventoryListRequest{
		PageRequest: pageRequest(r),
		VariantID:   queryInt64Ptr(r, "variant_id"),
		LowStock:    queryBoolPtr(r, "low_stock"),
	}

	result, err := h.inventoryService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list inventory", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// GetInventory 获取单个变体的库存台账
// GET /api/v1/inventory/{variantID}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	variantID, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid variant ID", reqID, "")
		return
	}

	record, err := h.inventoryService.GetByVariantID(variantID)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get inventory", err)
		return
	}
	resp.OK(w, record, reqID, "")
}

// AdjustStock 调整库存
// POST /api/v1/inventory/{variantID}/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	variantID, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid variant ID", reqID, "")
		return
	}

	var req domain.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	record, err := h.inventoryService.AdjustStock(variantID, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "adjust stock", err)
		return
	}
	resp.OK(w, record, reqID, "")
}

// BulkAdjust 批量调整库存
// POST /api/v1/inventory/bulk-adjust
func (h *InventoryHandler) BulkAdjust(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.BulkAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if len(req.Updates) == 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "updates must not be empty", reqID, "")
		return
	}

	results := h.inventoryService.BulkAdjust(&req)
	resp.OK(w, results, reqID, "")
}

// UpdateThreshold 更新低库存阈值
// PUT /api/v1/inventory/{variantID}
func (h *InventoryHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	variantID, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid variant ID", reqID, "")
		return
	}

	var req domain.UpdateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	record, err := h.inventoryService.UpdateThreshold(variantID, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update threshold", err)
		return
	}
	resp.OK(w, record, reqID, "")
}

// ReserveStock 预留库存
// POST /api/v1/inventory/reserve
func (h *InventoryHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	reservation, err := h.inventoryService.Reserve(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "reserve stock", err)
		return
	}
	resp.OK(w, reservation, reqID, "")
}

// ReleaseStock 释放预留
// POST /api/v1/inventory/release
func (h *InventoryHandler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.ReleaseStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	reservation, err := h.inventoryService.Release(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "release reservation", err)
		return
	}
	resp.OK(w, reservation, reqID, "")
}

// GetAlerts 获取低库存告警
// GET /api/v1/inventory/alerts
func (h *InventoryHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	alerts, err := h.inventoryService.Alerts(queryIntPtr(r, "threshold"))
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list low stock alerts", err)
		return
	}
	resp.OK(w, alerts, reqID, "")
}

// GetMovements 获取库存变动记录
// GET /api/v1/inventory/{variantID}/movements
func (h *InventoryHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	variantID, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid variant ID", reqID, "")
		return
	}

	movements, err := h.inventoryService.Movements(variantID, queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list stock movements", err)
		return
	}
	resp.OK(w, movements, reqID, "")
}

// GetStats 获取库存统计
// GET /api/v1/inventory/stats
func (h *InventoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.inventoryService.Stats()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get inventory stats", err)
		return
	}
	resp.OK(w, stats, reqID, "")
}
