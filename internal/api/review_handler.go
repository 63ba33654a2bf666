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

// ReviewHandler 评价审核相关的HTTP处理器
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler 创建评价处理器实例
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// CreateReview 创建评价（店面回填通道）
// POST /api/v1/admin/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req service.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	review, err := h.reviewService.Create(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create review", err)
		return
	}
	resp.OK(w, review, reqID, "")
}

// GetReview 获取评价详情
// GET /api/v1/admin/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid review ID", reqID, "")
		return
	}

	review, err := h.reviewService.GetByID(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get review", err)
		return
	}
	resp.OK(w, review, reqID, "")
}

// ListReviews 获取评价列表
// GET /api/v1/admin/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.ReviewListRequest{
		PageRequest: pageRequest(r),
		ProductID:   queryInt64Ptr(r, "product_id"),
		CustomerID:  queryInt64Ptr(r, "customer_id"),
		Rating:      queryIntPtr(r, "rating"),
		DateFrom:    queryDatePtr(r, "date_from"),
		DateTo:      queryDatePtr(r, "date_to"),
		Search:      r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ReviewStatus(s)
		req.Status = &status
	}

	result, err := h.reviewService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list reviews", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// UpdateReviewStatus 审核评价
// PATCH /api/v1/admin/reviews/{id}/status
func (h *ReviewHandler) UpdateReviewStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid review ID", reqID, "")
		return
	}

	var req domain.UpdateReviewStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	review, err := h.reviewService.UpdateStatus(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "moderate review", err)
		return
	}
	resp.OK(w, review, reqID, "")
}

// BulkUpdateStatus 批量审核评价
// POST /api/v1/admin/reviews/bulk-status
func (h *ReviewHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.BulkReviewStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if len(req.IDs) == 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "ids must not be empty", reqID, "")
		return
	}

	results := h.reviewService.BulkUpdateStatus(&req)
	resp.OK(w, results, reqID, "")
}

// ReplyReview 商家回复评价
// POST /api/v1/admin/reviews/{id}/reply
func (h *ReviewHandler) ReplyReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid review ID", reqID, "")
		return
	}

	var req domain.ReplyReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	review, err := h.reviewService.Reply(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "reply review", err)
		return
	}
	resp.OK(w, review, reqID, "")
}

// FlagReview 标记评价待人工复核
// POST /api/v1/admin/reviews/{id}/flag
func (h *ReviewHandler) FlagReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid review ID", reqID, "")
		return
	}

	var req domain.FlagReviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
			return
		}
	}

	review, err := h.reviewService.Flag(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "flag review", err)
		return
	}
	resp.OK(w, review, reqID, "")
}

// DeleteReview 软删除评价
// DELETE /api/v1/admin/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid review ID", reqID, "")
		return
	}

	if err := h.reviewService.Delete(id); err != nil {
		writeServiceError(w, h.logger, reqID, "delete review", err)
		return
	}
	resp.OK(w, nil, reqID, "")
}

// GetStats 获取评价统计
// GET /api/v1/admin/reviews/stats
func (h *ReviewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.reviewService.Stats()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get review stats", err)
		return
	}
	resp.OK(w, stats, reqID, "")
}
