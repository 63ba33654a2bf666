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

// ProductHandler 商品相关的HTTP处理器
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler 创建商品处理器实例
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// CreateProduct 创建商品及其变体
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	product, err := h.productService.Create(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create product", err)
		return
	}
	resp.OK(w, product, reqID, "")
}

// GetProduct 获取商品详情
// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	product, err := h.productService.GetByID(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get product", err)
		return
	}
	resp.OK(w, product, reqID, "")
}

// UpdateProduct 部分更新商品
// PATCH /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	var req domain.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	product, err := h.productService.Update(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update product", err)
		return
	}
	resp.OK(w, product, reqID, "")
}

// DeleteProduct 软删除商品
// DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	if err := h.productService.Delete(id); err != nil {
		writeServiceError(w, h.logger, reqID, "delete product", err)
		return
	}
	resp.OK(w, nil, reqID, "")
}

// ListProducts 获取商品列表
// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.ProductListRequest{
		PageRequest: pageRequest(r),
		Search:      r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ProductStatus(s)
		req.Status = &status
	}

	result, err := h.productService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list products", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// ListVariants 获取商品的全部变体
// GET /api/v1/products/{id}/variants
func (h *ProductHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 3)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	variants, err := h.productService.Variants(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list product variants", err)
		return
	}
	resp.OK(w, variants, reqID, "")
}

// SimilarProducts 以图搜商品
// POST /api/v1/products/similar
func (h *ProductHandler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.SimilarProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	result, err := h.productService.SimilarProducts(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "search similar products", err)
		return
	}
	resp.OK(w, result, reqID, "")
}
