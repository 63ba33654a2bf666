package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/middleware"
	"github.com/lumistore/backoffice/internal/resp"
	"github.com/lumistore/backoffice/internal/service"
)

// CustomerHandler 客户查询相关的HTTP处理器
// 客户档案由店面系统维护，后台只读。
type CustomerHandler struct {
	customerService service.CustomerService
	logger          *zap.Logger
}

// NewCustomerHandler 创建客户处理器实例
func NewCustomerHandler(customerService service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// ListCustomers 获取客户列表
// GET /api/v1/admin/customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.CustomerListRequest{
		PageRequest: pageRequest(r),
		Search:      r.URL.Query().Get("search"),
	}

	result, err := h.customerService.List(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list customers", err)
		return
	}
	resp.OK(w, result, reqID, "")
}

// GetCustomer 获取客户详情
// GET /api/v1/admin/customers/{id}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid customer ID", reqID, "")
		return
	}

	customer, err := h.customerService.GetByID(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get customer", err)
		return
	}
	resp.OK(w, customer, reqID, "")
}
