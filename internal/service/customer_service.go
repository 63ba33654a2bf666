package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/repo"
)

// CustomerService 定义客户服务接口（后台只读）
type CustomerService interface {
	GetByID(id int64) (*domain.Customer, error)
	List(req *domain.CustomerListRequest) (*domain.CustomerListResponse, error)
	Count() (int64, error)
}

// customerService 是CustomerService接口的实现
type customerService struct {
	customerRepo repo.CustomerRepository
	logger       *zap.Logger
}

// NewCustomerService 创建客户服务实例
func NewCustomerService(customerRepo repo.CustomerRepository, logger *zap.Logger) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// GetByID 根据ID获取客户
func (s *customerService) GetByID(id int64) (*domain.Customer, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", domain.ErrValidation)
	}
	return s.customerRepo.GetByID(id)
}

// List 获取客户列表
func (s *customerService) List(req *domain.CustomerListRequest) (*domain.CustomerListResponse, error) {
	req.Normalize()

	customers, total, err := s.customerRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.CustomerListResponse{
		Items:      customers,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// Count 统计客户总数
func (s *customerService) Count() (int64, error) {
	return s.customerRepo.Count()
}
