package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/config"
	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/mq"
	"github.com/lumistore/backoffice/internal/repo"
)

// PreorderService 定义预订单服务接口
type PreorderService interface {
	Create(req *domain.CreatePreorderRequest) (*domain.Preorder, error)
	GetByID(id int64) (*domain.Preorder, error)
	List(req *domain.PreorderListRequest) (*domain.PreorderListResponse, error)
	Confirm(id int64) (*domain.Preorder, error)
	MarkReady(id int64) (*domain.Preorder, error)
	Cancel(id int64) (*domain.Preorder, error)
	BulkUpdateStatus(req *domain.BulkPreorderStatusRequest) []domain.BulkItemResult

	// ConvertToOrder 将预订单原子地转换为正式订单。
	// 库存不足或并发冲突时整体失败，预订单保持原状态。
	ConvertToOrder(id int64, req *domain.ConvertPreorderRequest) (*domain.Order, error)

	CountByStatus() (map[domain.PreorderStatus]int64, error)
}

// preorderService 是PreorderService接口的实现
type preorderService struct {
	preorderRepo repo.PreorderRepository
	productRepo  repo.ProductRepository
	orderRepo    repo.OrderRepository
	notifier     mq.Notifier
	cfg          *config.Config
	logger       *zap.Logger
}

// NewPreorderService 创建预订单服务实例
func NewPreorderService(
	preorderRepo repo.PreorderRepository,
	productRepo repo.ProductRepository,
	orderRepo repo.OrderRepository,
	notifier mq.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) PreorderService {
	return &preorderService{
		preorderRepo: preorderRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// Create 创建预订单
// 预订单不占用库存：库存扣减只在转换为正式订单时发生。
func (s *preorderService) Create(req *domain.CreatePreorderRequest) (*domain.Preorder, error) {
	if req.CustomerID <= 0 || req.ProductID <= 0 || req.VariantID <= 0 {
		return nil, fmt.Errorf("%w: customer, product and variant ids must be positive", domain.ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if req.DepositAmount < 0 {
		return nil, fmt.Errorf("%w: deposit must be non-negative", domain.ErrValidation)
	}

	variant, err := s.productRepo.GetVariantByID(req.VariantID)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != req.ProductID {
		return nil, fmt.Errorf("%w: variant %d does not belong to product %d",
			domain.ErrValidation, req.VariantID, req.ProductID)
	}

	preorder := &domain.Preorder{
		CustomerID:    req.CustomerID,
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		Quantity:      req.Quantity,
		DepositAmount: req.DepositAmount,
		Status:        domain.PreorderStatusPending,
	}
	if err := s.preorderRepo.Create(preorder); err != nil {
		return nil, err
	}

	s.logger.Info("preorder created",
		zap.Int64("preorder_id", preorder.ID),
		zap.Int64("variant_id", preorder.VariantID),
		zap.Int("quantity", preorder.Quantity),
	)

	return preorder, nil
}

// GetByID 根据ID获取预订单
func (s *preorderService) GetByID(id int64) (*domain.Preorder, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: preorder id must be positive", domain.ErrValidation)
	}
	return s.preorderRepo.GetByID(id)
}

// List 获取预订单列表
func (s *preorderService) List(req *domain.PreorderListRequest) (*domain.PreorderListResponse, error) {
	req.Normalize()
	if req.Status != nil && !domain.ValidPreorderStatus(string(*req.Status)) {
		return nil, fmt.Errorf("%w: unknown preorder status %q", domain.ErrValidation, *req.Status)
	}

	preorders, total, err := s.preorderRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.PreorderListResponse{
		Items:      preorders,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// Confirm 确认预订单（已收定金）
func (s *preorderService) Confirm(id int64) (*domain.Preorder, error) {
	return s.transition(id, domain.PreorderStatusConfirmed)
}

// MarkReady 标记备货完成
func (s *preorderService) MarkReady(id int64) (*domain.Preorder, error) {
	return s.transition(id, domain.PreorderStatusReady)
}

// Cancel 取消预订单
// 预订单从不占用库存，取消没有库存副作用。
func (s *preorderService) Cancel(id int64) (*domain.Preorder, error) {
	return s.transition(id, domain.PreorderStatusCancelled)
}

// transition 带守卫的预订单状态迁移
// converted不是合法目标：转换必须走ConvertToOrder的原子事务，
// 否则会出现converted状态却没有订单、converted_order_id为空的预订单。
func (s *preorderService) transition(id int64, target domain.PreorderStatus) (*domain.Preorder, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: preorder id must be positive", domain.ErrValidation)
	}
	if target == domain.PreorderStatusConverted {
		return nil, fmt.Errorf("%w: preorders can only reach converted via conversion", domain.ErrValidation)
	}

	preorder, err := s.preorderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	// 重复提交同一状态幂等成功
	if preorder.Status == target {
		return preorder, nil
	}

	if !preorder.Status.CanTransitionTo(target) {
		return nil, domain.NewInvalidTransition("preorder", string(preorder.Status), string(target))
	}

	if err := s.preorderRepo.UpdateStatus(id, preorder.Status, target); err != nil {
		return nil, err
	}

	s.logger.Info("preorder status transitioned",
		zap.Int64("preorder_id", id),
		zap.String("from", string(preorder.Status)),
		zap.String("to", string(target)),
	)

	s.notifier.PreorderStatusChanged(&mq.PreorderStatusEvent{
		PreorderID: id,
		From:       preorder.Status,
		To:         target,
		OccurredAt: time.Now(),
	})

	return s.preorderRepo.GetByID(id)
}

// BulkUpdateStatus 批量更新预订单状态
// 单个条目失败不影响其余条目，结果逐项上报。
func (s *preorderService) BulkUpdateStatus(req *domain.BulkPreorderStatusRequest) []domain.BulkItemResult {
	results := make([]domain.BulkItemResult, 0, len(req.IDs))

	if !domain.ValidPreorderStatus(req.Status) {
		for _, id := range req.IDs {
			results = append(results, domain.BulkItemResult{
				ID:    id,
				Error: fmt.Sprintf("unknown preorder status %q", req.Status),
			})
		}
		return results
	}
	target := domain.PreorderStatus(req.Status)

	for _, id := range req.IDs {
		_, err := s.transition(id, target)
		result := domain.BulkItemResult{ID: id, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ConvertToOrder 预订单转正式订单
// 业务规则：
// 1. 仅confirmed/ready状态允许转换
// 2. 库存在转换事务内条件扣减，不足时整体回滚
// 3. 定金按配置策略入账：discount策略抵扣总额，prepayment策略只记账
// 4. 转换事件在提交后发布，发布失败不回滚
func (s *preorderService) ConvertToOrder(id int64, req *domain.ConvertPreorderRequest) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: preorder id must be positive", domain.ErrValidation)
	}
	if req.ShippingCost < 0 || req.Tax < 0 {
		return nil, fmt.Errorf("%w: shipping cost and tax must be non-negative", domain.ErrValidation)
	}

	preorder, err := s.preorderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !preorder.CanConvert() {
		return nil, domain.NewInvalidTransition("preorder", string(preorder.Status), string(domain.PreorderStatusConverted))
	}

	unitPrice, err := s.resolveUnitPrice(preorder)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(preorder, unitPrice, req)
	if !order.TotalValid() {
		return nil, fmt.Errorf("%w: deposit exceeds order total", domain.ErrValidation)
	}

	if err := s.preorderRepo.Convert(preorder, order); err != nil {
		return nil, err
	}

	s.logger.Info("preorder converted to order",
		zap.Int64("preorder_id", preorder.ID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
	)

	if req.Notify {
		s.notifier.PreorderConverted(&mq.PreorderConvertedEvent{
			PreorderID:  preorder.ID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			OccurredAt:  time.Now(),
		})
	}

	return s.orderRepo.GetByID(order.ID)
}

// CountByStatus 按状态统计预订单
func (s *preorderService) CountByStatus() (map[domain.PreorderStatus]int64, error) {
	return s.preorderRepo.CountByStatus()
}

// resolveUnitPrice 确定转换时的单价：变体价格优先，缺省沿用商品价格
func (s *preorderService) resolveUnitPrice(preorder *domain.Preorder) (float64, error) {
	variant, err := s.productRepo.GetVariantByID(preorder.VariantID)
	if err != nil {
		return 0, err
	}
	if variant.Price != nil {
		return *variant.Price, nil
	}

	product, err := s.productRepo.GetByID(preorder.ProductID)
	if err != nil {
		return 0, err
	}
	return product.Price, nil
}

// buildOrder 从预订单构造待插入的订单
func (s *preorderService) buildOrder(preorder *domain.Preorder, unitPrice float64, req *domain.ConvertPreorderRequest) *domain.Order {
	subtotal := unitPrice * float64(preorder.Quantity)

	order := &domain.Order{
		OrderNumber:  newOrderNumber(),
		CustomerID:   preorder.CustomerID,
		Status:       domain.OrderStatusPending,
		Subtotal:     subtotal,
		ShippingCost: req.ShippingCost,
		Tax:          req.Tax,
		Items: []*domain.OrderItem{{
			VariantID: preorder.VariantID,
			Quantity:  preorder.Quantity,
			UnitPrice: unitPrice,
		}},
	}

	switch s.cfg.Preorder.DepositPolicy {
	case config.DepositPolicyPrepayment:
		// 定金只记账，应付总额不变
		order.DepositApplied = preorder.DepositAmount
	default:
		// discount策略：定金抵扣应付总额
		order.Discount = preorder.DepositAmount
	}

	order.Total = order.ComputeTotal()
	return order
}

// newOrderNumber 生成订单号
func newOrderNumber() string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), short)
}
