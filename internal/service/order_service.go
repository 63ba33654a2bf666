package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/mq"
	"github.com/lumistore/backoffice/internal/repo"
)

// OrderService 定义订单服务接口
// 订单由店面系统或预订单转换创建，后台负责查询与状态推进。
type OrderService interface {
	GetByID(id int64) (*domain.Order, error)
	GetByOrderNumber(orderNumber string) (*domain.Order, error)
	List(req *domain.OrderListRequest) (*domain.OrderListResponse, error)
	Recent(limit int) ([]*domain.Order, error)
	Timeline(orderID int64) ([]*domain.TimelineEvent, error)
	Transition(orderID int64, req *domain.TransitionOrderRequest) (*domain.Order, error)
	Stats(from, to *time.Time) (*domain.OrderStats, error)
}

// orderService 是OrderService接口的实现
type orderService struct {
	orderRepo repo.OrderRepository
	notifier  mq.Notifier
	logger    *zap.Logger
}

// NewOrderService 创建订单服务实例
func NewOrderService(orderRepo repo.OrderRepository, notifier mq.Notifier, logger *zap.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// GetByID 根据ID获取订单
func (s *orderService) GetByID(id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", domain.ErrValidation)
	}
	return s.orderRepo.GetByID(id)
}

// GetByOrderNumber 根据订单号获取订单
func (s *orderService) GetByOrderNumber(orderNumber string) (*domain.Order, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", domain.ErrValidation)
	}
	return s.orderRepo.GetByOrderNumber(orderNumber)
}

// List 获取订单列表
func (s *orderService) List(req *domain.OrderListRequest) (*domain.OrderListResponse, error) {
	req.Normalize()
	if req.Status != nil && !domain.ValidOrderStatus(string(*req.Status)) {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrValidation, *req.Status)
	}

	orders, total, err := s.orderRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.OrderListResponse{
		Items:      orders,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// Recent 获取最近订单
func (s *orderService) Recent(limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}
	return s.orderRepo.Recent(limit)
}

// Timeline 获取订单时间线
func (s *orderService) Timeline(orderID int64) ([]*domain.TimelineEvent, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", domain.ErrValidation)
	}
	// 先确认订单存在，避免空时间线与不存在订单混淆
	if _, err := s.orderRepo.GetByID(orderID); err != nil {
		return nil, err
	}
	return s.orderRepo.Timeline(orderID)
}

// Transition 推进订单状态
// 业务规则：
// 1. 目标状态与当前状态相同时为幂等空操作，不追加时间线
// 2. 迁移表之外的跳转返回InvalidTransitionError
// 3. 迁移、时间线与库存副作用在仓储单事务内完成
// 4. notify=true时在提交后发布事件，发布失败不回滚迁移
func (s *orderService) Transition(orderID int64, req *domain.TransitionOrderRequest) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", domain.ErrValidation)
	}
	if !domain.ValidOrderStatus(req.Status) {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrValidation, req.Status)
	}
	target := domain.OrderStatus(req.Status)

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	// 重复提交同一状态幂等成功
	if order.Status == target {
		return order, nil
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, domain.NewInvalidTransition("order", string(order.Status), string(target))
	}

	if err := s.orderRepo.TransitionStatus(orderID, order.Status, target, req.Note); err != nil {
		return nil, err
	}

	s.logger.Info("order status transitioned",
		zap.Int64("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
	)

	if req.Notify {
		s.notifier.OrderStatusChanged(&mq.OrderStatusEvent{
			OrderID:     orderID,
			OrderNumber: order.OrderNumber,
			From:        order.Status,
			To:          target,
			Notify:      true,
			OccurredAt:  time.Now(),
		})
	}

	return s.orderRepo.GetByID(orderID)
}

// Stats 获取订单统计
func (s *orderService) Stats(from, to *time.Time) (*domain.OrderStats, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: date range start is after end", domain.ErrValidation)
	}
	return s.orderRepo.Stats(from, to)
}
