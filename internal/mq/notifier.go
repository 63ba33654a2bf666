package mq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
)

// 事件路由键
const (
	RoutingKeyOrderStatusChanged    = "order.status.changed"
	RoutingKeyPreorderStatusChanged = "preorder.status.changed"
	RoutingKeyPreorderConverted     = "preorder.converted"
	RoutingKeyLowStock              = "inventory.low_stock"
)

const publishTimeout = 10 * time.Second

// OrderStatusEvent 订单状态变更事件
type OrderStatusEvent struct {
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	From        domain.OrderStatus `json:"from"`
	To          domain.OrderStatus `json:"to"`
	Notify      bool               `json:"notify"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// PreorderStatusEvent 预订单状态变更事件
type PreorderStatusEvent struct {
	PreorderID int64                 `json:"preorder_id"`
	From       domain.PreorderStatus `json:"from"`
	To         domain.PreorderStatus `json:"to"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// PreorderConvertedEvent 预订单转换事件
type PreorderConvertedEvent struct {
	PreorderID  int64     `json:"preorder_id"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// LowStockEvent 低库存告警事件
type LowStockEvent struct {
	VariantID  int64     `json:"variant_id"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 领域事件通知器
// 发布是尽力而为的：任何失败只记录日志，绝不影响调用方的主流程。
type Notifier interface {
	OrderStatusChanged(event *OrderStatusEvent)
	PreorderStatusChanged(event *PreorderStatusEvent)
	PreorderConverted(event *PreorderConvertedEvent)
	LowStock(event *LowStockEvent)
}

// amqpNotifier 基于RabbitMQ的通知器实现
type amqpNotifier struct {
	producer *Producer
	logger   *zap.Logger
}

// NewNotifier 创建通知器
func NewNotifier(producer *Producer, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &amqpNotifier{producer: producer, logger: logger}
}

func (n *amqpNotifier) OrderStatusChanged(event *OrderStatusEvent) {
	n.publish(RoutingKeyOrderStatusChanged, event)
}

func (n *amqpNotifier) PreorderStatusChanged(event *PreorderStatusEvent) {
	n.publish(RoutingKeyPreorderStatusChanged, event)
}

func (n *amqpNotifier) PreorderConverted(event *PreorderConvertedEvent) {
	n.publish(RoutingKeyPreorderConverted, event)
}

func (n *amqpNotifier) LowStock(event *LowStockEvent) {
	n.publish(RoutingKeyLowStock, event)
}

func (n *amqpNotifier) publish(routingKey string, event any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := n.producer.PublishJSON(ctx, routingKey, event); err != nil {
		n.logger.Warn("事件发布失败",
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}

// nullNotifier 关闭MQ时使用的空实现
type nullNotifier struct{}

// NewNullNotifier 创建空通知器
func NewNullNotifier() Notifier {
	return &nullNotifier{}
}

func (n *nullNotifier) OrderStatusChanged(*OrderStatusEvent)       {}
func (n *nullNotifier) PreorderStatusChanged(*PreorderStatusEvent) {}
func (n *nullNotifier) PreorderConverted(*PreorderConvertedEvent)  {}
func (n *nullNotifier) LowStock(*LowStockEvent)                    {}
