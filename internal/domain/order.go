// Package domain 定义订单相关的业务领域模型和核心业务规则。
package domain

import "time"

// OrderStatus 定义订单状态类型
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // 待处理
	OrderStatusProcessing OrderStatus = "processing" // 处理中
	OrderStatusShipped    OrderStatus = "shipped"    // 已发货
	OrderStatusDelivered  OrderStatus = "delivered"  // 已送达
	OrderStatusCancelled  OrderStatus = "cancelled"  // 已取消
	OrderStatusRefunded   OrderStatus = "refunded"   // 已退款
)

// orderTransitions 订单状态迁移表
// 主路径 pending -> processing -> shipped -> delivered 单向推进；
// pending/processing 可取消，delivered 可退款。其余迁移一律拒绝。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

// ValidOrderStatus 判断字符串是否为合法订单状态
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo 判断能否迁移到目标状态
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Order 表示订单领域模型
// 不变式：Total == Subtotal + ShippingCost + Tax - Discount，且非负。
// 订单从不物理删除，取消是一种状态而非删除。
type Order struct {
	ID             int64        `json:"id"`
	OrderNumber    string       `json:"order_number"`
	CustomerID     int64        `json:"customer_id"`
	Status         OrderStatus  `json:"status"`
	Items          []*OrderItem `json:"items,omitempty"`
	Subtotal       float64      `json:"subtotal"`
	ShippingCost   float64      `json:"shipping_cost"`
	Tax            float64      `json:"tax"`
	Discount       float64      `json:"discount"`
	DepositApplied float64      `json:"deposit_applied"` // prepayment策略下记录的定金
	Total          float64      `json:"total"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ComputeTotal 按不变式计算应付总额
func (o *Order) ComputeTotal() float64 {
	return o.Subtotal + o.ShippingCost + o.Tax - o.Discount
}

// TotalValid 校验总额不变式
func (o *Order) TotalValid() bool {
	diff := o.Total - o.ComputeTotal()
	if diff < 0 {
		diff = -diff
	}
	return o.Total >= 0 && diff < 0.005
}

// OrderItem 表示订单行项目
// ReservationToken非空时表示该行项目占用一个库存预留，
// 取消订单时释放令牌；否则按数量直接回补库存。
type OrderItem struct {
	ID               int64   `json:"id"`
	OrderID          int64   `json:"order_id"`
	VariantID        int64   `json:"variant_id"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	ReservationToken *string `json:"reservation_token,omitempty"`
}

// TimelineEvent 表示订单时间线事件
// 时间线只增不改：每次状态迁移追加一条记录，从不修改或删除。
type TimelineEvent struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TransitionOrderRequest 表示订单状态迁移请求
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
	Notify bool   `json:"notify"` // 是否发送通知事件（尽力而为，不影响迁移结果）
}

// OrderListRequest 表示订单列表查询请求
type OrderListRequest struct {
	PageRequest
	Status     *OrderStatus `json:"status" form:"status"`
	CustomerID *int64       `json:"customer_id" form:"customer_id"`
	DateFrom   *time.Time   `json:"date_from" form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time   `json:"date_to" form:"date_to" time_format:"2006-01-02"`
	Search     string       `json:"search" form:"search"` // 订单号/客户邮箱模糊匹配
}

// OrderListResponse 表示订单列表查询响应
type OrderListResponse struct {
	Items      []*Order `json:"items"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
}

// OrderStats 订单统计信息
type OrderStats struct {
	TotalOrders   int64                 `json:"total_orders"`
	TotalRevenue  float64               `json:"total_revenue"`
	CountByStatus map[OrderStatus]int64 `json:"count_by_status"`
}
