// Package domain 定义预订单相关的业务领域模型和核心业务规则。
package domain

import "time"

// PreorderStatus 定义预订单状态类型
type PreorderStatus string

const (
	PreorderStatusPending   PreorderStatus = "pending"   // 待确认
	PreorderStatusConfirmed PreorderStatus = "confirmed" // 已确认（已收定金）
	PreorderStatusReady     PreorderStatus = "ready"     // 备货完成，待转订单
	PreorderStatusConverted PreorderStatus = "converted" // 已转为正式订单（终态）
	PreorderStatusCancelled PreorderStatus = "cancelled" // 已取消（终态）
)

// preorderTransitions 预订单状态迁移表
// pending -> confirmed -> ready -> converted，任一非终态可取消。
var preorderTransitions = map[PreorderStatus][]PreorderStatus{
	PreorderStatusPending:   {PreorderStatusConfirmed, PreorderStatusCancelled},
	PreorderStatusConfirmed: {PreorderStatusReady, PreorderStatusConverted, PreorderStatusCancelled},
	PreorderStatusReady:     {PreorderStatusConverted, PreorderStatusCancelled},
}

// ValidPreorderStatus 判断字符串是否为合法预订单状态
func ValidPreorderStatus(s string) bool {
	switch PreorderStatus(s) {
	case PreorderStatusPending, PreorderStatusConfirmed, PreorderStatusReady,
		PreorderStatusConverted, PreorderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 判断能否迁移到目标状态
func (s PreorderStatus) CanTransitionTo(target PreorderStatus) bool {
	for _, next := range preorderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func (s PreorderStatus) IsTerminal() bool {
	return s == PreorderStatusConverted || s == PreorderStatusCancelled
}

// Preorder 表示预订单领域模型
// 不变式：ConvertedOrderID非空当且仅当状态为converted，且只能被设置一次。
type Preorder struct {
	ID               int64          `json:"id"`
	CustomerID       int64          `json:"customer_id"`
	ProductID        int64          `json:"product_id"`
	VariantID        int64          `json:"variant_id"`
	Quantity         int            `json:"quantity"`
	DepositAmount    float64        `json:"deposit_amount"`
	Status           PreorderStatus `json:"status"`
	ConvertedOrderID *int64         `json:"converted_order_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CanConvert 判断预订单是否允许转换为正式订单
func (p *Preorder) CanConvert() bool {
	return p.Status == PreorderStatusConfirmed || p.Status == PreorderStatusReady
}

// CreatePreorderRequest 表示创建预订单请求
type CreatePreorderRequest struct {
	CustomerID    int64   `json:"customer_id" binding:"required,gt=0"`
	ProductID     int64   `json:"product_id" binding:"required,gt=0"`
	VariantID     int64   `json:"variant_id" binding:"required,gt=0"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	DepositAmount float64 `json:"deposit_amount" binding:"min=0"`
}

// ConvertPreorderRequest 表示预订单转换请求
type ConvertPreorderRequest struct {
	ShippingCost float64 `json:"shipping_cost" binding:"min=0"`
	Tax          float64 `json:"tax" binding:"min=0"`
	Notify       bool    `json:"notify"`
}

// BulkPreorderStatusRequest 表示批量更新预订单状态请求
type BulkPreorderStatusRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1"`
	Status string  `json:"status" binding:"required"`
}

// PreorderListRequest 表示预订单列表查询请求
type PreorderListRequest struct {
	PageRequest
	Status     *PreorderStatus `json:"status" form:"status"`
	CustomerID *int64          `json:"customer_id" form:"customer_id"`
	ProductID  *int64          `json:"product_id" form:"product_id"`
	DateFrom   *time.Time      `json:"date_from" form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time      `json:"date_to" form:"date_to" time_format:"2006-01-02"`
}

// PreorderListResponse 表示预订单列表查询响应
type PreorderListResponse struct {
	Items      []*Preorder `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}
