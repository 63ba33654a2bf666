// Package domain 定义库存相关的业务领域模型和核心业务规则。
package domain

import "time"

// DefaultLowStockThreshold 低库存阈值默认值
const DefaultLowStockThreshold = 10

// InventoryRecord 表示单个商品变体的库存台账
// 不变式：Quantity >= 0，任何会使其为负的操作必须失败而不是截断。
type InventoryRecord struct {
	ID                int64     `json:"id"`
	VariantID         int64     `json:"variant_id"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Version           int       `json:"version"` // 乐观锁版本号
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsLowStock 判断是否低于低库存阈值
func (r *InventoryRecord) IsLowStock() bool {
	return r.Quantity <= r.LowStockThreshold
}

// CanFulfill 判断当前库存能否满足指定数量
func (r *InventoryRecord) CanFulfill(quantity int) bool {
	return quantity > 0 && r.Quantity >= quantity
}

// ReservationStatus 定义库存预留状态类型
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"   // 预留中，库存已扣减
	ReservationStatusReleased ReservationStatus = "released" // 已释放，库存已归还
	ReservationStatusConsumed ReservationStatus = "consumed" // 已消费（订单成交）
)

// Reservation 表示一次库存预留
// 预留即时扣减库存；释放时按原数量归还。令牌只能释放一次。
type Reservation struct {
	ID         int64             `json:"id"`
	Token      string            `json:"token"`
	VariantID  int64             `json:"variant_id"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ReleasedAt *time.Time        `json:"released_at,omitempty"`
}

// IsActive 判断预留是否仍然生效
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// StockMovement 表示库存变动审计记录
type StockMovement struct {
	ID        int64     `json:"id"`
	VariantID int64     `json:"variant_id"`
	Delta     int       `json:"delta"` // 正数为入库，负数为出库
	Type      string    `json:"type"`  // adjust, reserve, release, convert, restock
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// AdjustStockRequest 表示库存调整请求
// Delta为零时操作为幂等成功，不产生任何变更。
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason" binding:"required,min=1"`
}

// ReserveStockRequest 表示库存预留请求
type ReserveStockRequest struct {
	VariantID int64 `json:"variant_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// ReleaseStockRequest 表示释放预留请求
type ReleaseStockRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateInventoryRequest 表示更新库存配置请求
type UpdateInventoryRequest struct {
	LowStockThreshold *int `json:"low_stock_threshold"`
}

// BulkAdjustItem 批量库存调整项
type BulkAdjustItem struct {
	VariantID int64  `json:"variant_id" binding:"required,gt=0"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

// BulkAdjustRequest 表示批量库存调整请求
type BulkAdjustRequest struct {
	Updates []BulkAdjustItem `json:"updates" binding:"required,min=1,dive"`
}

// InventoryListRequest 表示库存列表查询请求
type InventoryListRequest struct {
	PageRequest
	VariantID *int64 `json:"variant_id" form:"variant_id"`
	LowStock  *bool  `json:"low_stock" form:"low_stock"`
}

// InventoryListResponse 表示库存列表查询响应
type InventoryListResponse struct {
	Items      []*InventoryRecord `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
}

// InventoryStats 库存统计信息
type InventoryStats struct {
	TotalVariants      int64 `json:"total_variants"`
	LowStockVariants   int64 `json:"low_stock_variants"`
	OutOfStockVariants int64 `json:"out_of_stock_variants"`
	TotalQuantity      int64 `json:"total_quantity"`
	ActiveReservations int64 `json:"active_reservations"`
}
