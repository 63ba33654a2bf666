// Package domain 定义商品与商品变体相关的业务领域模型。
package domain

import "time"

// ProductStatus 定义商品状态类型
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"   // 正常销售
	ProductStatusInactive ProductStatus = "inactive" // 暂停销售
	ProductStatusDeleted  ProductStatus = "deleted"  // 已删除
)

// Product 表示商品领域模型
type Product struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Brand       string        `json:"brand"`
	Status      ProductStatus `json:"status"`
	ImageURL    string        `json:"image_url"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsAvailable 判断商品是否可售
func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusActive
}

// ProductVariant 表示商品变体（颜色+尺码等可购买组合）
// 库存按变体跟踪，变体创建时同步创建库存台账。
type ProductVariant struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	SKU       string    `json:"sku"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Price     *float64  `json:"price,omitempty"` // 为空时沿用商品价格
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateVariantRequest 表示创建商品变体请求
type CreateVariantRequest struct {
	SKU               string   `json:"sku" binding:"required,min=1,max=100"`
	Color             string   `json:"color"`
	Size              string   `json:"size"`
	Price             *float64 `json:"price"`
	InitialStock      int      `json:"initial_stock" binding:"min=0"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
}

// CreateProductRequest 表示创建商品请求
type CreateProductRequest struct {
	Name        string                 `json:"name" binding:"required,min=1,max=255"`
	Description string                 `json:"description"`
	Price       float64                `json:"price" binding:"required,gt=0"`
	Brand       string                 `json:"brand"`
	ImageURL    string                 `json:"image_url"`
	Variants    []CreateVariantRequest `json:"variants" binding:"dive"`
}

// UpdateProductRequest 表示更新商品请求
type UpdateProductRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Price       *float64       `json:"price"`
	Brand       *string        `json:"brand"`
	Status      *ProductStatus `json:"status"`
	ImageURL    *string        `json:"image_url"`
}

// ProductListRequest 表示商品列表查询请求
type ProductListRequest struct {
	PageRequest
	Status *ProductStatus `json:"status" form:"status"`
	Brand  *string        `json:"brand" form:"brand"`
	Search string         `json:"search" form:"search"` // 名称/品牌模糊匹配
}

// ProductListResponse 表示商品列表查询响应
type ProductListResponse struct {
	Items      []*Product `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// SimilarProductsRequest 表示以图搜商品请求
type SimilarProductsRequest struct {
	ImageURL string `json:"image_url" binding:"required,url"`
	Limit    int    `json:"limit"`
}

// SimilarProductsResponse 表示以图搜商品响应
// Products保证是现存商品的子集。
type SimilarProductsResponse struct {
	Tags     []string   `json:"tags"`
	Products []*Product `json:"products"`
}
