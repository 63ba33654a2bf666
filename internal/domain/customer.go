// Package domain 定义客户相关的业务领域模型。
package domain

import "time"

// Customer 表示客户领域模型
// 客户由店面系统创建，后台只读展示与检索。
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerListRequest 表示客户列表查询请求
type CustomerListRequest struct {
	PageRequest
	Search string `json:"search" form:"search"` // 姓名/邮箱模糊匹配
}

// CustomerListResponse 表示客户列表查询响应
type CustomerListResponse struct {
	Items      []*Customer `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}
