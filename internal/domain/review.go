// Package domain 定义评价审核相关的业务领域模型和核心业务规则。
package domain

import "time"

// ReviewStatus 定义评价状态类型
// 与订单/预订单不同，审核是扁平分类而非流水线：
// 任何非删除评价都可以被直接置为 approved/rejected/flagged。
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"  // 待审核
	ReviewStatusApproved ReviewStatus = "approved" // 已通过
	ReviewStatusRejected ReviewStatus = "rejected" // 已拒绝
	ReviewStatusFlagged  ReviewStatus = "flagged"  // 已标记（待人工复核）
)

// ValidReviewStatus 判断字符串是否为合法评价状态
func ValidReviewStatus(s string) bool {
	switch ReviewStatus(s) {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected, ReviewStatusFlagged:
		return true
	}
	return false
}

// ModeratableReviewStatus 判断状态是否为审核动作的合法目标
// pending 是初始状态，不作为审核目标。
func ModeratableReviewStatus(s string) bool {
	switch ReviewStatus(s) {
	case ReviewStatusApproved, ReviewStatusRejected, ReviewStatusFlagged:
		return true
	}
	return false
}

// Review 表示商品评价领域模型
// 不变式：Rating在[1,5]内；Reply仅能由审核动作设置一次，与状态无关。
// 删除为软删除（DeletedAt置位）。
type Review struct {
	ID         int64        `json:"id"`
	ProductID  int64        `json:"product_id"`
	CustomerID int64        `json:"customer_id"`
	Rating     int          `json:"rating"`
	Comment    string       `json:"comment"`
	Status     ReviewStatus `json:"status"`
	Reply      *string      `json:"reply,omitempty"`
	RepliedAt  *time.Time   `json:"replied_at,omitempty"`
	FlagReason string       `json:"flag_reason,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	DeletedAt  *time.Time   `json:"-"`
}

// UpdateReviewStatusRequest 表示更新评价状态请求
type UpdateReviewStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BulkReviewStatusRequest 表示批量更新评价状态请求
type BulkReviewStatusRequest struct {
	IDs    []int64 `json:"ids" binding:"required,min=1"`
	Status string  `json:"status" binding:"required"`
}

// BulkItemResult 批量操作中单个条目的结果
// 批量操作不因个别条目失败而中止，每个ID的结果单独上报。
type BulkItemResult struct {
	ID    int64  `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ReplyReviewRequest 表示商家回复请求
type ReplyReviewRequest struct {
	Reply string `json:"reply" binding:"required,min=1"`
}

// FlagReviewRequest 表示标记评价请求
type FlagReviewRequest struct {
	Reason string `json:"reason"`
}

// ReviewListRequest 表示评价列表查询请求
type ReviewListRequest struct {
	PageRequest
	Status     *ReviewStatus `json:"status" form:"status"`
	ProductID  *int64        `json:"product_id" form:"product_id"`
	CustomerID *int64        `json:"customer_id" form:"customer_id"`
	Rating     *int          `json:"rating" form:"rating"`
	DateFrom   *time.Time    `json:"date_from" form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time    `json:"date_to" form:"date_to" time_format:"2006-01-02"`
	Search     string        `json:"search" form:"search"` // 评论内容模糊匹配
}

// ReviewListResponse 表示评价列表查询响应
type ReviewListResponse struct {
	Items      []*Review `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// ReviewStats 评价统计信息
type ReviewStats struct {
	Total         int64                  `json:"total"`
	AverageRating float64                `json:"average_rating"`
	CountByStatus map[ReviewStatus]int64 `json:"count_by_status"`
	CountByRating map[int]int64          `json:"count_by_rating"`
}
