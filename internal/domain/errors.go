// Package domain 定义后台管理系统的业务领域模型和核心业务规则。
// 领域模型是业务逻辑的核心，独立于外部依赖（数据库、HTTP等）。
package domain

import (
	"errors"
	"fmt"
)

// 业务错误集合。API层通过errors.Is/As映射为HTTP状态码。
var (
	// ErrValidation 输入校验失败（缺少必填字段、数值越界等）
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("not found")

	// ErrConflict 并发修改冲突（乐观锁版本不匹配、重复创建等）
	ErrConflict = errors.New("conflict")

	// ErrInsufficientStock 库存不足，任何会导致库存为负的操作都返回该错误
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDoubleRelease 预留令牌重复释放，属于调用方契约违规
	ErrDoubleRelease = errors.New("reservation already released")

	// ErrUnknownToken 预留令牌不存在，属于调用方契约违规
	ErrUnknownToken = errors.New("unknown reservation token")
)

// InvalidTransitionError 表示不允许的状态迁移
// 携带当前状态与目标状态，便于调用方展示。
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// NewInvalidTransition 构造状态迁移错误
func NewInvalidTransition(entity, from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, From: from, To: to}
}
