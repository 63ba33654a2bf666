// Package service 提供业务逻辑层实现。
// 服务层负责协调领域对象和仓储，实现具体的业务用例。
package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/mq"
	"github.com/lumistore/backoffice/internal/repo"
)

// InventoryService 定义库存服务接口
type InventoryService interface {
	GetByVariantID(variantID int64) (*domain.InventoryRecord, error)
	AdjustStock(variantID int64, req *domain.AdjustStockRequest) (*domain.InventoryRecord, error)
	BulkAdjust(req *domain.BulkAdjustRequest) []domain.BulkItemResult
	Reserve(req *domain.ReserveStockRequest) (*domain.Reservation, error)
	Release(req *domain.ReleaseStockRequest) (*domain.Reservation, error)
	UpdateThreshold(variantID int64, req *domain.UpdateInventoryRequest) (*domain.InventoryRecord, error)
	List(req *domain.InventoryListRequest) (*domain.InventoryListResponse, error)
	Alerts(threshold *int) ([]*domain.InventoryRecord, error)
	Movements(variantID int64, limit int) ([]*domain.StockMovement, error)
	Stats() (*domain.InventoryStats, error)
}

// inventoryService 是InventoryService接口的实现
type inventoryService struct {
	inventoryRepo repo.InventoryRepository
	notifier      mq.Notifier
	logger        *zap.Logger
}

// NewInventoryService 创建库存服务实例
func NewInventoryService(inventoryRepo repo.InventoryRepository, notifier mq.Notifier, logger *zap.Logger) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		notifier:      notifier,
		logger:        logger,
	}
}

// GetByVariantID 获取变体库存
func (s *inventoryService) GetByVariantID(variantID int64) (*domain.InventoryRecord, error) {
	if variantID <= 0 {
		return nil, fmt.Errorf("%w: variant id must be positive", domain.ErrValidation)
	}
	return s.inventoryRepo.GetByVariantID(variantID)
}

// AdjustStock 调整库存
// 业务规则：
// 1. delta为零时幂等成功，不产生变更
// 2. 会导致负库存的调整返回ErrInsufficientStock
// 3. 调整后低于阈值时发布低库存告警事件（尽力而为）
func (s *inventoryService) AdjustStock(variantID int64, req *domain.AdjustStockRequest) (*domain.InventoryRecord, error) {
	if variantID <= 0 {
		return nil, fmt.Errorf("%w: variant id must be positive", domain.ErrValidation)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}

	if err := s.inventoryRepo.AdjustStock(variantID, req.Delta, req.Reason); err != nil {
		return nil, err
	}

	record, err := s.inventoryRepo.GetByVariantID(variantID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.Int64("variant_id", variantID),
		zap.Int("delta", req.Delta),
		zap.Int("quantity", record.Quantity),
		zap.String("reason", req.Reason),
	)

	if req.Delta < 0 && record.IsLowStock() {
		s.notifier.LowStock(&mq.LowStockEvent{
			VariantID:  record.VariantID,
			Quantity:   record.Quantity,
			Threshold:  record.LowStockThreshold,
			OccurredAt: time.Now(),
		})
	}

	return record, nil
}

// BulkAdjust 批量调整库存
// 单个条目失败不影响其余条目，结果逐项上报。
func (s *inventoryService) BulkAdjust(req *domain.BulkAdjustRequest) []domain.BulkItemResult {
	results := make([]domain.BulkItemResult, 0, len(req.Updates))
	for _, item := range req.Updates {
		_, err := s.AdjustStock(item.VariantID, &domain.AdjustStockRequest{
			Delta:  item.Delta,
			Reason: item.Reason,
		})
		result := domain.BulkItemResult{ID: item.VariantID, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// Reserve 预留库存并签发令牌
func (s *inventoryService) Reserve(req *domain.ReserveStockRequest) (*domain.Reservation, error) {
	if req.VariantID <= 0 || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: variant id and quantity must be positive", domain.ErrValidation)
	}

	token := uuid.NewString()
	reservation, err := s.inventoryRepo.Reserve(req.VariantID, req.Quantity, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock reserved",
		zap.Int64("variant_id", req.VariantID),
		zap.Int("quantity", req.Quantity),
		zap.String("token", token),
	)

	return reservation, nil
}

// Release 释放预留
// 重复释放与未知令牌属于调用方契约违规，记录error级日志。
func (s *inventoryService) Release(req *domain.ReleaseStockRequest) (*domain.Reservation, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("%w: token is required", domain.ErrValidation)
	}

	reservation, err := s.inventoryRepo.Release(req.Token)
	if err != nil {
		if err == domain.ErrDoubleRelease || err == domain.ErrUnknownToken {
			s.logger.Error("reservation release contract violation",
				zap.String("token", req.Token),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("reservation released",
		zap.String("token", req.Token),
		zap.Int64("variant_id", reservation.VariantID),
		zap.Int("quantity", reservation.Quantity),
	)

	return reservation, nil
}

// UpdateThreshold 更新低库存阈值
func (s *inventoryService) UpdateThreshold(variantID int64, req *domain.UpdateInventoryRequest) (*domain.InventoryRecord, error) {
	if variantID <= 0 {
		return nil, fmt.Errorf("%w: variant id must be positive", domain.ErrValidation)
	}
	if req.LowStockThreshold == nil || *req.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: low stock threshold must be non-negative", domain.ErrValidation)
	}

	if err := s.inventoryRepo.UpdateThreshold(variantID, *req.LowStockThreshold); err != nil {
		return nil, err
	}
	return s.inventoryRepo.GetByVariantID(variantID)
}

// List 获取库存列表
func (s *inventoryService) List(req *domain.InventoryListRequest) (*domain.InventoryListResponse, error) {
	req.Normalize()

	records, total, err := s.inventoryRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.InventoryListResponse{
		Items:      records,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// Alerts 获取低库存告警列表
func (s *inventoryService) Alerts(threshold *int) ([]*domain.InventoryRecord, error) {
	if threshold != nil && *threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must be non-negative", domain.ErrValidation)
	}
	return s.inventoryRepo.ListLowStock(threshold)
}

// Movements 获取库存变动记录
func (s *inventoryService) Movements(variantID int64, limit int) ([]*domain.StockMovement, error) {
	if variantID <= 0 {
		return nil, fmt.Errorf("%w: variant id must be positive", domain.ErrValidation)
	}
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}
	return s.inventoryRepo.Movements(variantID, limit)
}

// Stats 获取库存统计
func (s *inventoryService) Stats() (*domain.InventoryStats, error) {
	return s.inventoryRepo.Stats()
}
