package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/repo"
)

// CreateReviewRequest 表示创建评价请求（店面回填通道）
type CreateReviewRequest struct {
	ProductID  int64  `json:"product_id" binding:"required,gt=0"`
	CustomerID int64  `json:"customer_id" binding:"required,gt=0"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}

// ReviewService 定义评价审核服务接口
type ReviewService interface {
	Create(req *CreateReviewRequest) (*domain.Review, error)
	GetByID(id int64) (*domain.Review, error)
	List(req *domain.ReviewListRequest) (*domain.ReviewListResponse, error)
	UpdateStatus(id int64, req *domain.UpdateReviewStatusRequest) (*domain.Review, error)
	BulkUpdateStatus(req *domain.BulkReviewStatusRequest) []domain.BulkItemResult
	Reply(id int64, req *domain.ReplyReviewRequest) (*domain.Review, error)
	Flag(id int64, req *domain.FlagReviewRequest) (*domain.Review, error)
	Delete(id int64) error
	Stats() (*domain.ReviewStats, error)
}

// reviewService 是ReviewService接口的实现
type reviewService struct {
	reviewRepo  repo.ReviewRepository
	productRepo repo.ProductRepository
	logger      *zap.Logger
}

// NewReviewService 创建评价审核服务实例
func NewReviewService(reviewRepo repo.ReviewRepository, productRepo repo.ProductRepository, logger *zap.Logger) ReviewService {
	return &reviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// Create 创建评价，初始状态为pending
func (s *reviewService) Create(req *CreateReviewRequest) (*domain.Review, error) {
	if req.ProductID <= 0 || req.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: product and customer ids must be positive", domain.ErrValidation)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}

	// 确认商品存在
	if _, err := s.productRepo.GetByID(req.ProductID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ProductID:  req.ProductID,
		CustomerID: req.CustomerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Status:     domain.ReviewStatusPending,
	}
	if err := s.reviewRepo.Create(review); err != nil {
		return nil, err
	}

	return review, nil
}

// GetByID 根据ID获取评价
func (s *reviewService) GetByID(id int64) (*domain.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: review id must be positive", domain.ErrValidation)
	}
	return s.reviewRepo.GetByID(id)
}

// List 获取评价列表
func (s *reviewService) List(req *domain.ReviewListRequest) (*domain.ReviewListResponse, error) {
	req.Normalize()
	if req.Status != nil && !domain.ValidReviewStatus(string(*req.Status)) {
		return nil, fmt.Errorf("%w: unknown review status %q", domain.ErrValidation, *req.Status)
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}

	reviews, total, err := s.reviewRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.ReviewListResponse{
		Items:      reviews,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// UpdateStatus 审核评价
// 审核是扁平分类：任何非删除评价可直接置为approved/rejected/flagged，
// 重复设置同一状态为幂等操作。
func (s *reviewService) UpdateStatus(id int64, req *domain.UpdateReviewStatusRequest) (*domain.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: review id must be positive", domain.ErrValidation)
	}
	if !domain.ModeratableReviewStatus(req.Status) {
		return nil, fmt.Errorf("%w: status must be one of approved, rejected, flagged", domain.ErrValidation)
	}

	review, err := s.moderate(id, domain.ReviewStatus(req.Status), "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("review moderated",
		zap.Int64("review_id", id),
		zap.String("status", req.Status),
	)

	return review, nil
}

// moderate 执行一次审核写入
// 重复设置同一状态（且未携带新的标记原因）直接返回现有记录，不落库，
// 避免无变化的UPDATE被MySQL报作零行命中而误判为记录不存在。
func (s *reviewService) moderate(id int64, status domain.ReviewStatus, reason string) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if review.Status == status && (reason == "" || review.FlagReason == reason) {
		return review, nil
	}

	if err := s.reviewRepo.UpdateStatus(id, status, reason); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(id)
}

// BulkUpdateStatus 批量审核评价
// 单个条目失败不影响其余条目，结果逐项上报。
func (s *reviewService) BulkUpdateStatus(req *domain.BulkReviewStatusRequest) []domain.BulkItemResult {
	results := make([]domain.BulkItemResult, 0, len(req.IDs))

	if !domain.ModeratableReviewStatus(req.Status) {
		for _, id := range req.IDs {
			results = append(results, domain.BulkItemResult{
				ID:    id,
				Error: fmt.Sprintf("status must be one of approved, rejected, flagged, got %q", req.Status),
			})
		}
		return results
	}

	for _, id := range req.IDs {
		_, err := s.moderate(id, domain.ReviewStatus(req.Status), "")
		result := domain.BulkItemResult{ID: id, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// Reply 商家回复评价
// 每条评价只允许一条回复，重复回复返回ErrConflict；回复不改变审核状态。
func (s *reviewService) Reply(id int64, req *domain.ReplyReviewRequest) (*domain.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: review id must be positive", domain.ErrValidation)
	}
	if req.Reply == "" {
		return nil, fmt.Errorf("%w: reply must be non-empty", domain.ErrValidation)
	}

	if err := s.reviewRepo.SetReply(id, req.Reply); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(id)
}

// Flag 标记评价待人工复核
func (s *reviewService) Flag(id int64, req *domain.FlagReviewRequest) (*domain.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: review id must be positive", domain.ErrValidation)
	}

	review, err := s.moderate(id, domain.ReviewStatusFlagged, req.Reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("review flagged",
		zap.Int64("review_id", id),
		zap.String("reason", req.Reason),
	)

	return review, nil
}

// Delete 软删除评价
func (s *reviewService) Delete(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: review id must be positive", domain.ErrValidation)
	}
	return s.reviewRepo.SoftDelete(id)
}

// Stats 获取评价统计
func (s *reviewService) Stats() (*domain.ReviewStats, error) {
	return s.reviewRepo.Stats()
}
