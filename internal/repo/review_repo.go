package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lumistore/backoffice/internal/domain"
)

// ReviewRepository 定义评价数据访问接口
// 删除为软删除，已删除评价对全部查询不可见。
type ReviewRepository interface {
	Create(review *domain.Review) error
	GetByID(id int64) (*domain.Review, error)
	List(req *domain.ReviewListRequest) ([]*domain.Review, int64, error)
	UpdateStatus(id int64, status domain.ReviewStatus, flagReason string) error
	SetReply(id int64, reply string) error
	SoftDelete(id int64) error
	Stats() (*domain.ReviewStats, error)
}

// reviewRepo 实现ReviewRepository接口
type reviewRepo struct {
	db *sql.DB
}

// NewReviewRepository 创建评价仓储实例
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

const reviewColumns = "id, product_id, customer_id, rating, comment, status, reply, replied_at, flag_reason, created_at, updated_at"

func scanReview(row interface{ Scan(...any) error }) (*domain.Review, error) {
	rv := &domain.Review{}
	err := row.Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.CustomerID,
		&rv.Rating,
		&rv.Comment,
		&rv.Status,
		&rv.Reply,
		&rv.RepliedAt,
		&rv.FlagReason,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// Create 创建评价，初始状态为pending
func (r *reviewRepo) Create(review *domain.Review) error {
	result, err := r.db.Exec(`
		INSERT INTO reviews (product_id, customer_id, rating, comment, status)
		VALUES (?, ?, ?, ?, ?)
	`,
		review.ProductID,
		review.CustomerID,
		review.Rating,
		review.Comment,
		review.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get review id: %w", err)
	}
	review.ID = id
	return nil
}

// GetByID 根据ID获取评价（不含已软删除的记录）
func (r *reviewRepo) GetByID(id int64) (*domain.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = ? AND deleted_at IS NULL", reviewColumns)

	review, err := scanReview(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review by id: %w", err)
	}
	return review, nil
}

// List 获取评价列表
func (r *reviewRepo) List(req *domain.ReviewListRequest) ([]*domain.Review, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.ProductID != nil {
		conditions = append(conditions, "product_id = ?")
		args = append(args, *req.ProductID)
	}
	if req.CustomerID != nil {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, *req.CustomerID)
	}
	if req.Rating != nil {
		conditions = append(conditions, "rating = ?")
		args = append(args, *req.Rating)
	}
	if req.DateFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, req.DateTo.AddDate(0, 0, 1))
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		conditions = append(conditions, "comment LIKE ?")
		args = append(args, "%"+s+"%")
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reviews %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reviews %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, reviewColumns, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, total, rows.Err()
}

// UpdateStatus 更新评价审核状态
// 分类是扁平的：任意非删除评价可改为任意目标状态。
// flag_reason仅在传入非空原因时覆盖，普通改判不清除历史标记原因。
func (r *reviewRepo) UpdateStatus(id int64, status domain.ReviewStatus, flagReason string) error {
	result, err := r.db.Exec(`
		UPDATE reviews SET status = ?, flag_reason = COALESCE(NULLIF(?, ''), flag_reason), updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`, status, flagReason, id)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetReply 写入商家回复，每条评价只允许一条回复
func (r *reviewRepo) SetReply(id int64, reply string) error {
	result, err := r.db.Exec(`
		UPDATE reviews SET reply = ?, replied_at = NOW(), updated_at = NOW()
		WHERE id = ? AND reply IS NULL AND deleted_at IS NULL
	`, reply, id)
	if err != nil {
		return fmt.Errorf("failed to set review reply: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM reviews WHERE id = ? AND deleted_at IS NULL)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check review existence: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// SoftDelete 软删除评价
func (r *reviewRepo) SoftDelete(id int64) error {
	result, err := r.db.Exec(`
		UPDATE reviews SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats 获取评价统计信息
func (r *reviewRepo) Stats() (*domain.ReviewStats, error) {
	stats := &domain.ReviewStats{
		CountByStatus: make(map[domain.ReviewStatus]int64),
		CountByRating: make(map[int]int64),
	}

	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews WHERE deleted_at IS NULL
	`).Scan(&stats.Total, &stats.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats: %w", err)
	}

	statusRows, err := r.db.Query(`
		SELECT status, COUNT(*) FROM reviews
		WHERE deleted_at IS NULL
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews by status: %w", err)
	}
	defer statusRows.Close()

	for statusRows.Next() {
		var status domain.ReviewStatus
		var count int64
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	ratingRows, err := r.db.Query(`
		SELECT rating, COUNT(*) FROM reviews
		WHERE deleted_at IS NULL
		GROUP BY rating
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews by rating: %w", err)
	}
	defer ratingRows.Close()

	for ratingRows.Next() {
		var rating int
		var count int64
		if err := ratingRows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan rating count: %w", err)
		}
		stats.CountByRating[rating] = count
	}

	return stats, ratingRows.Err()
}
