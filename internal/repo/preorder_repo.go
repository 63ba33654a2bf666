package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lumistore/backoffice/internal/domain"
)

// PreorderRepository 定义预订单数据访问接口
type PreorderRepository interface {
	Create(preorder *domain.Preorder) error
	GetByID(id int64) (*domain.Preorder, error)
	List(req *domain.PreorderListRequest) ([]*domain.Preorder, int64, error)

	// UpdateStatus 带from守卫的状态更新，0行受影响时区分ErrNotFound与ErrConflict
	UpdateStatus(id int64, from, to domain.PreorderStatus) error

	// Convert 在单个事务内完成预订单到订单的转换：
	// 条件扣减库存、插入订单及行项目与时间线、守卫式更新预订单为converted。
	// 任一步失败整体回滚，预订单保持原状态。
	Convert(preorder *domain.Preorder, order *domain.Order) error

	CountByStatus() (map[domain.PreorderStatus]int64, error)
}

// preorderRepo 实现PreorderRepository接口
type preorderRepo struct {
	db *sql.DB
}

// NewPreorderRepository 创建预订单仓储实例
func NewPreorderRepository(db *sql.DB) PreorderRepository {
	return &preorderRepo{db: db}
}

const preorderColumns = "id, customer_id, product_id, variant_id, quantity, deposit_amount, status, converted_order_id, created_at, updated_at"

func scanPreorder(row interface{ Scan(...any) error }) (*domain.Preorder, error) {
	p := &domain.Preorder{}
	err := row.Scan(
		&p.ID,
		&p.CustomerID,
		&p.ProductID,
		&p.VariantID,
		&p.Quantity,
		&p.DepositAmount,
		&p.Status,
		&p.ConvertedOrderID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create 创建预订单
func (r *preorderRepo) Create(preorder *domain.Preorder) error {
	result, err := r.db.Exec(`
		INSERT INTO preorders (customer_id, product_id, variant_id, quantity, deposit_amount, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		preorder.CustomerID,
		preorder.ProductID,
		preorder.VariantID,
		preorder.Quantity,
		preorder.DepositAmount,
		preorder.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert preorder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get preorder id: %w", err)
	}
	preorder.ID = id
	return nil
}

// GetByID 根据ID获取预订单
func (r *preorderRepo) GetByID(id int64) (*domain.Preorder, error) {
	query := fmt.Sprintf("SELECT %s FROM preorders WHERE id = ?", preorderColumns)

	preorder, err := scanPreorder(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preorder by id: %w", err)
	}
	return preorder, nil
}

// List 获取预订单列表
func (r *preorderRepo) List(req *domain.PreorderListRequest) ([]*domain.Preorder, int64, error) {
	var conditions []string
	var args []any

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.CustomerID != nil {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, *req.CustomerID)
	}
	if req.ProductID != nil {
		conditions = append(conditions, "product_id = ?")
		args = append(args, *req.ProductID)
	}
	if req.DateFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, req.DateTo.AddDate(0, 0, 1))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM preorders %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count preorders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM preorders %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, preorderColumns, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query preorders: %w", err)
	}
	defer rows.Close()

	var preorders []*domain.Preorder
	for rows.Next() {
		preorder, err := scanPreorder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan preorder: %w", err)
		}
		preorders = append(preorders, preorder)
	}

	return preorders, total, rows.Err()
}

// UpdateStatus 带守卫的状态更新
func (r *preorderRepo) UpdateStatus(id int64, from, to domain.PreorderStatus) error {
	result, err := r.db.Exec(`
		UPDATE preorders SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?
	`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update preorder status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM preorders WHERE id = ?)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check preorder existence: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// Convert 预订单转订单，单事务全有或全无
func (r *preorderRepo) Convert(preorder *domain.Preorder, order *domain.Order) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 条件扣减：库存不足时转换整体失败
	if err := adjustStockInTx(tx, preorder.VariantID, -preorder.Quantity); err != nil {
		return err
	}
	if err := insertMovementInTx(tx, preorder.VariantID, -preorder.Quantity, "conversion",
		fmt.Sprintf("preorder %d converted", preorder.ID)); err != nil {
		return err
	}

	if err := insertOrderInTx(tx, order); err != nil {
		return err
	}

	result, err := tx.Exec(`
		UPDATE preorders SET status = ?, converted_order_id = ?, updated_at = NOW()
		WHERE id = ? AND status = ? AND converted_order_id IS NULL
	`, domain.PreorderStatusConverted, order.ID, preorder.ID, preorder.Status)
	if err != nil {
		return fmt.Errorf("failed to mark preorder converted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		// 并发转换或状态已被他人修改
		return domain.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversion: %w", err)
	}

	preorder.Status = domain.PreorderStatusConverted
	preorder.ConvertedOrderID = &order.ID
	return nil
}

// CountByStatus 按状态统计预订单数量
func (r *preorderRepo) CountByStatus() (map[domain.PreorderStatus]int64, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM preorders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count preorders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.PreorderStatus]int64)
	for rows.Next() {
		var status domain.PreorderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
