// Package repo 实现库存数据访问层，负责与数据库的交互。
package repo

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lumistore/backoffice/internal/domain"
)

// InventoryRepository 定义库存数据访问接口
type InventoryRepository interface {
	// 基本操作
	Create(record *domain.InventoryRecord) error
	GetByVariantID(variantID int64) (*domain.InventoryRecord, error)
	UpdateThreshold(variantID int64, threshold int) error

	// 库存操作
	// 同一variant上的并发调整/预留由单行条件UPDATE串行化。
	AdjustStock(variantID int64, delta int, reason string) error
	Reserve(variantID int64, quantity int, token string) (*domain.Reservation, error)
	Release(token string) (*domain.Reservation, error)
	GetReservation(token string) (*domain.Reservation, error)

	// 查询操作
	List(req *domain.InventoryListRequest) ([]*domain.InventoryRecord, int64, error)
	ListLowStock(threshold *int) ([]*domain.InventoryRecord, error)
	Movements(variantID int64, limit int) ([]*domain.StockMovement, error)
	Stats() (*domain.InventoryStats, error)
}

// inventoryRepo 实现InventoryRepository接口
type inventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepository 创建库存仓储实例
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

const inventoryColumns = "id, variant_id, quantity, low_stock_threshold, version, created_at, updated_at"

func scanInventory(row interface{ Scan(...any) error }) (*domain.InventoryRecord, error) {
	rec := &domain.InventoryRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.VariantID,
		&rec.Quantity,
		&rec.LowStockThreshold,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create 创建库存台账
func (r *inventoryRepo) Create(record *domain.InventoryRecord) error {
	if record.LowStockThreshold <= 0 {
		record.LowStockThreshold = domain.DefaultLowStockThreshold
	}

	query := `
		INSERT INTO inventory (variant_id, quantity, low_stock_threshold)
		VALUES (?, ?, ?)
	`

	result, err := r.db.Exec(query, record.VariantID, record.Quantity, record.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("failed to create inventory record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetByVariantID 根据变体ID获取库存
func (r *inventoryRepo) GetByVariantID(variantID int64) (*domain.InventoryRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM inventory WHERE variant_id = ?", inventoryColumns)

	rec, err := scanInventory(r.db.QueryRow(query, variantID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory by variant id: %w", err)
	}
	return rec, nil
}

// UpdateThreshold 更新低库存阈值
func (r *inventoryRepo) UpdateThreshold(variantID int64, threshold int) error {
	query := `
		UPDATE inventory
		SET low_stock_threshold = ?, version = version + 1
		WHERE variant_id = ?
	`

	result, err := r.db.Exec(query, threshold, variantID)
	if err != nil {
		return fmt.Errorf("failed to update threshold: %w", err)
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

// AdjustStock 按增量调整库存
// delta为零时为幂等成功；会导致负库存的调整被整体拒绝。
func (r *inventoryRepo) AdjustStock(variantID int64, delta int, reason string) error {
	if delta == 0 {
		_, err := r.GetByVariantID(variantID)
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := adjustStockInTx(tx, variantID, delta); err != nil {
		return err
	}
	if err := insertMovementInTx(tx, variantID, delta, "adjust", reason); err != nil {
		return err
	}

	return tx.Commit()
}

// Reserve 预留库存：原子扣减并签发预留令牌
func (r *inventoryRepo) Reserve(variantID int64, quantity int, token string) (*domain.Reservation, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := adjustStockInTx(tx, variantID, -quantity); err != nil {
		return nil, err
	}

	result, err := tx.Exec(`
		INSERT INTO reservations (token, variant_id, quantity, status)
		VALUES (?, ?, ?, ?)
	`, token, variantID, quantity, domain.ReservationStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := insertMovementInTx(tx, variantID, -quantity, "reserve", "reservation "+token); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return &domain.Reservation{
		ID:        id,
		Token:     token,
		VariantID: variantID,
		Quantity:  quantity,
		Status:    domain.ReservationStatusActive,
		CreatedAt: time.Now(),
	}, nil
}

// Release 释放预留：令牌至多释放一次，重复释放不改变库存
func (r *inventoryRepo) Release(token string) (*domain.Reservation, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reservation, err := releaseReservationInTx(tx, token)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}
	return reservation, nil
}

// GetReservation 根据令牌获取预留
func (r *inventoryRepo) GetReservation(token string) (*domain.Reservation, error) {
	query := `
		SELECT id, token, variant_id, quantity, status, created_at, released_at
		FROM reservations
		WHERE token = ?
	`

	reservation := &domain.Reservation{}
	err := r.db.QueryRow(query, token).Scan(
		&reservation.ID,
		&reservation.Token,
		&reservation.VariantID,
		&reservation.Quantity,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ReleasedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return reservation, nil
}

// List 获取库存列表
func (r *inventoryRepo) List(req *domain.InventoryListRequest) ([]*domain.InventoryRecord, int64, error) {
	var conditions []string
	var args []any

	if req.VariantID != nil {
		conditions = append(conditions, "variant_id = ?")
		args = append(args, *req.VariantID)
	}
	if req.LowStock != nil && *req.LowStock {
		conditions = append(conditions, "quantity <= low_stock_threshold")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM inventory %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM inventory %s
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, inventoryColumns, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query inventory records: %w", err)
	}
	defer rows.Close()

	var records []*domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, rec)
	}

	return records, total, rows.Err()
}

// ListLowStock 获取低库存台账，按数量升序（最紧急优先）
// threshold为空时使用每行自身的low_stock_threshold。
func (r *inventoryRepo) ListLowStock(threshold *int) ([]*domain.InventoryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM inventory
		WHERE quantity <= COALESCE(?, low_stock_threshold)
		ORDER BY quantity ASC
	`, inventoryColumns)

	rows, err := r.db.Query(query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock records: %w", err)
	}
	defer rows.Close()

	var records []*domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Movements 获取变体的库存变动记录
func (r *inventoryRepo) Movements(variantID int64, limit int) ([]*domain.StockMovement, error) {
	query := `
		SELECT id, variant_id, delta, type, reason, created_at
		FROM stock_movements
		WHERE variant_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, variantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.StockMovement
	for rows.Next() {
		m := &domain.StockMovement{}
		if err := rows.Scan(&m.ID, &m.VariantID, &m.Delta, &m.Type, &m.Reason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}

	return movements, rows.Err()
}

// Stats 获取库存统计信息
func (r *inventoryRepo) Stats() (*domain.InventoryStats, error) {
	stats := &domain.InventoryStats{}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(quantity), 0),
		       COALESCE(SUM(quantity <= low_stock_threshold), 0),
		       COALESCE(SUM(quantity = 0), 0)
		FROM inventory
	`
	err := r.db.QueryRow(query).Scan(
		&stats.TotalVariants,
		&stats.TotalQuantity,
		&stats.LowStockVariants,
		&stats.OutOfStockVariants,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory stats: %w", err)
	}

	err = r.db.QueryRow(
		"SELECT COUNT(*) FROM reservations WHERE status = ?",
		domain.ReservationStatusActive,
	).Scan(&stats.ActiveReservations)
	if err != nil {
		return nil, fmt.Errorf("failed to count active reservations: %w", err)
	}

	return stats, nil
}

// 事务内的库存操作，供订单/预订单仓储复用。

// adjustStockInTx 条件UPDATE保证quantity恒非负：
// 不满足条件时0行受影响，调用方据此区分库存不足与记录缺失。
func adjustStockInTx(tx *sql.Tx, variantID int64, delta int) error {
	result, err := tx.Exec(`
		UPDATE inventory
		SET quantity = quantity + ?, version = version + 1
		WHERE variant_id = ? AND quantity + ? >= 0
	`, delta, variantID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock in tx: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM inventory WHERE variant_id = ?)", variantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check inventory existence: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// releaseReservationInTx 释放预留并归还库存
func releaseReservationInTx(tx *sql.Tx, token string) (*domain.Reservation, error) {
	result, err := tx.Exec(`
		UPDATE reservations
		SET status = ?, released_at = NOW()
		WHERE token = ? AND status = ?
	`, domain.ReservationStatusReleased, token, domain.ReservationStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to release reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		// 区分未知令牌与重复释放
		var status string
		err := tx.QueryRow("SELECT status FROM reservations WHERE token = ?", token).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, domain.ErrUnknownToken
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check reservation status: %w", err)
		}
		return nil, domain.ErrDoubleRelease
	}

	reservation := &domain.Reservation{}
	err = tx.QueryRow(`
		SELECT id, token, variant_id, quantity, status, created_at, released_at
		FROM reservations WHERE token = ?
	`, token).Scan(
		&reservation.ID,
		&reservation.Token,
		&reservation.VariantID,
		&reservation.Quantity,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ReleasedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load released reservation: %w", err)
	}

	if err := adjustStockInTx(tx, reservation.VariantID, reservation.Quantity); err != nil {
		return nil, err
	}
	if err := insertMovementInTx(tx, reservation.VariantID, reservation.Quantity, "release", "reservation "+token); err != nil {
		return nil, err
	}

	return reservation, nil
}

// insertMovementInTx 追加库存变动审计记录
func insertMovementInTx(tx *sql.Tx, variantID int64, delta int, movementType, reason string) error {
	_, err := tx.Exec(`
		INSERT INTO stock_movements (variant_id, delta, type, reason)
		VALUES (?, ?, ?, ?)
	`, variantID, delta, movementType, reason)
	if err != nil {
		return fmt.Errorf("failed to insert stock movement: %w", err)
	}
	return nil
}
