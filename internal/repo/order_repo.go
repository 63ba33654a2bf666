// Package repo 实现订单数据访问层，负责与数据库的交互。
package repo

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lumistore/backoffice/internal/domain"
)

// OrderRepository 定义订单数据访问接口
// 订单从不物理删除：取消/退款均通过状态迁移表达。
type OrderRepository interface {
	Create(order *domain.Order) error
	GetByID(id int64) (*domain.Order, error)
	GetByOrderNumber(orderNumber string) (*domain.Order, error)
	List(req *domain.OrderListRequest) ([]*domain.Order, int64, error)
	Recent(limit int) ([]*domain.Order, error)
	Timeline(orderID int64) ([]*domain.TimelineEvent, error)

	// TransitionStatus 在单个事务内完成：带守卫的状态更新、时间线追加、
	// 以及取消/送达时的库存副作用。from守卫失败返回ErrConflict。
	TransitionStatus(orderID int64, from, to domain.OrderStatus, note string) error

	Stats(from, to *time.Time) (*domain.OrderStats, error)
}

// orderRepo 实现OrderRepository接口
type orderRepo struct {
	db *sql.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = "id, order_number, customer_id, status, subtotal, shipping_cost, tax, discount, deposit_applied, total, created_at, updated_at"

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Status,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Discount,
		&o.DepositApplied,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create 创建订单（含行项目与首条时间线事件），单事务执行
func (r *orderRepo) Create(order *domain.Order) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderInTx(tx, order); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID 根据ID获取订单（含行项目）
func (r *orderRepo) GetByID(id int64) (*domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = ?", orderColumns)

	order, err := scanOrder(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order by id: %w", err)
	}

	items, err := r.loadItems(order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// GetByOrderNumber 根据订单号获取订单（含行项目）
func (r *orderRepo) GetByOrderNumber(orderNumber string) (*domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE order_number = ?", orderColumns)

	order, err := scanOrder(r.db.QueryRow(query, orderNumber))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}

	items, err := r.loadItems(order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// List 获取订单列表
// 过滤字段为白名单：状态、客户、日期范围、订单号/客户邮箱模糊匹配。
func (r *orderRepo) List(req *domain.OrderListRequest) ([]*domain.Order, int64, error) {
	var conditions []string
	var args []any

	if req.Status != nil {
		conditions = append(conditions, "o.status = ?")
		args = append(args, *req.Status)
	}
	if req.CustomerID != nil {
		conditions = append(conditions, "o.customer_id = ?")
		args = append(args, *req.CustomerID)
	}
	if req.DateFrom != nil {
		conditions = append(conditions, "o.created_at >= ?")
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		conditions = append(conditions, "o.created_at < ?")
		args = append(args, req.DateTo.AddDate(0, 0, 1))
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		conditions = append(conditions, "(o.order_number LIKE ? OR c.email LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	join := "LEFT JOIN customers c ON o.customer_id = c.id"

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders o %s %s", join, where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.customer_id, o.status, o.subtotal, o.shipping_cost,
		       o.tax, o.discount, o.deposit_applied, o.total, o.created_at, o.updated_at
		FROM orders o %s %s
		ORDER BY o.created_at DESC
		LIMIT ? OFFSET ?
	`, join, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, total, rows.Err()
}

// Recent 获取最近的订单
func (r *orderRepo) Recent(limit int) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		ORDER BY created_at DESC
		LIMIT ?
	`, orderColumns)

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Timeline 获取订单时间线（只增不改，按发生顺序返回）
func (r *orderRepo) Timeline(orderID int64) ([]*domain.TimelineEvent, error) {
	query := `
		SELECT id, order_id, status, note, created_at
		FROM order_timeline
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order timeline: %w", err)
	}
	defer rows.Close()

	var events []*domain.TimelineEvent
	for rows.Next() {
		e := &domain.TimelineEvent{}
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// TransitionStatus 执行状态迁移
// from守卫实现单行read-modify-write原子性：并发修改导致0行受影响时返回ErrConflict。
func (r *orderRepo) TransitionStatus(orderID int64, from, to domain.OrderStatus, note string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?
	`, to, orderID, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)", orderID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}

	if err := appendTimelineInTx(tx, orderID, to, note); err != nil {
		return err
	}

	switch to {
	case domain.OrderStatusCancelled:
		if err := r.restockItemsInTx(tx, orderID); err != nil {
			return err
		}
	case domain.OrderStatusDelivered:
		if err := r.consumeItemReservationsInTx(tx, orderID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Stats 获取订单统计信息
func (r *orderRepo) Stats(from, to *time.Time) (*domain.OrderStats, error) {
	var conditions []string
	var args []any
	if from != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, to.AddDate(0, 0, 1))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	stats := &domain.OrderStats{CountByStatus: make(map[domain.OrderStatus]int64)}

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status NOT IN ('cancelled', 'refunded') THEN total ELSE 0 END), 0)
		FROM orders %s
	`, where)
	if err := r.db.QueryRow(query, args...).Scan(&stats.TotalOrders, &stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to get order stats: %w", err)
	}

	byStatusQuery := fmt.Sprintf("SELECT status, COUNT(*) FROM orders %s GROUP BY status", where)
	rows, err := r.db.Query(byStatusQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
	}

	return stats, rows.Err()
}

// loadItems 加载订单行项目
func (r *orderRepo) loadItems(orderID int64) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, variant_id, quantity, unit_price, reservation_token
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.Quantity, &item.UnitPrice, &item.ReservationToken); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// restockItemsInTx 取消订单时回补库存
// 持有预留令牌的行项目释放令牌，其余按数量直接回补。
func (r *orderRepo) restockItemsInTx(tx *sql.Tx, orderID int64) error {
	rows, err := tx.Query(`
		SELECT variant_id, quantity, reservation_token
		FROM order_items WHERE order_id = ?
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to query items for restock: %w", err)
	}

	type restockItem struct {
		variantID int64
		quantity  int
		token     *string
	}
	var items []restockItem
	for rows.Next() {
		var it restockItem
		if err := rows.Scan(&it.variantID, &it.quantity, &it.token); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan item for restock: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, it := range items {
		if it.token != nil {
			if _, err := releaseReservationInTx(tx, *it.token); err != nil {
				return err
			}
			continue
		}
		if err := adjustStockInTx(tx, it.variantID, it.quantity); err != nil {
			return err
		}
		if err := insertMovementInTx(tx, it.variantID, it.quantity, "restock", fmt.Sprintf("order %d cancelled", orderID)); err != nil {
			return err
		}
	}

	return nil
}

// consumeItemReservationsInTx 订单送达后将行项目的预留标记为已消费
func (r *orderRepo) consumeItemReservationsInTx(tx *sql.Tx, orderID int64) error {
	_, err := tx.Exec(`
		UPDATE reservations r
		JOIN order_items oi ON oi.reservation_token = r.token
		SET r.status = ?
		WHERE oi.order_id = ? AND r.status = ?
	`, domain.ReservationStatusConsumed, orderID, domain.ReservationStatusActive)
	if err != nil {
		return fmt.Errorf("failed to consume reservations: %w", err)
	}
	return nil
}

// insertOrderInTx 在事务内插入订单、行项目与首条时间线事件
// 供本仓储与预订单转换事务复用。
func insertOrderInTx(tx *sql.Tx, order *domain.Order) error {
	result, err := tx.Exec(`
		INSERT INTO orders (order_number, customer_id, status, subtotal, shipping_cost, tax, discount, deposit_applied, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.OrderNumber,
		order.CustomerID,
		order.Status,
		order.Subtotal,
		order.ShippingCost,
		order.Tax,
		order.Discount,
		order.DepositApplied,
		order.Total,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order id: %w", err)
	}
	order.ID = orderID

	for _, item := range order.Items {
		item.OrderID = orderID
		itemResult, err := tx.Exec(`
			INSERT INTO order_items (order_id, variant_id, quantity, unit_price, reservation_token)
			VALUES (?, ?, ?, ?, ?)
		`, orderID, item.VariantID, item.Quantity, item.UnitPrice, item.ReservationToken)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		itemID, err := itemResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get item id: %w", err)
		}
		item.ID = itemID
	}

	return appendTimelineInTx(tx, orderID, order.Status, "order created")
}

// appendTimelineInTx 追加时间线事件
func appendTimelineInTx(tx *sql.Tx, orderID int64, status domain.OrderStatus, note string) error {
	_, err := tx.Exec(`
		INSERT INTO order_timeline (order_id, status, note)
		VALUES (?, ?, ?)
	`, orderID, status, note)
	if err != nil {
		return fmt.Errorf("failed to append timeline event: %w", err)
	}
	return nil
}
