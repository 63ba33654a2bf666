package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lumistore/backoffice/internal/domain"
)

// CustomerRepository 定义客户数据访问接口（后台只读）
type CustomerRepository interface {
	GetByID(id int64) (*domain.Customer, error)
	List(req *domain.CustomerListRequest) ([]*domain.Customer, int64, error)
	Count() (int64, error)
}

// customerRepo 实现CustomerRepository接口
type customerRepo struct {
	db *sql.DB
}

// NewCustomerRepository 创建客户仓储实例
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepo{db: db}
}

// GetByID 根据ID获取客户
func (r *customerRepo) GetByID(id int64) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRow(`
		SELECT id, name, email, phone, created_at, updated_at
		FROM customers WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by id: %w", err)
	}
	return c, nil
}

// List 获取客户列表
func (r *customerRepo) List(req *domain.CustomerListRequest) ([]*domain.Customer, int64, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(req.Search); s != "" {
		where = "WHERE (name LIKE ? OR email LIKE ?)"
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, email, phone, created_at, updated_at
		FROM customers %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		c := &domain.Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, total, rows.Err()
}

// Count 统计客户总数
func (r *customerRepo) Count() (int64, error) {
	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return total, nil
}
