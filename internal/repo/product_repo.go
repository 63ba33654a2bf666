package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lumistore/backoffice/internal/domain"
)

// ProductRepository 定义商品数据访问接口
type ProductRepository interface {
	// Create 创建商品及其变体，并为每个变体初始化库存台账，单事务执行
	Create(product *domain.Product, variants []*domain.ProductVariant, initialStocks []int, thresholds []*int) error
	GetByID(id int64) (*domain.Product, error)
	Update(id int64, req *domain.UpdateProductRequest) error
	SoftDelete(id int64) error
	List(req *domain.ProductListRequest) ([]*domain.Product, int64, error)
	GetVariantByID(id int64) (*domain.ProductVariant, error)
	ListVariantsByProductID(productID int64) ([]*domain.ProductVariant, error)

	// SearchByTags 按标签对名称/品牌/描述做模糊匹配，用于以图搜商品
	SearchByTags(tags []string, limit int) ([]*domain.Product, error)
}

// productRepo 实现ProductRepository接口
type productRepo struct {
	db *sql.DB
}

// NewProductRepository 创建商品仓储实例
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = "id, name, description, price, brand, status, image_url, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Brand,
		&p.Status,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create 创建商品、变体及库存台账
func (r *productRepo) Create(product *domain.Product, variants []*domain.ProductVariant, initialStocks []int, thresholds []*int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO products (name, description, price, brand, status, image_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		product.Name,
		product.Description,
		product.Price,
		product.Brand,
		product.Status,
		product.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	productID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product id: %w", err)
	}
	product.ID = productID

	for i, variant := range variants {
		variant.ProductID = productID
		variantResult, err := tx.Exec(`
			INSERT INTO product_variants (product_id, sku, color, size, price)
			VALUES (?, ?, ?, ?, ?)
		`, productID, variant.SKU, variant.Color, variant.Size, variant.Price)
		if err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}

		variantID, err := variantResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get variant id: %w", err)
		}
		variant.ID = variantID

		threshold := domain.DefaultLowStockThreshold
		if thresholds[i] != nil {
			threshold = *thresholds[i]
		}
		_, err = tx.Exec(`
			INSERT INTO inventory (variant_id, quantity, low_stock_threshold, version)
			VALUES (?, ?, ?, 0)
		`, variantID, initialStocks[i], threshold)
		if err != nil {
			return fmt.Errorf("failed to insert inventory record: %w", err)
		}

		if initialStocks[i] > 0 {
			if err := insertMovementInTx(tx, variantID, initialStocks[i], "initial", "initial stock"); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetByID 根据ID获取商品（不含已删除）
func (r *productRepo) GetByID(id int64) (*domain.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE id = ? AND status != ?", productColumns)

	product, err := scanProduct(r.db.QueryRow(query, id, domain.ProductStatusDeleted))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}
	return product, nil
}

// Update 部分更新商品字段，仅更新请求中非空的字段
func (r *productRepo) Update(id int64, req *domain.UpdateProductRequest) error {
	var sets []string
	var args []any

	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *req.Description)
	}
	if req.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *req.Price)
	}
	if req.Brand != nil {
		sets = append(sets, "brand = ?")
		args = append(args, *req.Brand)
	}
	if req.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *req.Status)
	}
	if req.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *req.ImageURL)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE products SET %s
		WHERE id = ? AND status != ?
	`, strings.Join(sets, ", "))
	args = append(args, id, domain.ProductStatusDeleted)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
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

// SoftDelete 软删除商品（状态标记为deleted）
func (r *productRepo) SoftDelete(id int64) error {
	result, err := r.db.Exec(`
		UPDATE products SET status = ?, updated_at = NOW()
		WHERE id = ? AND status != ?
	`, domain.ProductStatusDeleted, id, domain.ProductStatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
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

// List 获取商品列表
func (r *productRepo) List(req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	conditions := []string{"status != ?"}
	args := []any{domain.ProductStatusDeleted}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.Brand != nil {
		conditions = append(conditions, "brand = ?")
		args = append(args, *req.Brand)
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		conditions = append(conditions, "(name LIKE ? OR brand LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM products %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, productColumns, where)

	args = append(args, req.Limit, req.Offset())
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, total, rows.Err()
}

// GetVariantByID 根据ID获取商品变体
func (r *productRepo) GetVariantByID(id int64) (*domain.ProductVariant, error) {
	v := &domain.ProductVariant{}
	err := r.db.QueryRow(`
		SELECT id, product_id, sku, color, size, price, created_at, updated_at
		FROM product_variants WHERE id = ?
	`, id).Scan(&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size, &v.Price, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant by id: %w", err)
	}
	return v, nil
}

// ListVariantsByProductID 获取商品的全部变体
func (r *productRepo) ListVariantsByProductID(productID int64) ([]*domain.ProductVariant, error) {
	rows, err := r.db.Query(`
		SELECT id, product_id, sku, color, size, price, created_at, updated_at
		FROM product_variants WHERE product_id = ?
		ORDER BY id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []*domain.ProductVariant
	for rows.Next() {
		v := &domain.ProductVariant{}
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size, &v.Price, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

// SearchByTags 按标签检索商品
func (r *productRepo) SearchByTags(tags []string, limit int) ([]*domain.Product, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	var conditions []string
	args := []any{domain.ProductStatusDeleted}
	for _, tag := range tags {
		conditions = append(conditions, "(name LIKE ? OR brand LIKE ? OR description LIKE ?)")
		pattern := "%" + tag + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE status != ? AND (%s)
		ORDER BY created_at DESC
		LIMIT ?
	`, productColumns, strings.Join(conditions, " OR "))
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products by tags: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}
