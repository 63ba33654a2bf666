// Package repo 提供带缓存的商品仓储实现
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/lumistore/backoffice/internal/cache"
	"github.com/lumistore/backoffice/internal/domain"
)

// CachedProductRepository 带缓存的商品仓储
// 装饰底层仓储：单条读取走缓存，写操作透传并清除相关键。
type CachedProductRepository struct {
	repo  ProductRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProductRepository 创建带缓存的商品仓储
func NewCachedProductRepository(repo ProductRepository, cache cache.Cache, ttl time.Duration) ProductRepository {
	return &CachedProductRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Create 创建商品（透传，新商品无旧缓存）
func (r *CachedProductRepository) Create(product *domain.Product, variants []*domain.ProductVariant, initialStocks []int, thresholds []*int) error {
	return r.repo.Create(product, variants, initialStocks, thresholds)
}

// GetByID 根据ID获取商品（带缓存）
func (r *CachedProductRepository) GetByID(id int64) (*domain.Product, error) {
	ctx := context.Background()
	cacheKey := r.productCacheKey(id)

	// 尝试从缓存获取
	var product domain.Product
	if err := r.cache.Get(ctx, cacheKey, &product); err == nil {
		return &product, nil
	}

	// 缓存未命中，从数据库获取
	result, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	// 写入缓存，失败不影响主流程
	r.cache.Set(ctx, cacheKey, result, r.ttl)

	return result, nil
}

// Update 更新商品（清除相关缓存）
func (r *CachedProductRepository) Update(id int64, req *domain.UpdateProductRequest) error {
	if err := r.repo.Update(id, req); err != nil {
		return err
	}

	r.cache.Del(context.Background(), r.productCacheKey(id))
	return nil
}

// SoftDelete 删除商品（清除相关缓存）
func (r *CachedProductRepository) SoftDelete(id int64) error {
	if err := r.repo.SoftDelete(id); err != nil {
		return err
	}

	r.cache.Del(context.Background(), r.productCacheKey(id))
	return nil
}

// List 获取商品列表（不缓存，因为参数组合太多）
func (r *CachedProductRepository) List(req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	return r.repo.List(req)
}

// GetVariantByID 根据ID获取商品变体（带缓存）
func (r *CachedProductRepository) GetVariantByID(id int64) (*domain.ProductVariant, error) {
	ctx := context.Background()
	cacheKey := r.variantCacheKey(id)

	var variant domain.ProductVariant
	if err := r.cache.Get(ctx, cacheKey, &variant); err == nil {
		return &variant, nil
	}

	result, err := r.repo.GetVariantByID(id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, cacheKey, result, r.ttl)

	return result, nil
}

// ListVariantsByProductID 获取商品的全部变体（不缓存）
func (r *CachedProductRepository) ListVariantsByProductID(productID int64) ([]*domain.ProductVariant, error) {
	return r.repo.ListVariantsByProductID(productID)
}

// SearchByTags 按标签检索商品（不缓存，标签组合太多）
func (r *CachedProductRepository) SearchByTags(tags []string, limit int) ([]*domain.Product, error) {
	return r.repo.SearchByTags(tags, limit)
}

// 缓存键生成方法
func (r *CachedProductRepository) productCacheKey(id int64) string {
	return fmt.Sprintf("product:id:%d", id)
}

func (r *CachedProductRepository) variantCacheKey(id int64) string {
	return fmt.Sprintf("variant:id:%d", id)
}
