package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lumistore/backoffice/internal/domain"
	"github.com/lumistore/backoffice/internal/repo"
	"github.com/lumistore/backoffice/internal/vision"
)

// ProductService 定义商品服务接口
type ProductService interface {
	Create(req *domain.CreateProductRequest) (*domain.Product, error)
	GetByID(id int64) (*domain.Product, error)
	Update(id int64, req *domain.UpdateProductRequest) (*domain.Product, error)
	Delete(id int64) error
	List(req *domain.ProductListRequest) (*domain.ProductListResponse, error)
	Variants(productID int64) ([]*domain.ProductVariant, error)

	// SimilarProducts 以图搜商品：外部识别服务解析标签，按标签检索现存商品。
	// 未配置识别服务时整个功能不可用。
	SimilarProducts(ctx context.Context, req *domain.SimilarProductsRequest) (*domain.SimilarProductsResponse, error)
}

// productService 是ProductService接口的实现
type productService struct {
	productRepo  repo.ProductRepository
	visionClient vision.Client
	logger       *zap.Logger
}

// NewProductService 创建商品服务实例
// visionClient为nil时以图搜商品功能不可用。
func NewProductService(productRepo repo.ProductRepository, visionClient vision.Client, logger *zap.Logger) ProductService {
	return &productService{
		productRepo:  productRepo,
		visionClient: visionClient,
		logger:       logger,
	}
}

// Create 创建商品及其变体
// 每个变体同步创建库存台账，初始库存计入变动审计。
func (s *productService) Create(req *domain.CreateProductRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}

	seen := make(map[string]bool, len(req.Variants))
	for _, v := range req.Variants {
		if strings.TrimSpace(v.SKU) == "" {
			return nil, fmt.Errorf("%w: variant sku is required", domain.ErrValidation)
		}
		if seen[v.SKU] {
			return nil, fmt.Errorf("%w: duplicate sku %q", domain.ErrValidation, v.SKU)
		}
		seen[v.SKU] = true
		if v.InitialStock < 0 {
			return nil, fmt.Errorf("%w: initial stock must be non-negative", domain.ErrValidation)
		}
		if v.Price != nil && *v.Price <= 0 {
			return nil, fmt.Errorf("%w: variant price must be positive", domain.ErrValidation)
		}
	}

	product := &domain.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		Status:      domain.ProductStatusActive,
		ImageURL:    req.ImageURL,
	}

	variants := make([]*domain.ProductVariant, 0, len(req.Variants))
	initialStocks := make([]int, 0, len(req.Variants))
	thresholds := make([]*int, 0, len(req.Variants))
	for _, v := range req.Variants {
		variants = append(variants, &domain.ProductVariant{
			SKU:   v.SKU,
			Color: v.Color,
			Size:  v.Size,
			Price: v.Price,
		})
		initialStocks = append(initialStocks, v.InitialStock)
		thresholds = append(thresholds, v.LowStockThreshold)
	}

	if err := s.productRepo.Create(product, variants, initialStocks, thresholds); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int("variants", len(variants)),
	)

	return product, nil
}

// GetByID 根据ID获取商品
func (s *productService) GetByID(id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrValidation)
	}
	return s.productRepo.GetByID(id)
}

// Update 部分更新商品
func (s *productService) Update(id int64, req *domain.UpdateProductRequest) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrValidation)
	}
	if req.Price != nil && *req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if req.Status != nil {
		switch *req.Status {
		case domain.ProductStatusActive, domain.ProductStatusInactive:
		default:
			return nil, fmt.Errorf("%w: status must be active or inactive", domain.ErrValidation)
		}
	}

	if err := s.productRepo.Update(id, req); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(id)
}

// Delete 软删除商品
func (s *productService) Delete(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: product id must be positive", domain.ErrValidation)
	}
	return s.productRepo.SoftDelete(id)
}

// List 获取商品列表
func (s *productService) List(req *domain.ProductListRequest) (*domain.ProductListResponse, error) {
	req.Normalize()

	products, total, err := s.productRepo.List(req)
	if err != nil {
		return nil, err
	}

	return &domain.ProductListResponse{
		Items:      products,
		Total:      total,
		Page:       req.Page,
		TotalPages: domain.TotalPages(total, req.Limit),
	}, nil
}

// Variants 获取商品的全部变体
func (s *productService) Variants(productID int64) ([]*domain.ProductVariant, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrValidation)
	}
	if _, err := s.productRepo.GetByID(productID); err != nil {
		return nil, err
	}
	return s.productRepo.ListVariantsByProductID(productID)
}

// SimilarProducts 以图搜商品
// 只返回现存商品；识别结果为空时返回空集而不是错误。
func (s *productService) SimilarProducts(ctx context.Context, req *domain.SimilarProductsRequest) (*domain.SimilarProductsResponse, error) {
	if s.visionClient == nil {
		return nil, fmt.Errorf("%w: vision service is not configured", domain.ErrValidation)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, fmt.Errorf("%w: image url is required", domain.ErrValidation)
	}
	limit := req.Limit
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}

	tags, err := s.visionClient.Tags(ctx, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("classify image: %w", err)
	}

	response := &domain.SimilarProductsResponse{Tags: tags, Products: []*domain.Product{}}
	if len(tags) == 0 {
		return response, nil
	}

	products, err := s.productRepo.SearchByTags(tags, limit)
	if err != nil {
		return nil, err
	}
	if products != nil {
		response.Products = products
	}

	s.logger.Debug("similar products search",
		zap.Strings("tags", tags),
		zap.Int("matches", len(response.Products)),
	)

	return response, nil
}
