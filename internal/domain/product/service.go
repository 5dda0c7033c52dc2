// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a product has vanished from the catalog.
var ErrNotFound = errors.New("product not found")

// Service is the read surface of the catalog. Price, quantity and existence
// are all this side of the system ever needs; catalog CRUD lives elsewhere.
type Service struct {
	db *gorm.DB
}

// NewService creates a new catalog read service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListRequest represents product list query parameters
type ListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
}

// GetProduct retrieves an active product by id.
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var prod Product
	result := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}
	return &prod, nil
}

// GetProducts retrieves products by id in a single batched query. Missing ids
// are simply absent from the result map; callers decide how to treat them.
func (s *Service) GetProducts(ctx context.Context, ids []uint) (map[uint]*Product, error) {
	products := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var rows []Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}

// ListProducts retrieves active products with pagination for the storefront.
func (s *Service) ListProducts(ctx context.Context, req *ListRequest) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{}).Where("is_active = ?", true)

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Search != "" {
		query = query.Where("name ILIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, total, nil
}
