// internal/domain/stock/repository.go
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductStore is the persistence surface the ledger needs: a transaction
// boundary, a row-locked read, and an atomic increment.
type ProductStore interface {
	// WithTx runs fn inside one transaction; the store passed to fn is bound
	// to that transaction.
	WithTx(ctx context.Context, fn func(tx ProductStore) error) error
	// GetForUpdate loads the product row holding a row-level lock until the
	// surrounding transaction ends. Returns product.ErrNotFound if absent.
	GetForUpdate(ctx context.Context, id uint) (*product.Product, error)
	// Save persists the mutated product row.
	Save(ctx context.Context, p *product.Product) error
	// IncrementQuantity adds qty to the product's quantity as a single atomic
	// update. Returns false when the product no longer exists.
	IncrementQuantity(ctx context.Context, id uint, qty int) (bool, error)
}

// GormProductStore implements ProductStore on gorm/postgres.
type GormProductStore struct {
	db *gorm.DB
}

// NewGormProductStore creates the postgres-backed product store.
func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

func (s *GormProductStore) WithTx(ctx context.Context, fn func(tx ProductStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormProductStore{db: tx})
	})
}

func (s *GormProductStore) GetForUpdate(ctx context.Context, id uint) (*product.Product, error) {
	var prod product.Product
	result := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&prod)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock product row: %w", result.Error)
	}
	return &prod, nil
}

func (s *GormProductStore) Save(ctx context.Context, p *product.Product) error {
	if err := s.db.WithContext(ctx).Model(p).
		Select("quantity", "updated_at").
		Updates(map[string]interface{}{"quantity": p.Quantity}).Error; err != nil {
		return fmt.Errorf("failed to save product quantity: %w", err)
	}
	return nil
}

func (s *GormProductStore) IncrementQuantity(ctx context.Context, id uint, qty int) (bool, error) {
	result := s.db.WithContext(ctx).Model(&product.Product{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if result.Error != nil {
		return false, fmt.Errorf("failed to increment product quantity: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
