// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	// Dependency order: catalog first, then orders and their children.
	models := []interface{}{
		&product.Category{},
		&product.Product{},
		&pricing.DeliverySettings{},
		&order.Order{},
		&order.OrderItem{},
		&payment.Payment{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}
	return nil
}

// CreateIndexes creates the constraints AutoMigrate cannot express.
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// One pending order per customer, enforced at the database so
		// concurrent creations cannot slip past the advisory lock.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_one_pending_per_customer ON orders(customer_id) WHERE status = 'pending'",

		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_products_active_category ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_payments_order_created ON payments(order_id, created_at DESC)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
