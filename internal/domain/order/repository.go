// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotFound is returned when an order does not exist
var ErrOrderNotFound = errors.New("order not found")

// ListFilter narrows a List call. A zero CustomerID lists across all
// customers (back office); zero times leave that bound open.
type ListFilter struct {
	CustomerID uint
	Status     OrderStatus
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// Repository is the persistence surface for orders. WithCustomerLock is the
// serialization point: every mutation of a customer's pending order runs
// inside it, so concurrent merges and checkouts for the same customer queue
// up instead of interleaving.
type Repository interface {
	// WithCustomerLock runs fn inside a transaction holding an advisory lock
	// keyed by the customer id. The Repository passed to fn is bound to that
	// transaction.
	WithCustomerLock(ctx context.Context, customerID uint, fn func(repo Repository) error) error
	// GetOrCreatePending returns the customer's single pending order, creating
	// it when absent. The bool reports whether a new order was created.
	GetOrCreatePending(ctx context.Context, customerID uint) (*Order, bool, error)
	// PendingByCustomer returns the customer's pending order or ErrOrderNotFound.
	PendingByCustomer(ctx context.Context, customerID uint) (*Order, error)
	// Get returns an order with its items or ErrOrderNotFound.
	Get(ctx context.Context, id uint) (*Order, error)
	// List returns orders matching the filter, newest first.
	List(ctx context.Context, f ListFilter) ([]*Order, int64, error)
	// Update persists the named fields of the order.
	Update(ctx context.Context, ord *Order, fields ...string) error
	// Delete removes the order and, via the FK constraint, its items.
	Delete(ctx context.Context, ord *Order) error
	// SaveItem inserts or updates one order line.
	SaveItem(ctx context.Context, item *OrderItem) error
	// SaveItems inserts or updates order lines in one batch.
	SaveItems(ctx context.Context, items []*OrderItem) error
	// DeleteItem removes one order line.
	DeleteItem(ctx context.Context, item *OrderItem) error
	// StalePending returns pending orders last updated at or before cutoff,
	// with their items. Any write to the order or its totals counts as
	// activity, so a cart in active use is never stale.
	StalePending(ctx context.Context, cutoff time.Time) ([]*Order, error)
	// ExpireOrders marks the given orders expired in one statement.
	ExpireOrders(ctx context.Context, ids []uint, at time.Time) error
}

// GormRepository implements Repository on PostgreSQL.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new order repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) WithCustomerLock(ctx context.Context, customerID uint, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Advisory lock scoped to the transaction; released on commit/rollback.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(customerID)).Error; err != nil {
			return fmt.Errorf("failed to acquire customer order lock: %w", err)
		}
		return fn(&GormRepository{db: tx})
	})
}

func (r *GormRepository) GetOrCreatePending(ctx context.Context, customerID uint) (*Order, bool, error) {
	ord, err := r.PendingByCustomer(ctx, customerID)
	if err == nil {
		return ord, false, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return nil, false, err
	}

	ord = &Order{CustomerID: customerID, Status: OrderStatusPending}
	if err := r.db.WithContext(ctx).Create(ord).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create pending order: %w", err)
	}
	return ord, true, nil
}

func (r *GormRepository) PendingByCustomer(ctx context.Context, customerID uint) (*Order, error) {
	var ord Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND status = ?", customerID, OrderStatusPending).
		First(&ord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending order: %w", err)
	}
	return &ord, nil
}

func (r *GormRepository) Get(ctx context.Context, id uint) (*Order, error) {
	var ord Order
	err := r.db.WithContext(ctx).Preload("Items").First(&ord, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &ord, nil
}

func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]*Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&Order{})
	if f.CustomerID != 0 {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		query = query.Where("created_at < ?", f.Until)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []*Order
	if err := query.Preload("Items").
		Order("created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *GormRepository) Update(ctx context.Context, ord *Order, fields ...string) error {
	if err := r.db.WithContext(ctx).Model(ord).Select(fields).Updates(ord).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, ord *Order) error {
	if err := r.db.WithContext(ctx).Delete(ord).Error; err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (r *GormRepository) SaveItem(ctx context.Context, item *OrderItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to save order item: %w", err)
	}
	return nil
}

func (r *GormRepository) SaveItems(ctx context.Context, items []*OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to save order items: %w", err)
	}
	return nil
}

func (r *GormRepository) DeleteItem(ctx context.Context, item *OrderItem) error {
	if err := r.db.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	return nil
}

func (r *GormRepository) StalePending(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	var orders []*Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND updated_at <= ?", OrderStatusPending, cutoff).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	return orders, nil
}

func (r *GormRepository) ExpireOrders(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&Order{}).
		Where("id IN ? AND status = ?", ids, OrderStatusPending).
		Updates(map[string]interface{}{
			"status":     OrderStatusExpired,
			"expired_at": at,
		}).Error; err != nil {
		return fmt.Errorf("failed to expire orders: %w", err)
	}
	return nil
}
