// internal/domain/payment/entity.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents the payment status
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ErrPaymentNotFound is returned when no payment exists for an order
var ErrPaymentNotFound = errors.New("payment not found")

// Payment records one checkout attempt against an order.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	Provider    string          `gorm:"not null;size:32" json:"provider"`
	SessionID   string          `gorm:"size:128" json:"session_id"`
	Transaction string          `gorm:"size:128" json:"transaction,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"amount"`
	Status      PaymentStatus   `gorm:"not null;default:'initiated';size:16" json:"status"`
	PaidAt      *time.Time      `json:"paid_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Payment) TableName() string { return "payments" }

// Store is the persistence surface for payment records.
type Store interface {
	Save(ctx context.Context, p *Payment) error
	LatestByOrder(ctx context.Context, orderID uint) (*Payment, error)
}

// GormStore implements Store on PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new payment store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Save(ctx context.Context, p *Payment) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *GormStore) LatestByOrder(ctx context.Context, orderID uint) (*Payment, error) {
	var p Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}
