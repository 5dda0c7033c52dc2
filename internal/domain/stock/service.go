// internal/domain/stock/service.go
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Result is the user-facing outcome of a reservation or release. OutOfStock
// and NotFound are expected business outcomes, reported here rather than as
// errors; only transient store failures travel the error return.
type Result struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Product *product.Product `json:"product,omitempty"`
}

// Ledger owns every mutation of product quantity. Reserve decrements under a
// row lock; Release is a plain atomic increment.
type Ledger struct {
	store  ProductStore
	logger *logrus.Logger
}

// NewLedger creates a new stock ledger
func NewLedger(store ProductStore, log *logrus.Logger) *Ledger {
	return &Ledger{store: store, logger: log}
}

// Reserve decrements the product's available quantity by qty inside a single
// transaction, holding the row lock so concurrent reservations for the same
// product serialize. Quantity never goes negative: insufficient stock fails
// with no mutation.
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int) (*Result, error) {
	if qty <= 0 {
		qty = 1
	}

	var result *Result
	err := l.store.WithTx(ctx, func(tx ProductStore) error {
		prod, err := tx.GetForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				result = &Result{Success: false, Message: "Unfortunately this product does not exist anymore."}
				return nil
			}
			return err
		}

		if prod.Quantity < qty {
			result = &Result{Success: false, Message: fmt.Sprintf("Unfortunately %q is out of stock.", prod.Name)}
			return nil
		}

		prod.Quantity -= qty
		if err := tx.Save(ctx, prod); err != nil {
			return err
		}

		result = &Result{
			Success: true,
			Message: fmt.Sprintf("Product %q was added to the cart.", prod.Name),
			Product: prod,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stock reservation failed: %w", err)
	}

	return result, nil
}

// Release returns qty units to the product's available quantity using an
// atomic increment, so it is safe without a row lock. Callers must release at
// most once per reservation. A vanished product is logged and skipped; the
// cart-side removal still counts as successful.
func (l *Ledger) Release(ctx context.Context, productID uint, productName string, qty int) (*Result, error) {
	found, err := l.store.IncrementQuantity(ctx, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("stock release failed: %w", err)
	}

	if !found {
		l.logger.WithFields(logrus.Fields{
			"product_id":   productID,
			"product_name": productName,
		}).Info("product does not exist anymore, skipping stock release")
	} else {
		l.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"released":   qty,
		}).Info("returned reserved quantity to stock")
	}

	return &Result{Success: true, Message: fmt.Sprintf("Product %q was removed from the cart.", productName)}, nil
}
