// internal/domain/order/assembler.go
package order

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/stock"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// Assembler turns an anonymous session cart into (or into part of) the
// customer's single pending order at login time.
type Assembler struct {
	orders  Repository
	catalog pricing.Catalog
	engine  *pricing.Engine
	ledger  *stock.Ledger
	clock   clock.Clock
	logger  *logrus.Logger
}

// NewAssembler creates a new order assembler
func NewAssembler(orders Repository, catalog pricing.Catalog, engine *pricing.Engine, ledger *stock.Ledger, clk clock.Clock, log *logrus.Logger) *Assembler {
	return &Assembler{
		orders:  orders,
		catalog: catalog,
		engine:  engine,
		ledger:  ledger,
		clock:   clk,
		logger:  log,
	}
}

// Build merges the session cart into the actor's pending order and returns
// it. An empty session cart is a no-op returning nil. Back-office actors never
// get an order: their session's reserved stock is returned to the catalog and
// nil is returned. Deleting the session cart afterwards is the caller's job,
// and only on success, so a failed merge can be retried.
func (a *Assembler) Build(ctx context.Context, sessionCart cart.Cart, actor Actor) (*Order, error) {
	items, err := sessionCart.Items(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	if actor.IsPrivileged() {
		return nil, a.releaseAll(ctx, items, actor)
	}

	var result *Order
	err = a.orders.WithCustomerLock(ctx, actor.UserID, func(repo Repository) error {
		ord, created, err := repo.GetOrCreatePending(ctx, actor.UserID)
		if err != nil {
			return err
		}
		pending := NewPendingCart(repo, ord, a.engine, a.clock)

		// Both sides are brought to current catalog prices before merging, so
		// combined lines never mix price generations.
		orderDiff := false
		if !created && len(ord.Items) > 0 {
			if orderDiff, err = a.engine.Sync(ctx, pending); err != nil {
				return err
			}
		}
		sessionDiff, err := a.engine.Sync(ctx, sessionCart)
		if err != nil {
			return err
		}
		sessionItems, err := sessionCart.Items(ctx)
		if err != nil {
			return err
		}

		ids := make([]uint, 0, len(sessionItems))
		for _, item := range sessionItems {
			ids = append(ids, item.ProductID)
		}
		products, err := a.catalog.GetProducts(ctx, ids)
		if err != nil {
			return err
		}

		var merged []uint
		for _, item := range sessionItems {
			prod, ok := products[item.ProductID]
			if !ok {
				// The product was withdrawn while sitting in the session cart.
				// Its reserved units would leak otherwise.
				a.logger.WithFields(logrus.Fields{
					"product_id":   item.ProductID,
					"product_name": item.ProductName,
				}).Warn("session cart item references a deleted product, releasing its stock")
				if _, err := a.ledger.Release(ctx, item.ProductID, item.ProductName, item.Quantity); err != nil {
					return err
				}
				continue
			}

			if existing := ord.ItemByProduct(item.ProductID); existing != nil {
				existing.Quantity += item.Quantity
				existing.UnitPrice = prod.Price
				existing.LineTotal = money.LineTotal(prod.Price, existing.Quantity)
			} else {
				ord.Items = append(ord.Items, OrderItem{
					OrderID:            ord.ID,
					ProductIDSnapshot:  prod.ID,
					ProductName:        prod.Name,
					ProductDescription: prod.Description,
					ProductImageURL:    prod.ImageURL,
					Quantity:           item.Quantity,
					UnitPrice:          prod.Price,
					LineTotal:          money.LineTotal(prod.Price, item.Quantity),
					CreatedAt:          a.clock.Now(),
				})
			}
			merged = append(merged, item.ProductID)
		}

		// Every session item may have pointed at a withdrawn product. A pending
		// order with nothing in it has no reason to exist.
		if len(ord.Items) == 0 {
			return repo.Delete(ctx, ord)
		}

		dirty := make([]*OrderItem, 0, len(merged))
		for _, id := range merged {
			dirty = append(dirty, ord.ItemByProduct(id))
		}
		if err := repo.SaveItems(ctx, dirty); err != nil {
			return err
		}

		if (orderDiff || sessionDiff) && !ord.PriceDiff {
			ord.PriceDiff = true
		}
		if err := NewPendingCart(repo, ord, a.engine, a.clock).saveTotals(ctx); err != nil {
			return err
		}
		if err := repo.Update(ctx, ord, "price_diff"); err != nil {
			return err
		}

		a.logger.WithFields(logrus.Fields{
			"order_id":      ord.ID,
			"customer_id":   actor.UserID,
			"merged_items":  len(merged),
			"created_order": created,
		}).Info("merged session cart into pending order")

		result = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// releaseAll returns every reserved unit of a privileged session to the
// catalog.
func (a *Assembler) releaseAll(ctx context.Context, items []*cart.CartItem, actor Actor) error {
	for _, item := range items {
		if _, err := a.ledger.Release(ctx, item.ProductID, item.ProductName, item.Quantity); err != nil {
			return err
		}
	}
	a.logger.WithFields(logrus.Fields{
		"user_id": actor.UserID,
		"role":    actor.Role,
		"items":   len(items),
	}).Info("released privileged session cart stock")
	return nil
}
