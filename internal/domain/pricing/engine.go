// internal/domain/pricing/engine.go
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// Catalog is the read surface the engine needs: one batched lookup.
type Catalog interface {
	GetProducts(ctx context.Context, ids []uint) (map[uint]*product.Product, error)
}

// Engine detects and corrects drift between a cart's snapshotted item prices
// and the catalog's current prices, and derives aggregate amounts. It also
// serves as the Calculator carts use to keep totals fresh.
type Engine struct {
	catalog  Catalog
	settings SettingsSource
	logger   *logrus.Logger
}

// NewEngine creates a new price sync engine
func NewEngine(catalog Catalog, settings SettingsSource, log *logrus.Logger) *Engine {
	return &Engine{catalog: catalog, settings: settings, logger: log}
}

// Sync reconciles every line item's unit price with the catalog in one
// batched lookup and one batched write. Items whose product vanished keep
// their last snapshot (logged, not failed). Idempotent: a second call with no
// intervening catalog change reports false and writes nothing.
func (e *Engine) Sync(ctx context.Context, c cart.Cart) (bool, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		return false, nil
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := e.catalog.GetProducts(ctx, ids)
	if err != nil {
		return false, err
	}

	var changed []*cart.CartItem
	for _, item := range items {
		prod, ok := products[item.ProductID]
		if !ok {
			e.logger.WithFields(logrus.Fields{
				"product_id":   item.ProductID,
				"product_name": item.ProductName,
			}).Warn("cart item references a product that no longer exists, skipping price sync")
			continue
		}

		if !prod.Price.Equal(item.UnitPrice) {
			e.logger.WithFields(logrus.Fields{
				"product_name": item.ProductName,
				"old_price":    item.UnitPrice.String(),
				"new_price":    prod.Price.String(),
			}).Info("synced item price")

			item.UnitPrice = prod.Price
			item.LineTotal = money.LineTotal(prod.Price, item.Quantity)
			changed = append(changed, item)
		}
	}

	if len(changed) == 0 {
		return false, nil
	}
	if err := c.UpdateItemPrices(ctx, changed); err != nil {
		return false, err
	}
	return true, nil
}

// ItemsAmount sums the line totals, rounded to currency precision.
func (e *Engine) ItemsAmount(items []*cart.CartItem) decimal.Decimal {
	return cart.ItemsAmount(items)
}

// DeliveryAmount returns the flat delivery price when the items amount is
// strictly below the free-delivery threshold, zero otherwise. A settings load
// failure surfaces as an error so callers never persist totals derived from a
// guessed threshold.
func (e *Engine) DeliveryAmount(itemsAmount decimal.Decimal) (decimal.Decimal, error) {
	settings, err := e.settings.DeliverySettings()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to load delivery settings: %w", err)
	}
	if itemsAmount.LessThan(settings.FreeThreshold) {
		return settings.FlatPrice, nil
	}
	return money.Zero(), nil
}

// Totals derives the full aggregate set from an items amount.
func (e *Engine) Totals(itemsAmount decimal.Decimal) (cart.Totals, error) {
	delivery, err := e.DeliveryAmount(itemsAmount)
	if err != nil {
		return cart.Totals{}, err
	}
	return cart.Totals{
		ItemsAmount:    itemsAmount,
		DeliveryAmount: delivery,
		TotalAmount:    money.Round2(itemsAmount.Add(delivery)),
	}, nil
}
