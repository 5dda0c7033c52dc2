// internal/domain/order/cart_store.go
package order

import (
	"context"
	"sort"

	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// PendingCart adapts a customer's pending order to the uniform cart contract,
// so the pricing engine and the cart endpoints work on it unchanged.
type PendingCart struct {
	repo  Repository
	ord   *Order
	calc  cart.Calculator
	clock clock.Clock
}

// NewPendingCart wraps a pending order. The order must have been loaded with
// its items.
func NewPendingCart(repo Repository, ord *Order, calc cart.Calculator, clk clock.Clock) *PendingCart {
	return &PendingCart{repo: repo, ord: ord, calc: calc, clock: clk}
}

// Order exposes the wrapped order for callers that need the full record.
func (c *PendingCart) Order() *Order {
	return c.ord
}

func (c *PendingCart) AddItem(ctx context.Context, prod *product.Product) (*cart.CartItem, error) {
	item := c.ord.ItemByProduct(prod.ID)
	if item != nil {
		item.Quantity++
		item.UnitPrice = prod.Price
		item.LineTotal = money.LineTotal(item.UnitPrice, item.Quantity)
	} else {
		c.ord.Items = append(c.ord.Items, OrderItem{
			OrderID:            c.ord.ID,
			ProductIDSnapshot:  prod.ID,
			ProductName:        prod.Name,
			ProductDescription: prod.Description,
			ProductImageURL:    prod.ImageURL,
			Quantity:           1,
			UnitPrice:          prod.Price,
			LineTotal:          prod.Price,
			CreatedAt:          c.clock.Now(),
		})
		item = &c.ord.Items[len(c.ord.Items)-1]
	}

	if err := c.repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	if err := c.saveTotals(ctx); err != nil {
		return nil, err
	}
	return item.AsCartItem(), nil
}

func (c *PendingCart) RemoveItem(ctx context.Context, productID uint) (*cart.CartItem, error) {
	item := c.ord.ItemByProduct(productID)
	if item == nil {
		return nil, nil
	}
	removed := item.AsCartItem()

	if err := c.repo.DeleteItem(ctx, item); err != nil {
		return nil, err
	}
	for i := range c.ord.Items {
		if c.ord.Items[i].ProductIDSnapshot == productID {
			c.ord.Items = append(c.ord.Items[:i], c.ord.Items[i+1:]...)
			break
		}
	}

	// A pending order with no items is pointless; drop the record entirely so
	// the customer's next merge starts fresh.
	if len(c.ord.Items) == 0 {
		if err := c.repo.Delete(ctx, c.ord); err != nil {
			return nil, err
		}
		return removed, nil
	}

	if err := c.saveTotals(ctx); err != nil {
		return nil, err
	}
	return removed, nil
}

func (c *PendingCart) Items(ctx context.Context) ([]*cart.CartItem, error) {
	items := make([]*cart.CartItem, 0, len(c.ord.Items))
	for i := range c.ord.Items {
		items = append(items, c.ord.Items[i].AsCartItem())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (c *PendingCart) IsEmpty(ctx context.Context) (bool, error) {
	return len(c.ord.Items) == 0, nil
}

func (c *PendingCart) Totals(ctx context.Context) (cart.Totals, error) {
	return cart.Totals{
		ItemsAmount:    c.ord.ItemsAmount,
		DeliveryAmount: c.ord.DeliveryAmount,
		TotalAmount:    c.ord.TotalAmount,
	}, nil
}

func (c *PendingCart) UpdateItemPrices(ctx context.Context, changed []*cart.CartItem) error {
	if len(changed) == 0 {
		return nil
	}

	var dirty []*OrderItem
	for _, upd := range changed {
		if item := c.ord.ItemByProduct(upd.ProductID); item != nil {
			item.UnitPrice = upd.UnitPrice
			item.LineTotal = upd.LineTotal
			dirty = append(dirty, item)
		}
	}
	if err := c.repo.SaveItems(ctx, dirty); err != nil {
		return err
	}
	return c.saveTotals(ctx)
}

// saveTotals recomputes the order's aggregate amounts from its items and
// persists them.
func (c *PendingCart) saveTotals(ctx context.Context) error {
	items := make([]*cart.CartItem, 0, len(c.ord.Items))
	for i := range c.ord.Items {
		items = append(items, c.ord.Items[i].AsCartItem())
	}
	totals, err := c.calc.Totals(cart.ItemsAmount(items))
	if err != nil {
		return err
	}
	c.ord.ItemsAmount = totals.ItemsAmount
	c.ord.DeliveryAmount = totals.DeliveryAmount
	c.ord.TotalAmount = totals.TotalAmount
	return c.repo.Update(ctx, c.ord, "items_amount", "delivery_amount", "total_amount")
}
