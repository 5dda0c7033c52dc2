// internal/domain/cart/entity.go
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// CartItem represents one product line in either cart representation. Name,
// description and price are snapshots so the cart stays displayable even if
// the catalog product later changes or disappears.
type CartItem struct {
	ProductID          uint            `json:"product_id"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description,omitempty"`
	ProductImageURL    string          `json:"product_image_url,omitempty"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
	AddedAt            time.Time       `json:"added_at"`
}

// NewItem snapshots a catalog product into a quantity-1 cart item.
func NewItem(prod *product.Product, at time.Time) *CartItem {
	return &CartItem{
		ProductID:          prod.ID,
		ProductName:        prod.Name,
		ProductDescription: prod.Description,
		ProductImageURL:    prod.ImageURL,
		Quantity:           1,
		UnitPrice:          prod.Price,
		LineTotal:          prod.Price,
		AddedAt:            at,
	}
}

// Totals represents the aggregate amounts of a cart or pending order.
type Totals struct {
	ItemsAmount    decimal.Decimal `json:"items_amount"`
	DeliveryAmount decimal.Decimal `json:"delivery_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Calculator derives delivery and total amounts from an items amount.
// Implemented by the pricing engine; carts use it to keep aggregates fresh on
// every mutation. A failure to load the delivery settings is an error, never
// a silent zero: wrong totals must not be persisted.
type Calculator interface {
	Totals(itemsAmount decimal.Decimal) (Totals, error)
}

// Cart is the uniform contract over the two cart representations: the
// ephemeral session cart and the persisted pending order. The concrete
// implementation is selected once at the entry point; business logic never
// branches on the backing store.
type Cart interface {
	// AddItem increments the item's quantity if the product is already in the
	// cart, otherwise inserts it with quantity 1. Line total and aggregate
	// totals are recomputed before returning.
	AddItem(ctx context.Context, prod *product.Product) (*CartItem, error)
	// RemoveItem removes the product's line and returns the removed item so
	// the caller can release its reserved stock. Nil when not present.
	RemoveItem(ctx context.Context, productID uint) (*CartItem, error)
	// Items returns the cart's line items ordered by product id.
	Items(ctx context.Context) ([]*CartItem, error)
	// IsEmpty reports whether the cart holds no items.
	IsEmpty(ctx context.Context) (bool, error)
	// Totals returns the current aggregate amounts. Mutations recompute these
	// before returning, so they are never stale.
	Totals(ctx context.Context) (Totals, error)
	// UpdateItemPrices persists price fields of already-synced items in one
	// batch and recomputes aggregates.
	UpdateItemPrices(ctx context.Context, changed []*CartItem) error
}

// ItemsAmount sums line totals, rounded to currency precision.
func ItemsAmount(items []*CartItem) decimal.Decimal {
	sum := money.Zero()
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	return money.Round2(sum)
}
