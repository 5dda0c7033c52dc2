package pricing

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

type fakeCatalog struct {
	products map[uint]*product.Product
	lookups  int
}

func newFakeCatalog(products ...*product.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[uint]*product.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) GetProducts(ctx context.Context, ids []uint) (map[uint]*product.Product, error) {
	c.lookups++
	out := make(map[uint]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// memCart holds items in memory and counts batch price writes.
type memCart struct {
	items  map[uint]*cart.CartItem
	writes int
}

func newMemCart(items ...*cart.CartItem) *memCart {
	c := &memCart{items: make(map[uint]*cart.CartItem)}
	for _, item := range items {
		c.items[item.ProductID] = item
	}
	return c
}

func (c *memCart) AddItem(ctx context.Context, prod *product.Product) (*cart.CartItem, error) {
	panic("not used")
}

func (c *memCart) RemoveItem(ctx context.Context, productID uint) (*cart.CartItem, error) {
	panic("not used")
}

func (c *memCart) Items(ctx context.Context) ([]*cart.CartItem, error) {
	items := make([]*cart.CartItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (c *memCart) IsEmpty(ctx context.Context) (bool, error) {
	return len(c.items) == 0, nil
}

func (c *memCart) Totals(ctx context.Context) (cart.Totals, error) {
	return cart.Totals{}, nil
}

func (c *memCart) UpdateItemPrices(ctx context.Context, changed []*cart.CartItem) error {
	c.writes++
	for _, upd := range changed {
		if item, ok := c.items[upd.ProductID]; ok {
			item.UnitPrice = upd.UnitPrice
			item.LineTotal = upd.LineTotal
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testEngine(catalog Catalog) *Engine {
	settings := NewStaticSettings(decimal.RequireFromString("50.00"), decimal.RequireFromString("8.50"))
	return NewEngine(catalog, settings, testLogger())
}

func pricingEngineWithSettings(settings SettingsSource) *Engine {
	return NewEngine(newFakeCatalog(), settings, testLogger())
}

type failingSettings struct{}

func (failingSettings) DeliverySettings() (*DeliverySettings, error) {
	return nil, errors.New("settings table unreachable")
}

func item(id uint, name, price string, qty int) *cart.CartItem {
	p := decimal.RequireFromString(price)
	return &cart.CartItem{
		ProductID:   id,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   p,
		LineTotal:   money.LineTotal(p, qty),
	}
}

func TestEngine_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("corrects drifted prices in one batch", func(t *testing.T) {
		catalog := newFakeCatalog(
			&product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("11.00")},
			&product.Product{ID: 2, Name: "Helmet", Price: decimal.RequireFromString("14.88")},
		)
		c := newMemCart(
			item(1, "Chainsaw", "9.33", 6),
			item(2, "Helmet", "14.88", 3),
		)
		engine := testEngine(catalog)

		changed, err := engine.Sync(ctx, c)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 1, catalog.lookups)
		assert.Equal(t, 1, c.writes)

		assert.True(t, c.items[1].UnitPrice.Equal(decimal.RequireFromString("11.00")))
		assert.True(t, c.items[1].LineTotal.Equal(decimal.RequireFromString("66.00")))
		assert.True(t, c.items[2].LineTotal.Equal(decimal.RequireFromString("44.64")))
	})

	t.Run("idempotent when prices already match", func(t *testing.T) {
		catalog := newFakeCatalog(&product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")})
		c := newMemCart(item(1, "Chainsaw", "9.33", 6))
		engine := testEngine(catalog)

		changed, err := engine.Sync(ctx, c)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Zero(t, c.writes)
	})

	t.Run("vanished product keeps its snapshot", func(t *testing.T) {
		catalog := newFakeCatalog()
		c := newMemCart(item(9, "Ghost", "5.00", 2))
		engine := testEngine(catalog)

		changed, err := engine.Sync(ctx, c)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, c.items[9].UnitPrice.Equal(decimal.RequireFromString("5.00")))
	})

	t.Run("empty cart needs no lookup", func(t *testing.T) {
		catalog := newFakeCatalog()
		engine := testEngine(catalog)

		changed, err := engine.Sync(ctx, newMemCart())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Zero(t, catalog.lookups)
	})
}

func TestEngine_Amounts(t *testing.T) {
	engine := testEngine(newFakeCatalog())

	t.Run("sums line totals to currency precision", func(t *testing.T) {
		items := []*cart.CartItem{
			item(1, "Chainsaw", "9.33", 6),
			item(2, "Helmet", "14.88", 3),
		}
		// 55.98 + 44.64
		assert.True(t, engine.ItemsAmount(items).Equal(decimal.RequireFromString("100.62")))
	})

	t.Run("delivery is flat below the threshold", func(t *testing.T) {
		totals, err := engine.Totals(decimal.RequireFromString("49.99"))
		require.NoError(t, err)
		assert.True(t, totals.DeliveryAmount.Equal(decimal.RequireFromString("8.50")))
		assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString("58.49")))
	})

	t.Run("delivery is free exactly at the threshold", func(t *testing.T) {
		totals, err := engine.Totals(decimal.RequireFromString("50.00"))
		require.NoError(t, err)
		assert.True(t, totals.DeliveryAmount.IsZero())
		assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString("50.00")))
	})

	t.Run("delivery is free above the threshold", func(t *testing.T) {
		totals, err := engine.Totals(decimal.RequireFromString("100.62"))
		require.NoError(t, err)
		assert.True(t, totals.DeliveryAmount.IsZero())
		assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString("100.62")))
	})

	t.Run("settings load failure is an error, not free delivery", func(t *testing.T) {
		broken := pricingEngineWithSettings(failingSettings{})

		_, err := broken.DeliveryAmount(decimal.RequireFromString("10.00"))
		require.Error(t, err)

		_, err = broken.Totals(decimal.RequireFromString("10.00"))
		require.Error(t, err)
	})
}
