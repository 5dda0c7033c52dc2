package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// flatCalc charges a fixed delivery price under the threshold.
type flatCalc struct {
	threshold decimal.Decimal
	flat      decimal.Decimal
}

func (c flatCalc) Totals(itemsAmount decimal.Decimal) (Totals, error) {
	delivery := money.Zero()
	if itemsAmount.LessThan(c.threshold) {
		delivery = c.flat
	}
	return Totals{
		ItemsAmount:    itemsAmount,
		DeliveryAmount: delivery,
		TotalAmount:    money.Round2(itemsAmount.Add(delivery)),
	}, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestStore(t *testing.T, clk clock.Clock) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	calc := flatCalc{
		threshold: decimal.RequireFromString("50.00"),
		flat:      decimal.RequireFromString("8.50"),
	}
	return NewSessionStore(client, calc, clk, 48*time.Hour, testLogger()), mr
}

func TestSessionCart_AddItem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, clock.NewFixed(now))
	c := store.Cart("sess-1")

	chainsaw := &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")}

	item, err := c.AddItem(ctx, chainsaw)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("9.33")))

	// Same product again increments instead of duplicating.
	item, err = c.AddItem(ctx, chainsaw)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("18.66")))

	items, err := c.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	totals, err := c.Totals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.ItemsAmount.Equal(decimal.RequireFromString("18.66")))
	assert.True(t, totals.DeliveryAmount.Equal(decimal.RequireFromString("8.50")))
	assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString("27.16")))
}

func TestSessionCart_AddItem_TakesLivePriceOnIncrement(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, clock.NewFixed(time.Now()))
	c := store.Cart("sess-1")

	_, err := c.AddItem(ctx, &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")})
	require.NoError(t, err)
	item, err := c.AddItem(ctx, &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("11.00")})
	require.NoError(t, err)

	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("11.00")))
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("22.00")))
}

func TestSessionCart_RemoveItem(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, clock.NewFixed(time.Now()))
	c := store.Cart("sess-1")

	_, err := c.AddItem(ctx, &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")})
	require.NoError(t, err)
	_, err = c.AddItem(ctx, &product.Product{ID: 2, Name: "Helmet", Price: decimal.RequireFromString("14.88")})
	require.NoError(t, err)

	t.Run("returns the removed line for stock release", func(t *testing.T) {
		removed, err := c.RemoveItem(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, uint(1), removed.ProductID)
		assert.Equal(t, 1, removed.Quantity)

		items, err := c.Items(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, uint(2), items[0].ProductID)
	})

	t.Run("absent product removes nothing", func(t *testing.T) {
		removed, err := c.RemoveItem(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, removed)
	})

	t.Run("removing the last line drops the whole key", func(t *testing.T) {
		_, err := c.RemoveItem(ctx, 2)
		require.NoError(t, err)

		assert.False(t, mr.Exists("cart:session:sess-1"))
		empty, err := c.IsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty)
	})
}

func TestSessionStore_StaleSessions(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	store, _ := newTestStore(t, clock.NewFixed(base))
	prod := &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")}

	_, err := store.Cart("old").AddItem(ctx, prod)
	require.NoError(t, err)

	// A later write moves the fresh session past the cutoff.
	fresh, _ := newTestStore(t, clock.NewFixed(base.Add(2*time.Hour)))
	fresh.client = store.client
	_, err = fresh.Cart("fresh").AddItem(ctx, prod)
	require.NoError(t, err)

	stale, err := store.StaleSessions(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, stale)

	t.Run("touch rescues a stale session", func(t *testing.T) {
		err := fresh.Touch(ctx, "old")
		require.NoError(t, err)

		stale, err := store.StaleSessions(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, stale)
	})
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, clock.NewFixed(time.Now()))

	_, err := store.Cart("sess-1").AddItem(ctx, &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	assert.False(t, mr.Exists("cart:session:sess-1"))

	stale, err := store.StaleSessions(ctx, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestSessionCart_UpdateItemPrices(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, clock.NewFixed(time.Now()))
	c := store.Cart("sess-1")

	_, err := c.AddItem(ctx, &product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33")})
	require.NoError(t, err)

	err = c.UpdateItemPrices(ctx, []*CartItem{{
		ProductID: 1,
		UnitPrice: decimal.RequireFromString("11.00"),
		LineTotal: decimal.RequireFromString("11.00"),
	}})
	require.NoError(t, err)

	items, err := c.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("11.00")))

	totals, err := c.Totals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.ItemsAmount.Equal(decimal.RequireFromString("11.00")))
}
