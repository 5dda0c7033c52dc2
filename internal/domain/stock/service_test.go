package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// fakeProductStore serializes transactions with a mutex, matching the
// serialization the row lock provides in postgres.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[uint]*product.Product
}

func newFakeProductStore(products ...*product.Product) *fakeProductStore {
	s := &fakeProductStore{products: make(map[uint]*product.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) WithTx(ctx context.Context, fn func(tx ProductStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *fakeProductStore) GetForUpdate(ctx context.Context, id uint) (*product.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeProductStore) Save(ctx context.Context, p *product.Product) error {
	s.products[p.ID] = p
	return nil
}

func (s *fakeProductStore) IncrementQuantity(ctx context.Context, id uint, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	p.Quantity += qty
	return true, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements quantity and returns the product", func(t *testing.T) {
		store := newFakeProductStore(&product.Product{ID: 1, Name: "Chainsaw", Price: decimal.RequireFromString("9.33"), Quantity: 3})
		ledger := NewLedger(store, testLogger())

		res, err := ledger.Reserve(ctx, 1, 1)
		require.NoError(t, err)
		require.True(t, res.Success)
		require.NotNil(t, res.Product)
		assert.Equal(t, 2, res.Product.Quantity)
		assert.Equal(t, 2, store.products[1].Quantity)
	})

	t.Run("out of stock fails with no mutation", func(t *testing.T) {
		store := newFakeProductStore(&product.Product{ID: 1, Name: "Chainsaw", Quantity: 1})
		ledger := NewLedger(store, testLogger())

		res, err := ledger.Reserve(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "out of stock")
		assert.Equal(t, 1, store.products[1].Quantity)
	})

	t.Run("missing product reports not found", func(t *testing.T) {
		ledger := NewLedger(newFakeProductStore(), testLogger())

		res, err := ledger.Reserve(ctx, 42, 1)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "does not exist")
	})
}

func TestLedger_Reserve_Concurrent(t *testing.T) {
	// With quantity N and K >> N concurrent reservations, exactly N succeed
	// and the final quantity is zero.
	const n = 10
	const k = 64

	ctx := context.Background()
	store := newFakeProductStore(&product.Product{ID: 7, Name: "Helmet", Quantity: n})
	ledger := NewLedger(store, testLogger())

	var wg sync.WaitGroup
	successes := make(chan bool, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Reserve(ctx, 7, 1)
			if err == nil && res.Success {
				successes <- true
			}
		}()
	}
	wg.Wait()
	close(successes)

	succeeded := 0
	for range successes {
		succeeded++
	}

	assert.Equal(t, n, succeeded)
	assert.Equal(t, 0, store.products[7].Quantity)
}

func TestLedger_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("two releases of q equal one release of 2q", func(t *testing.T) {
		storeA := newFakeProductStore(&product.Product{ID: 1, Name: "Helmet", Quantity: 0})
		storeB := newFakeProductStore(&product.Product{ID: 1, Name: "Helmet", Quantity: 0})
		ledgerA := NewLedger(storeA, testLogger())
		ledgerB := NewLedger(storeB, testLogger())

		for i := 0; i < 2; i++ {
			_, err := ledgerA.Release(ctx, 1, "Helmet", 3)
			require.NoError(t, err)
		}
		_, err := ledgerB.Release(ctx, 1, "Helmet", 6)
		require.NoError(t, err)

		assert.Equal(t, storeB.products[1].Quantity, storeA.products[1].Quantity)
		assert.Equal(t, 6, storeA.products[1].Quantity)
	})

	t.Run("vanished product is skipped but still reported removed", func(t *testing.T) {
		ledger := NewLedger(newFakeProductStore(), testLogger())

		res, err := ledger.Release(ctx, 99, "Ghost", 1)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "removed from the cart")
	})
}
