package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/stock"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// fakeRepo keeps orders in a map. WithCustomerLock serializes with a mutex,
// matching what the advisory lock provides in postgres.
type fakeRepo struct {
	mu        sync.Mutex
	orders    map[uint]*Order
	nextOrder uint
	nextItem  uint
	now       time.Time
}

func newFakeRepo(now time.Time) *fakeRepo {
	return &fakeRepo{orders: make(map[uint]*Order), now: now}
}

func (r *fakeRepo) WithCustomerLock(ctx context.Context, customerID uint, fn func(repo Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r)
}

func (r *fakeRepo) GetOrCreatePending(ctx context.Context, customerID uint) (*Order, bool, error) {
	for _, ord := range r.orders {
		if ord.CustomerID == customerID && ord.Status == OrderStatusPending {
			return ord, false, nil
		}
	}
	r.nextOrder++
	ord := &Order{
		ID:         r.nextOrder,
		CustomerID: customerID,
		Status:     OrderStatusPending,
		CreatedAt:  r.now,
	}
	r.orders[ord.ID] = ord
	return ord, true, nil
}

func (r *fakeRepo) PendingByCustomer(ctx context.Context, customerID uint) (*Order, error) {
	for _, ord := range r.orders {
		if ord.CustomerID == customerID && ord.Status == OrderStatusPending {
			return ord, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *fakeRepo) Get(ctx context.Context, id uint) (*Order, error) {
	ord, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) ([]*Order, int64, error) {
	var out []*Order
	for _, ord := range r.orders {
		if f.CustomerID != 0 && ord.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && ord.Status != f.Status {
			continue
		}
		if !f.Since.IsZero() && ord.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, ord)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeRepo) Update(ctx context.Context, ord *Order, fields ...string) error {
	if _, ok := r.orders[ord.ID]; !ok {
		return ErrOrderNotFound
	}
	r.orders[ord.ID] = ord
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, ord *Order) error {
	delete(r.orders, ord.ID)
	return nil
}

func (r *fakeRepo) SaveItem(ctx context.Context, item *OrderItem) error {
	if item.ID == 0 {
		r.nextItem++
		item.ID = r.nextItem
	}
	return nil
}

func (r *fakeRepo) SaveItems(ctx context.Context, items []*OrderItem) error {
	for _, item := range items {
		if err := r.SaveItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) DeleteItem(ctx context.Context, item *OrderItem) error {
	return nil
}

func (r *fakeRepo) StalePending(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	var out []*Order
	for _, ord := range r.orders {
		if ord.Status == OrderStatusPending && !ord.CreatedAt.After(cutoff) {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) ExpireOrders(ctx context.Context, ids []uint, at time.Time) error {
	for _, id := range ids {
		if ord, ok := r.orders[id]; ok && ord.Status == OrderStatusPending {
			ord.Status = OrderStatusExpired
			expired := at
			ord.ExpiredAt = &expired
		}
	}
	return nil
}

// fakeCatalog serves batched product lookups from a map.
type fakeCatalog struct {
	products map[uint]*product.Product
}

func newFakeCatalog(products ...*product.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[uint]*product.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) GetProducts(ctx context.Context, ids []uint) (map[uint]*product.Product, error) {
	out := make(map[uint]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// fakeProductStore backs a stock ledger without a database.
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

func (s *fakeProductStore) WithTx(ctx context.Context, fn func(tx stock.ProductStore) error) error {
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

// memCart is an in-memory session cart stand-in.
type memCart struct {
	items map[uint]*cart.CartItem
	calc  cart.Calculator
}

func newMemCart(calc cart.Calculator) *memCart {
	return &memCart{items: make(map[uint]*cart.CartItem), calc: calc}
}

func (c *memCart) put(prod *product.Product, qty int) {
	c.items[prod.ID] = &cart.CartItem{
		ProductID:       prod.ID,
		ProductName:     prod.Name,
		ProductImageURL: prod.ImageURL,
		Quantity:        qty,
		UnitPrice:       prod.Price,
		LineTotal:       money.LineTotal(prod.Price, qty),
	}
}

func (c *memCart) AddItem(ctx context.Context, prod *product.Product) (*cart.CartItem, error) {
	item, ok := c.items[prod.ID]
	if ok {
		item.Quantity++
		item.UnitPrice = prod.Price
		item.LineTotal = money.LineTotal(item.UnitPrice, item.Quantity)
		return item, nil
	}
	c.put(prod, 1)
	return c.items[prod.ID], nil
}

func (c *memCart) RemoveItem(ctx context.Context, productID uint) (*cart.CartItem, error) {
	item, ok := c.items[productID]
	if !ok {
		return nil, nil
	}
	delete(c.items, productID)
	return item, nil
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
	items, _ := c.Items(ctx)
	return c.calc.Totals(cart.ItemsAmount(items))
}

func (c *memCart) UpdateItemPrices(ctx context.Context, changed []*cart.CartItem) error {
	for _, upd := range changed {
		if item, ok := c.items[upd.ProductID]; ok {
			item.UnitPrice = upd.UnitPrice
			item.LineTotal = upd.LineTotal
		}
	}
	return nil
}
