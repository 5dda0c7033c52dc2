// internal/domain/cart/session_store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

const (
	sessionKeyPrefix = "cart:session:"
	// sessionIndexKey is a ZSET of session ids scored by last-modified unix
	// time. It is maintained on every cart write so the sweeper can find
	// stale carts without scanning the whole key space.
	sessionIndexKey = "cart:sessions:index"
)

// SessionStore keeps anonymous carts in Redis, one JSON blob per session id.
type SessionStore struct {
	client *redis.Client
	calc   Calculator
	clock  clock.Clock
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSessionStore creates the Redis-backed session cart store. ttl is a
// backstop only and must exceed the sweeper's session cutoff: reserved stock
// has to be released before the key can disappear.
func NewSessionStore(client *redis.Client, calc Calculator, clk clock.Clock, ttl time.Duration, log *logrus.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		calc:   calc,
		clock:  clk,
		ttl:    ttl,
		logger: log,
	}
}

// Cart returns the Cart bound to one anonymous session.
func (s *SessionStore) Cart(sessionID string) Cart {
	return &sessionCart{store: s, sessionID: sessionID}
}

// Touch refreshes the cart's last-modified timestamp and its expiry index
// entry without changing the items.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(state.Items) == 0 {
		return nil
	}
	return s.save(ctx, sessionID, state)
}

// Delete removes the session cart and its expiry index entry. Stock release
// is the caller's responsibility and must happen first.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session cart: %w", err)
	}
	if err := s.client.ZRem(ctx, sessionIndexKey, sessionID).Err(); err != nil {
		return fmt.Errorf("failed to drop session from expiry index: %w", err)
	}
	return nil
}

// StaleSessions returns the ids of carts last modified at or before cutoff.
func (s *SessionStore) StaleSessions(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, sessionIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session expiry index: %w", err)
	}
	return ids, nil
}

// sessionState is the JSON blob stored per session.
type sessionState struct {
	SessionID      string             `json:"session_id"`
	Items          map[uint]*CartItem `json:"items"`
	ItemsAmount    decimal.Decimal    `json:"items_amount"`
	DeliveryAmount decimal.Decimal    `json:"delivery_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (s *SessionStore) load(ctx context.Context, sessionID string) (*sessionState, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		now := s.clock.Now()
		return &sessionState{
			SessionID:      sessionID,
			Items:          make(map[uint]*CartItem),
			ItemsAmount:    money.Zero(),
			DeliveryAmount: money.Zero(),
			TotalAmount:    money.Zero(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session cart: %w", err)
	}

	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session cart: %w", err)
	}
	if state.Items == nil {
		state.Items = make(map[uint]*CartItem)
	}
	return &state, nil
}

func (s *SessionStore) save(ctx context.Context, sessionID string, state *sessionState) error {
	state.UpdatedAt = s.clock.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session cart: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session cart: %w", err)
	}
	if err := s.client.ZAdd(ctx, sessionIndexKey, redis.Z{
		Score:  float64(state.UpdatedAt.Unix()),
		Member: sessionID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index session cart: %w", err)
	}
	return nil
}

// sessionCart implements Cart on top of one session's JSON blob. Each
// operation is load-mutate-save; aggregates are recomputed on every mutation.
type sessionCart struct {
	store     *SessionStore
	sessionID string
}

func (c *sessionCart) AddItem(ctx context.Context, prod *product.Product) (*CartItem, error) {
	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}

	item, ok := state.Items[prod.ID]
	if ok {
		item.Quantity++
		// Increments always take the live catalog price.
		item.UnitPrice = prod.Price
		item.LineTotal = money.LineTotal(item.UnitPrice, item.Quantity)
	} else {
		item = NewItem(prod, c.store.clock.Now())
		state.Items[prod.ID] = item
	}

	if err := c.recalculate(state); err != nil {
		return nil, err
	}
	if err := c.store.save(ctx, c.sessionID, state); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *sessionCart) RemoveItem(ctx context.Context, productID uint) (*CartItem, error) {
	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}

	item, ok := state.Items[productID]
	if !ok {
		return nil, nil
	}
	delete(state.Items, productID)

	if len(state.Items) == 0 {
		if err := c.store.Delete(ctx, c.sessionID); err != nil {
			return nil, err
		}
		return item, nil
	}

	if err := c.recalculate(state); err != nil {
		return nil, err
	}
	if err := c.store.save(ctx, c.sessionID, state); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *sessionCart) Items(ctx context.Context) ([]*CartItem, error) {
	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}

	items := make([]*CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (c *sessionCart) IsEmpty(ctx context.Context) (bool, error) {
	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return false, err
	}
	return len(state.Items) == 0, nil
}

func (c *sessionCart) Totals(ctx context.Context) (Totals, error) {
	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		ItemsAmount:    state.ItemsAmount,
		DeliveryAmount: state.DeliveryAmount,
		TotalAmount:    state.TotalAmount,
	}, nil
}

func (c *sessionCart) UpdateItemPrices(ctx context.Context, changed []*CartItem) error {
	if len(changed) == 0 {
		return nil
	}

	state, err := c.store.load(ctx, c.sessionID)
	if err != nil {
		return err
	}

	for _, upd := range changed {
		if item, ok := state.Items[upd.ProductID]; ok {
			item.UnitPrice = upd.UnitPrice
			item.LineTotal = upd.LineTotal
		}
	}

	if err := c.recalculate(state); err != nil {
		return err
	}
	return c.store.save(ctx, c.sessionID, state)
}

func (c *sessionCart) recalculate(state *sessionState) error {
	items := make([]*CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, item)
	}
	totals, err := c.store.calc.Totals(ItemsAmount(items))
	if err != nil {
		return err
	}
	state.ItemsAmount = totals.ItemsAmount
	state.DeliveryAmount = totals.DeliveryAmount
	state.TotalAmount = totals.TotalAmount
	return nil
}
