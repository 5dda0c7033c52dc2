// internal/tasks/sweeper.go
package tasks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/stock"
)

// Sweeper periodically returns reserved stock held by abandoned carts. Stock
// is always released before the holder is expired or deleted, so a crash
// between the two steps re-releases on the next pass instead of leaking
// reserved units.
type Sweeper struct {
	orders        order.Repository
	sessions      *cart.SessionStore
	ledger        *stock.Ledger
	interval      time.Duration
	orderCutoff   time.Duration
	sessionCutoff time.Duration
	clock         clock.Clock
	logger        *logrus.Logger
}

// NewSweeper creates a new abandoned cart sweeper
func NewSweeper(orders order.Repository, sessions *cart.SessionStore, ledger *stock.Ledger, interval, orderCutoff, sessionCutoff time.Duration, clk clock.Clock, log *logrus.Logger) *Sweeper {
	return &Sweeper{
		orders:        orders,
		sessions:      sessions,
		ledger:        ledger,
		interval:      interval,
		orderCutoff:   orderCutoff,
		sessionCutoff: sessionCutoff,
		clock:         clk,
		logger:        log,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both passes once. Errors are logged, not returned: the next tick
// retries whatever this one could not finish.
func (s *Sweeper) Sweep(ctx context.Context) {
	if err := s.SweepPendingOrders(ctx); err != nil {
		s.logger.WithError(err).Error("pending order sweep failed")
	}
	if err := s.SweepSessionCarts(ctx); err != nil {
		s.logger.WithError(err).Error("session cart sweep failed")
	}
}

// SweepPendingOrders expires pending orders past the cutoff, returning their
// reserved stock first. An order whose release fails is left pending for the
// next pass.
func (s *Sweeper) SweepPendingOrders(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.orderCutoff)
	stale, err := s.orders.StalePending(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	released := make([]uint, 0, len(stale))
	for _, ord := range stale {
		ok := true
		for i := range ord.Items {
			item := &ord.Items[i]
			if _, err := s.ledger.Release(ctx, item.ProductIDSnapshot, item.ProductName, item.Quantity); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"order_id":   ord.ID,
					"product_id": item.ProductIDSnapshot,
				}).Error("failed to release stale order stock")
				ok = false
				break
			}
		}
		if ok {
			released = append(released, ord.ID)
		}
	}

	if err := s.orders.ExpireOrders(ctx, released, s.clock.Now()); err != nil {
		return err
	}
	s.logger.WithField("expired", len(released)).Info("expired stale pending orders")
	return nil
}

// SweepSessionCarts deletes session carts past the cutoff, returning their
// reserved stock first.
func (s *Sweeper) SweepSessionCarts(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.sessionCutoff)
	stale, err := s.sessions.StaleSessions(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	swept := 0
	for _, sessionID := range stale {
		items, err := s.sessions.Cart(sessionID).Items(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to load stale session cart")
			continue
		}

		ok := true
		for _, item := range items {
			if _, err := s.ledger.Release(ctx, item.ProductID, item.ProductName, item.Quantity); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"session_id": sessionID,
					"product_id": item.ProductID,
				}).Error("failed to release stale session stock")
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to delete stale session cart")
			continue
		}
		swept++
	}

	s.logger.WithField("swept", swept).Info("swept stale session carts")
	return nil
}
