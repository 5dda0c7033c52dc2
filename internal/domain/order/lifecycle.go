// internal/domain/order/lifecycle.go
package order

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
)

// Result reports the outcome of a lifecycle transition. Rejections are
// business outcomes carried in the value, not errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}

// Lifecycle drives the order status machine:
// pending -> paid -> shipped -> delivered, with shipped -> paid as the
// back-office correction edge and pending -> expired owned by the sweeper.
type Lifecycle struct {
	orders Repository
	clock  clock.Clock
	logger *logrus.Logger
}

// NewLifecycle creates a new order lifecycle service
func NewLifecycle(orders Repository, clk clock.Clock, log *logrus.Logger) *Lifecycle {
	return &Lifecycle{orders: orders, clock: clk, logger: log}
}

// MarkPaid records a confirmed payment. Only the payment webhook calls this;
// no customer-facing path can move an order to paid.
func (l *Lifecycle) MarkPaid(ctx context.Context, orderID uint) (*Result, error) {
	ord, err := l.orders.Get(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			return &Result{Success: false, Message: "This order does not exist anymore"}, nil
		}
		return nil, err
	}

	if ord.Status != OrderStatusPending {
		// Duplicate webhook deliveries land here; already-paid is not a failure.
		if ord.Status == OrderStatusPaid {
			return &Result{Success: true, Message: "Order is already paid", Order: ord}, nil
		}
		return &Result{Success: false, Message: "Only a pending order can be paid"}, nil
	}

	now := l.clock.Now()
	ord.Status = OrderStatusPaid
	ord.PaidAt = &now
	if err := l.orders.Update(ctx, ord, "status", "paid_at"); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"order_id":     ord.ID,
		"customer_id":  ord.CustomerID,
		"total_amount": ord.TotalAmount.String(),
	}).Info("order paid")
	return &Result{Success: true, Message: "Order paid", Order: ord}, nil
}

// MarkShipped moves a paid order to shipped. Back office only. Tracking info
// is optional and attached when provided.
func (l *Lifecycle) MarkShipped(ctx context.Context, orderID uint, actor Actor, trackingInfo string) (*Result, error) {
	if !actor.IsPrivileged() {
		return &Result{Success: false, Message: "Only back-office staff can ship orders"}, nil
	}

	ord, err := l.orders.Get(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			return &Result{Success: false, Message: "This order does not exist anymore"}, nil
		}
		return nil, err
	}
	if ord.Status != OrderStatusPaid {
		return &Result{Success: false, Message: "Only a paid order can be shipped"}, nil
	}

	now := l.clock.Now()
	ord.Status = OrderStatusShipped
	ord.ShippedAt = &now
	ord.TrackingInfo = trackingInfo
	if err := l.orders.Update(ctx, ord, "status", "shipped_at", "tracking_info"); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"order_id": ord.ID,
		"staff_id": actor.UserID,
	}).Info("order shipped")
	return &Result{Success: true, Message: "Order shipped", Order: ord}, nil
}

// RevertToPaid undoes an erroneous shipment. Back office only. Tracking info
// and the shipped timestamp are cleared.
func (l *Lifecycle) RevertToPaid(ctx context.Context, orderID uint, actor Actor) (*Result, error) {
	if !actor.IsPrivileged() {
		return &Result{Success: false, Message: "Only back-office staff can revert shipments"}, nil
	}

	ord, err := l.orders.Get(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			return &Result{Success: false, Message: "This order does not exist anymore"}, nil
		}
		return nil, err
	}
	if ord.Status != OrderStatusShipped {
		return &Result{Success: false, Message: "Only a shipped order can be reverted to paid"}, nil
	}

	ord.Status = OrderStatusPaid
	ord.ShippedAt = nil
	ord.NotifiedAt = nil
	ord.TrackingInfo = ""
	if err := l.orders.Update(ctx, ord, "status", "shipped_at", "notified_at", "tracking_info"); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"order_id": ord.ID,
		"staff_id": actor.UserID,
	}).Info("order shipment reverted")
	return &Result{Success: true, Message: "Order reverted to paid", Order: ord}, nil
}

// MarkDelivered lets the order's owner confirm receipt, once. Repeat calls
// and calls by anyone else are rejected.
func (l *Lifecycle) MarkDelivered(ctx context.Context, orderID uint, actor Actor) (*Result, error) {
	ord, err := l.orders.Get(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			return &Result{Success: false, Message: "This order does not exist anymore"}, nil
		}
		return nil, err
	}
	if ord.CustomerID != actor.UserID {
		return &Result{Success: false, Message: "Only the order's owner can confirm delivery"}, nil
	}
	if ord.Status != OrderStatusShipped || ord.DeliveredAt != nil {
		return &Result{Success: false, Message: "Only a shipped order can be confirmed as delivered"}, nil
	}

	now := l.clock.Now()
	ord.Status = OrderStatusDelivered
	ord.DeliveredAt = &now
	if err := l.orders.Update(ctx, ord, "status", "delivered_at"); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"order_id":    ord.ID,
		"customer_id": ord.CustomerID,
	}).Info("order delivered")
	return &Result{Success: true, Message: "Delivery confirmed", Order: ord}, nil
}

// MarkNotified records that the customer was told their order shipped, so the
// notification is sent at most once per shipment.
func (l *Lifecycle) MarkNotified(ctx context.Context, orderID uint, actor Actor) (*Result, error) {
	if !actor.IsPrivileged() {
		return &Result{Success: false, Message: "Only back-office staff can send shipment notifications"}, nil
	}

	ord, err := l.orders.Get(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			return &Result{Success: false, Message: "This order does not exist anymore"}, nil
		}
		return nil, err
	}
	if ord.Status != OrderStatusShipped {
		return &Result{Success: false, Message: "Only a shipped order can be notified about"}, nil
	}
	if ord.NotifiedAt != nil {
		return &Result{Success: false, Message: "The customer was already notified"}, nil
	}

	now := l.clock.Now()
	ord.NotifiedAt = &now
	if err := l.orders.Update(ctx, ord, "notified_at"); err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: "Shipment notification recorded", Order: ord}, nil
}
