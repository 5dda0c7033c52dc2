package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/clock"
)

func newLifecycleFixture(t *testing.T, status OrderStatus) (*Lifecycle, *fakeRepo, *Order) {
	t.Helper()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	ord := &Order{ID: 1, CustomerID: 42, Status: status, CreatedAt: now}
	repo.orders[ord.ID] = ord
	return NewLifecycle(repo, clock.NewFixed(now), testLogger()), repo, ord
}

func TestLifecycle_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order becomes paid", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPending)

		res, err := lc.MarkPaid(ctx, ord.ID)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, OrderStatusPaid, ord.Status)
		require.NotNil(t, ord.PaidAt)
	})

	t.Run("duplicate payment confirmation is idempotent", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPending)

		_, err := lc.MarkPaid(ctx, ord.ID)
		require.NoError(t, err)
		res, err := lc.MarkPaid(ctx, ord.ID)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "already paid")
	})

	t.Run("shipped order cannot be paid again", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)

		res, err := lc.MarkPaid(ctx, ord.ID)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("missing order reports gone", func(t *testing.T) {
		lc, _, _ := newLifecycleFixture(t, OrderStatusPending)

		res, err := lc.MarkPaid(ctx, 999)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "does not exist")
	})
}

func TestLifecycle_MarkShipped(t *testing.T) {
	ctx := context.Background()
	staff := Actor{UserID: 7, Role: RoleStaff}

	t.Run("staff ships a paid order with tracking info", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPaid)

		res, err := lc.MarkShipped(ctx, ord.ID, staff, "TRACK-123")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, OrderStatusShipped, ord.Status)
		assert.Equal(t, "TRACK-123", ord.TrackingInfo)
		require.NotNil(t, ord.ShippedAt)
	})

	t.Run("customers cannot ship", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPaid)

		res, err := lc.MarkShipped(ctx, ord.ID, Actor{UserID: 42, Role: RoleCustomer}, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, OrderStatusPaid, ord.Status)
	})

	t.Run("pending order cannot be shipped", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPending)

		res, err := lc.MarkShipped(ctx, ord.ID, staff, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestLifecycle_RevertToPaid(t *testing.T) {
	ctx := context.Background()
	staff := Actor{UserID: 7, Role: RoleSeller}

	t.Run("shipped order reverts and tracking is cleared", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)
		shipped := ord.CreatedAt
		ord.ShippedAt = &shipped
		ord.NotifiedAt = &shipped
		ord.TrackingInfo = "TRACK-123"

		res, err := lc.RevertToPaid(ctx, ord.ID, staff)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, OrderStatusPaid, ord.Status)
		assert.Nil(t, ord.ShippedAt)
		assert.Nil(t, ord.NotifiedAt)
		assert.Empty(t, ord.TrackingInfo)
	})

	t.Run("only shipped orders revert", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPaid)

		res, err := lc.RevertToPaid(ctx, ord.ID, staff)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("customers cannot revert", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)

		res, err := lc.RevertToPaid(ctx, ord.ID, Actor{UserID: 42, Role: RoleCustomer})
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestLifecycle_MarkDelivered(t *testing.T) {
	ctx := context.Background()
	owner := Actor{UserID: 42, Role: RoleCustomer}

	t.Run("owner confirms delivery once", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)

		res, err := lc.MarkDelivered(ctx, ord.ID, owner)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, OrderStatusDelivered, ord.Status)
		require.NotNil(t, ord.DeliveredAt)

		res, err = lc.MarkDelivered(ctx, ord.ID, owner)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("someone else's order cannot be confirmed", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)

		res, err := lc.MarkDelivered(ctx, ord.ID, Actor{UserID: 13, Role: RoleCustomer})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, OrderStatusShipped, ord.Status)
	})

	t.Run("paid order cannot skip to delivered", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPaid)

		res, err := lc.MarkDelivered(ctx, ord.ID, owner)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestLifecycle_MarkNotified(t *testing.T) {
	ctx := context.Background()
	staff := Actor{UserID: 7, Role: RoleStaff}

	t.Run("records the notification once", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusShipped)

		res, err := lc.MarkNotified(ctx, ord.ID, staff)
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.NotNil(t, ord.NotifiedAt)

		res, err = lc.MarkNotified(ctx, ord.ID, staff)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "already notified")
	})

	t.Run("requires a shipped order", func(t *testing.T) {
		lc, _, ord := newLifecycleFixture(t, OrderStatusPaid)

		res, err := lc.MarkNotified(ctx, ord.ID, staff)
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}
