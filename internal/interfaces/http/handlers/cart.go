// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/stock"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// AddToCartRequest represents the add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// CartHandler handles cart endpoints for both anonymous and authenticated
// visitors. Anonymous carts live in Redis; a logged-in customer's cart is
// their pending order.
type CartHandler struct {
	sessions  *cart.SessionStore
	orders    order.Repository
	ledger    *stock.Ledger
	engine    *pricing.Engine
	assembler *order.Assembler
	clock     clock.Clock
	logger    *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *cart.SessionStore, orders order.Repository, ledger *stock.Ledger, engine *pricing.Engine, assembler *order.Assembler, clk clock.Clock, log *logrus.Logger) *CartHandler {
	return &CartHandler{
		sessions:  sessions,
		orders:    orders,
		ledger:    ledger,
		engine:    engine,
		assembler: assembler,
		clock:     clk,
		logger:    log,
	}
}

// usesOrderCart reports whether this request's cart is the pending order.
func usesOrderCart(c *gin.Context) (order.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	return actor, ok && !actor.IsPrivileged()
}

type cartPayload struct {
	Items  []*cart.CartItem `json:"items"`
	Totals cart.Totals      `json:"totals"`
}

func payloadOf(ctx context.Context, crt cart.Cart) (*cartPayload, error) {
	items, err := crt.Items(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := crt.Totals(ctx)
	if err != nil {
		return nil, err
	}
	return &cartPayload{Items: items, Totals: totals}, nil
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	ctx := c.Request.Context()

	if actor, ok := usesOrderCart(c); ok {
		ord, err := h.orders.PendingByCustomer(ctx, actor.UserID)
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": &cartPayload{Items: []*cart.CartItem{}}})
			return
		}
		if err != nil {
			h.fail(c, err, "Failed to retrieve cart")
			return
		}
		payload, err := payloadOf(ctx, order.NewPendingCart(h.orders, ord, h.engine, h.clock))
		if err != nil {
			h.fail(c, err, "Failed to retrieve cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": payload, "order_id": ord.ID, "price_diff": ord.PriceDiff})
		return
	}

	sessionID := middleware.GetSessionIDFromContext(c)
	payload, err := payloadOf(ctx, h.sessions.Cart(sessionID))
	if err != nil {
		h.fail(c, err, "Failed to retrieve cart")
		return
	}
	// Reading the cart counts as activity, so push its expiry out.
	if len(payload.Items) > 0 {
		if err := h.sessions.Touch(ctx, sessionID); err != nil {
			h.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to refresh cart expiry")
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

// AddToCart handles POST /cart/items. Stock is reserved first; the item only
// enters the cart if its unit was actually taken off the shelf.
func (h *CartHandler) AddToCart(c *gin.Context) {
	ctx := c.Request.Context()

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	res, err := h.ledger.Reserve(ctx, req.ProductID, 1)
	if err != nil {
		h.fail(c, err, "Failed to reserve stock")
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, gin.H{"error": res.Message})
		return
	}

	if actor, ok := usesOrderCart(c); ok {
		err = h.orders.WithCustomerLock(ctx, actor.UserID, func(repo order.Repository) error {
			ord, _, err := repo.GetOrCreatePending(ctx, actor.UserID)
			if err != nil {
				return err
			}
			_, err = order.NewPendingCart(repo, ord, h.engine, h.clock).AddItem(ctx, res.Product)
			return err
		})
	} else {
		sessionID := middleware.GetSessionIDFromContext(c)
		_, err = h.sessions.Cart(sessionID).AddItem(ctx, res.Product)
	}
	if err != nil {
		// The reservation must not outlive the failed cart write.
		if _, relErr := h.ledger.Release(ctx, res.Product.ID, res.Product.Name, 1); relErr != nil {
			h.logger.WithError(relErr).WithField("product_id", res.Product.ID).
				Error("failed to release reservation after cart write failure")
		}
		h.fail(c, err, "Failed to add item to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

// RemoveFromCart handles DELETE /cart/items/:id. The removed line's reserved
// units go back to the catalog.
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var res *stock.Result
	if actor, ok := usesOrderCart(c); ok {
		err = h.orders.WithCustomerLock(ctx, actor.UserID, func(repo order.Repository) error {
			ord, err := repo.PendingByCustomer(ctx, actor.UserID)
			if errors.Is(err, order.ErrOrderNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			res, err = h.releaseThenRemove(ctx, order.NewPendingCart(repo, ord, h.engine, h.clock), uint(productID))
			return err
		})
	} else {
		sessionID := middleware.GetSessionIDFromContext(c)
		res, err = h.releaseThenRemove(ctx, h.sessions.Cart(sessionID), uint(productID))
	}
	if err != nil {
		h.fail(c, err, "Failed to remove item from cart")
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "This item is not in the cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

// releaseThenRemove returns the line's reserved units to the catalog and only
// then drops the line. A crash between the two leaves surplus stock the next
// release tolerates, never a stranded reservation no sweep can find.
func (h *CartHandler) releaseThenRemove(ctx context.Context, crt cart.Cart, productID uint) (*stock.Result, error) {
	items, err := crt.Items(ctx)
	if err != nil {
		return nil, err
	}
	var target *cart.CartItem
	for _, item := range items {
		if item.ProductID == productID {
			target = item
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	res, err := h.ledger.Release(ctx, target.ProductID, target.ProductName, target.Quantity)
	if err != nil {
		return nil, err
	}
	if _, err := crt.RemoveItem(ctx, productID); err != nil {
		return nil, err
	}
	return res, nil
}

// ClearCart handles DELETE /cart: every line is released and removed, stock
// first, line by line.
func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()

	var err error
	if actor, ok := usesOrderCart(c); ok {
		err = h.orders.WithCustomerLock(ctx, actor.UserID, func(repo order.Repository) error {
			ord, err := repo.PendingByCustomer(ctx, actor.UserID)
			if errors.Is(err, order.ErrOrderNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return h.clearOut(ctx, order.NewPendingCart(repo, ord, h.engine, h.clock))
		})
	} else {
		err = h.clearOut(ctx, h.sessions.Cart(middleware.GetSessionIDFromContext(c)))
	}
	if err != nil {
		h.fail(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// clearOut empties the cart one line at a time so a failure part-way leaves
// the remaining lines, and their reservations, intact and recoverable.
func (h *CartHandler) clearOut(ctx context.Context, crt cart.Cart) error {
	items, err := crt.Items(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err := h.ledger.Release(ctx, item.ProductID, item.ProductName, item.Quantity); err != nil {
			return err
		}
		if _, err := crt.RemoveItem(ctx, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// MergeCart handles POST /cart/merge: the login hand-off that folds the
// anonymous session cart into the customer's pending order.
func (h *CartHandler) MergeCart(c *gin.Context) {
	ctx := c.Request.Context()

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	sessionID := middleware.GetSessionIDFromContext(c)
	ord, err := h.assembler.Build(ctx, h.sessions.Cart(sessionID), actor)
	if err != nil {
		h.fail(c, err, "Failed to merge cart")
		return
	}

	// The session cart is only destroyed once the merge landed, so a failure
	// above leaves it intact for a retry.
	if err := h.sessions.Delete(ctx, sessionID); err != nil {
		h.fail(c, err, "Failed to clear session cart")
		return
	}

	if ord == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Cart merged", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart merged", "data": ord})
}

func (h *CartHandler) fail(c *gin.Context, err error, msg string) {
	h.logger.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
