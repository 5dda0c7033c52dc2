// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/notify"
)

// ShipOrderRequest represents the ship order request
type ShipOrderRequest struct {
	TrackingInfo string `json:"tracking_info" binding:"max=128"`
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders    order.Repository
	lifecycle *order.Lifecycle
	notifier  notify.Notifier
	logger    *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders order.Repository, lifecycle *order.Lifecycle, notifier notify.Notifier, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		lifecycle: lifecycle,
		notifier:  notifier,
		logger:    log,
	}
}

// ListOrders handles GET /orders. Customers see their own orders; back-office
// actors see everyone's.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	filter := order.ListFilter{
		CustomerID: actor.UserID,
		Status:     order.OrderStatus(c.Query("status")),
		Limit:      20,
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && limit >= 1 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && offset > 0 {
		filter.Offset = offset
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since date, expected YYYY-MM-DD"})
			return
		}
		filter.Since = t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse("2006-01-02", until)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid until date, expected YYYY-MM-DD"})
			return
		}
		filter.Until = t
	}

	if actor.IsPrivileged() {
		filter.CustomerID = 0
		if param := c.Query("customer_id"); param != "" {
			if id, err := strconv.ParseUint(param, 10, 32); err == nil {
				filter.CustomerID = uint(id)
			}
		}
	}

	orders, total, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": orders,
		"pagination": gin.H{
			"total":  total,
			"limit":  filter.Limit,
			"offset": filter.Offset,
		},
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	ord, err := h.orders.Get(c.Request.Context(), uint(id))
	if errors.Is(err, order.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order"})
		return
	}

	if ord.CustomerID != actor.UserID && !actor.IsPrivileged() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ord})
}

// ShipOrder handles POST /orders/:id/ship (back office)
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	actor, _ := middleware.GetActorFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	// The body is optional; shipping without tracking info is allowed.
	var req ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	res, err := h.lifecycle.MarkShipped(c.Request.Context(), uint(id), actor, req.TrackingInfo)
	h.respond(c, res, err)
}

// RevertShipment handles POST /orders/:id/revert-shipment (back office)
func (h *OrderHandler) RevertShipment(c *gin.Context) {
	actor, _ := middleware.GetActorFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	res, err := h.lifecycle.RevertToPaid(c.Request.Context(), uint(id), actor)
	h.respond(c, res, err)
}

// ConfirmDelivery handles POST /orders/:id/deliver (order owner)
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	res, err := h.lifecycle.MarkDelivered(c.Request.Context(), uint(id), actor)
	h.respond(c, res, err)
}

// NotifyShipped handles POST /orders/:id/notify (back office). Sends the
// shipment notification and records it so it goes out at most once.
func (h *OrderHandler) NotifyShipped(c *gin.Context) {
	actor, _ := middleware.GetActorFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	res, err := h.lifecycle.MarkNotified(c.Request.Context(), uint(id), actor)
	if err == nil && res.Success {
		if notifyErr := h.notifier.OrderShipped(c.Request.Context(), res.Order); notifyErr != nil {
			h.logger.WithError(notifyErr).WithField("order_id", id).Error("failed to send shipment notification")
		}
	}
	h.respond(c, res, err)
}

func (h *OrderHandler) respond(c *gin.Context, res *order.Result, err error) {
	if err != nil {
		h.logger.WithError(err).Error("order operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order operation failed"})
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, gin.H{"error": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message, "data": res.Order})
}
