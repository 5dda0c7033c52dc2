// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles checkout and payment webhook endpoints
type PaymentHandler struct {
	payments *payment.Service
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *payment.Service, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: log}
}

// Checkout handles POST /checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req payment.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	res, err := h.payments.InitiateCheckout(c.Request.Context(), actor, &req)
	if err != nil {
		h.logger.WithError(err).Error("checkout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}
	if !res.Success {
		status := http.StatusConflict
		if res.PriceDiff {
			// The order is still usable, the customer just has to look again.
			status = http.StatusOK
		}
		c.JSON(status, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Webhook handles POST /webhooks/payment. The provider signs each delivery;
// anything unverifiable is rejected before touching an order.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}
	signature := c.GetHeader("X-Payment-Signature")

	res, err := h.payments.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		h.logger.WithError(err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, gin.H{"error": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}
