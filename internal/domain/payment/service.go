// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
)

// CheckoutRequest carries the shipping details collected at checkout.
type CheckoutRequest struct {
	Email          string `json:"email" binding:"required,email,max=40"`
	FirstName      string `json:"first_name" binding:"required,max=56"`
	LastName       string `json:"last_name" binding:"required,max=56"`
	Phone          string `json:"phone" binding:"required,max=24"`
	Country        string `json:"country" binding:"required,max=56"`
	City           string `json:"city" binding:"required,max=56"`
	PostalCode     string `json:"postal_code" binding:"required,max=16"`
	Street         string `json:"street" binding:"required,max=56"`
	HouseNumber    string `json:"house_number" binding:"required,max=16"`
	Apartment      string `json:"apartment" binding:"max=16"`
	AdditionalInfo string `json:"additional_info" binding:"max=128"`
}

// CheckoutResult is the outcome of a checkout attempt. PriceDiff means the
// order's prices moved since the customer last saw them; the checkout is
// halted so they can review before paying.
type CheckoutResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	PriceDiff   bool         `json:"price_diff,omitempty"`
	RedirectURL string       `json:"redirect_url,omitempty"`
	Order       *order.Order `json:"order,omitempty"`
}

// Service drives checkout and payment confirmation.
type Service struct {
	orders    order.Repository
	payments  Store
	engine    *pricing.Engine
	lifecycle *order.Lifecycle
	gateway   Gateway
	provider  string
	timeout   time.Duration
	clock     clock.Clock
	logger    *logrus.Logger
}

// NewService creates a new payment service
func NewService(orders order.Repository, payments Store, engine *pricing.Engine, lifecycle *order.Lifecycle, gateway Gateway, provider string, timeout time.Duration, clk clock.Clock, log *logrus.Logger) *Service {
	return &Service{
		orders:    orders,
		payments:  payments,
		engine:    engine,
		lifecycle: lifecycle,
		gateway:   gateway,
		provider:  provider,
		timeout:   timeout,
		clock:     clk,
		logger:    log,
	}
}

var shippingFields = []string{
	"shipping_email", "shipping_first_name", "shipping_last_name",
	"shipping_phone", "shipping_country", "shipping_city",
	"shipping_postal_code", "shipping_street", "shipping_house_number",
	"shipping_apartment", "shipping_additional_info",
}

// InitiateCheckout re-syncs the pending order's prices, snapshots the
// shipping address onto it and opens a payment session. A price drift halts
// the checkout instead of silently charging a different total. A provider
// timeout leaves the order pending so the customer can retry.
func (s *Service) InitiateCheckout(ctx context.Context, actor order.Actor, req *CheckoutRequest) (*CheckoutResult, error) {
	var result *CheckoutResult
	err := s.orders.WithCustomerLock(ctx, actor.UserID, func(repo order.Repository) error {
		ord, err := repo.PendingByCustomer(ctx, actor.UserID)
		if errors.Is(err, order.ErrOrderNotFound) {
			result = &CheckoutResult{Success: false, Message: "You have no pending order to check out"}
			return nil
		}
		if err != nil {
			return err
		}

		pending := order.NewPendingCart(repo, ord, s.engine, s.clock)
		changed, err := s.engine.Sync(ctx, pending)
		if err != nil {
			return err
		}
		if changed {
			ord.PriceDiff = true
			if err := repo.Update(ctx, ord, "price_diff"); err != nil {
				return err
			}
			result = &CheckoutResult{
				Success:   false,
				PriceDiff: true,
				Message:   "Some prices changed while you were shopping, please review your order",
				Order:     ord,
			}
			return nil
		}

		ord.Shipping = order.ShippingAddress{
			Email:          req.Email,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Phone:          req.Phone,
			Country:        req.Country,
			City:           req.City,
			PostalCode:     req.PostalCode,
			Street:         req.Street,
			HouseNumber:    req.HouseNumber,
			Apartment:      req.Apartment,
			AdditionalInfo: req.AdditionalInfo,
		}
		if err := repo.Update(ctx, ord, shippingFields...); err != nil {
			return err
		}

		sessionCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		session, err := s.gateway.CreateSession(sessionCtx, ord)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.logger.WithFields(logrus.Fields{
					"order_id": ord.ID,
					"provider": s.provider,
				}).Warn("payment provider timed out, order stays pending")
				result = &CheckoutResult{Success: false, Message: "The payment provider did not respond, please try again"}
				return nil
			}
			return err
		}

		if err := s.payments.Save(ctx, &Payment{
			OrderID:   ord.ID,
			Provider:  s.provider,
			SessionID: session.SessionID,
			Amount:    ord.TotalAmount,
			Status:    PaymentStatusInitiated,
		}); err != nil {
			return err
		}

		s.logger.WithFields(logrus.Fields{
			"order_id":   ord.ID,
			"session_id": session.SessionID,
			"amount":     session.Amount.String(),
		}).Info("checkout session opened")

		result = &CheckoutResult{
			Success:     true,
			Message:     "Checkout session created",
			RedirectURL: session.RedirectURL,
			Order:       ord,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandleWebhook verifies a provider delivery and applies its outcome. A
// confirmed payment is the only path that moves an order to paid.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*order.Result, error) {
	outcome, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return nil, err
	}

	pay, err := s.payments.LatestByOrder(ctx, outcome.OrderID)
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	if !outcome.Succeeded {
		if pay != nil {
			pay.Status = PaymentStatusFailed
			pay.Transaction = outcome.Transaction
			if err := s.payments.Save(ctx, pay); err != nil {
				return nil, err
			}
		}
		s.logger.WithField("order_id", outcome.OrderID).Info("payment failed, order stays pending")
		return &order.Result{Success: true, Message: "Payment failure recorded"}, nil
	}

	res, err := s.lifecycle.MarkPaid(ctx, outcome.OrderID)
	if err != nil {
		return nil, err
	}
	if res.Success && pay != nil {
		now := s.clock.Now()
		pay.Status = PaymentStatusSucceeded
		pay.Transaction = outcome.Transaction
		pay.PaidAt = &now
		if err := s.payments.Save(ctx, pay); err != nil {
			return nil, err
		}
	}
	return res, nil
}
