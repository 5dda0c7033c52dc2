// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// ErrBadSignature is returned when a webhook payload fails verification
var ErrBadSignature = errors.New("webhook signature mismatch")

// CheckoutSession is what the provider hands back when a payment session is
// opened: where to send the customer and how to correlate the webhook later.
type CheckoutSession struct {
	SessionID   string          `json:"session_id"`
	RedirectURL string          `json:"redirect_url"`
	Amount      decimal.Decimal `json:"amount"`
}

// Outcome is the verified content of a provider webhook.
type Outcome struct {
	OrderID     uint   `json:"order_id"`
	Transaction string `json:"transaction"`
	Succeeded   bool   `json:"succeeded"`
}

// Gateway abstracts the external payment provider.
type Gateway interface {
	// CreateSession opens a payment session for the order's total amount. The
	// context carries the provider call deadline.
	CreateSession(ctx context.Context, ord *order.Order) (*CheckoutSession, error)
	// VerifyWebhook checks the payload signature and decodes the outcome.
	VerifyWebhook(payload []byte, signature string) (*Outcome, error)
}

// FakepayGateway is the development provider: sessions resolve instantly and
// webhooks are signed with a shared HMAC secret, mirroring how the real
// provider integration verifies deliveries.
type FakepayGateway struct {
	baseURL string
	secret  []byte
}

// NewFakepayGateway creates the development payment gateway.
func NewFakepayGateway(baseURL, webhookSecret string) *FakepayGateway {
	return &FakepayGateway{baseURL: baseURL, secret: []byte(webhookSecret)}
}

func (g *FakepayGateway) CreateSession(ctx context.Context, ord *order.Order) (*CheckoutSession, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("payment session not created: %w", ctx.Err())
	default:
	}

	sessionID := uuid.New().String()
	return &CheckoutSession{
		SessionID:   sessionID,
		RedirectURL: fmt.Sprintf("%s/pay/%s", g.baseURL, sessionID),
		Amount:      ord.TotalAmount,
	}, nil
}

func (g *FakepayGateway) VerifyWebhook(payload []byte, signature string) (*Outcome, error) {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var outcome Outcome
	if err := json.Unmarshal(payload, &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return &outcome, nil
}

// SignWebhook produces the signature the gateway expects for a payload. Used
// by the development provider's own callbacks.
func (g *FakepayGateway) SignWebhook(payload []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
