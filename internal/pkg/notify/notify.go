// internal/pkg/notify/notify.go
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Notifier tells a customer their order shipped. The delivery channel is an
// integration detail; callers only care that it happened once.
type Notifier interface {
	OrderShipped(ctx context.Context, ord *order.Order) error
}

// LogNotifier writes the notification to the log instead of a mail provider.
// It stands in until the transactional mail integration lands.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) OrderShipped(ctx context.Context, ord *order.Order) error {
	n.logger.WithFields(logrus.Fields{
		"order_id":      ord.ID,
		"email":         ord.Shipping.Email,
		"tracking_info": ord.TrackingInfo,
	}).Info("shipment notification sent")
	return nil
}
