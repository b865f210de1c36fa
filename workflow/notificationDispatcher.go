package workflow

import (
	"context"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/models"
)

// Notifier delivers a composed payload to a recipient set. Delivery is
// best-effort: the order mutation that triggered it is already
// committed and stands whatever happens here.
type Notifier interface {
	Notify(ctx context.Context, eventType string, fc FanoutContext)
}

// PushNotifier resolves recipients through the fan-out policy and
// hands the message to the external push delivery layer. Retry,
// backoff and stale-token pruning live there, not here.
type PushNotifier struct{}

func NewPushNotifier() *PushNotifier {
	return &PushNotifier{}
}

func (n *PushNotifier) Notify(ctx context.Context, eventType string, fc FanoutContext) {
	logger := config.GetLogger()

	users, err := models.GetUsersWithDeviceTokens(ctx)
	if err != nil {
		config.LogError(logger, "notificationDispatcher.go", "Notify", "load notification candidates", eventType, err)
		return
	}

	recipients := RecipientsFor(eventType, fc, users)
	if len(recipients) == 0 {
		return
	}

	payload := PayloadFor(eventType, fc)
	msg := config.PushMessage{
		Recipients: recipients,
		Title:      payload.Title,
		Body:       payload.Body,
		Priority:   payload.Priority,
		DeepLink:   payload.DeepLink,
	}
	if fc.OrderNumber != "" {
		msg.Data = map[string]string{"order_number": fc.OrderNumber}
	}

	if err := config.PublishPushMessage(msg); err != nil {
		config.LogError(logger, "notificationDispatcher.go", "Notify", "publish push message", eventType, err)
	}
}

// NopNotifier drops every notification. Used by tests and by tools
// that mutate data outside the interactive flow.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, eventType string, fc FanoutContext) {}
