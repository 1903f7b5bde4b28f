// gatekeeper/util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
)

// NotificationService reports administrative changes. For now the only sink
// is the log.
type NotificationService struct {
	notified func(eventType string)
}

func NewNotificationService() *NotificationService {
	return &NotificationService{notified: func(string) {}}
}

// Subscribe notifies on every event of the given types.
func (n *NotificationService) Subscribe(bus *EventBus, eventTypes ...string) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event Event) error {
	if event.Payload == nil {
		return fmt.Errorf("empty %s notification", event.Type)
	}
	logger.Info("NOTIFICATION: security configuration changed",
		zap.String("eventType", event.Type),
		zap.Any("change", event.Payload))
	n.notified(event.Type)
	return nil
}
