package events

import (
	"context"
	"log/slog"
)

// RegisterAuditLog writes one structured log line per workflow event.
func RegisterAuditLog(bus *EventBus, logger *slog.Logger) {
	for _, eventType := range PermissionEventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, event Event) error {
			logger.InfoContext(ctx, "audit",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"occurred_at", event.OccurredAt(),
				"payload", event.Payload())
			return nil
		})
	}
}
