package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/permission-management/internal/core/events"
	"github.com/frahmantamala/permission-management/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish workflow events through the in-process bus and its audit subscriber.`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a permission event",
	Long:      `Publish permission.created, permission.reviewed or permission.deleted to the audit log for debugging`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: events.PermissionEventTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := buildEvent(args[0])
		if err != nil {
			return err
		}
		return publishEvent(cmd.Context(), event)
	},
}

var (
	eventPermissionID int64
	eventRequesterID  int64
	eventReviewerID   int64
	eventStatus       string
)

func buildEvent(eventType string) (events.Event, error) {
	switch eventType {
	case events.EventTypePermissionCreated:
		return events.NewPermissionCreatedEvent(eventPermissionID, eventRequesterID), nil
	case events.EventTypePermissionReviewed:
		return events.NewPermissionReviewedEvent(eventPermissionID, eventRequesterID, eventReviewerID, eventStatus), nil
	case events.EventTypePermissionDeleted:
		return events.NewPermissionDeletedEvent(eventPermissionID, eventRequesterID), nil
	}
	return nil, fmt.Errorf("unknown event type %q, want one of %v", eventType, events.PermissionEventTypes)
}

func publishEvent(ctx context.Context, event events.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	events.RegisterAuditLog(bus, lg)

	lg.Info("publishing event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventPermissionID, "permission-id", 1, "permission request id")
	publishEventCmd.Flags().Int64Var(&eventRequesterID, "requester-id", 1, "requesting student id")
	publishEventCmd.Flags().Int64Var(&eventReviewerID, "reviewer-id", 2, "reviewer id (permission.reviewed only)")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "approved", "review outcome (permission.reviewed only)")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
