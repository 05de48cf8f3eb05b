package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePermissionCreated  = "permission.created"
	EventTypePermissionReviewed = "permission.reviewed"
	EventTypePermissionDeleted  = "permission.deleted"
)

// PermissionEventTypes lists every workflow event, for subscribers that want all of them.
var PermissionEventTypes = []string{
	EventTypePermissionCreated,
	EventTypePermissionReviewed,
	EventTypePermissionDeleted,
}

type PermissionCreatedEvent struct {
	BaseEvent
	PermissionID int64 `json:"permission_id"`
	RequesterID  int64 `json:"requester_id"`
}

func NewPermissionCreatedEvent(permissionID, requesterID int64) *PermissionCreatedEvent {
	return &PermissionCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id": permissionID,
				"requester_id":  requesterID,
			},
		},
		PermissionID: permissionID,
		RequesterID:  requesterID,
	}
}

type PermissionReviewedEvent struct {
	BaseEvent
	PermissionID int64  `json:"permission_id"`
	RequesterID  int64  `json:"requester_id"`
	ReviewerID   int64  `json:"reviewer_id"`
	Status       string `json:"status"`
}

func NewPermissionReviewedEvent(permissionID, requesterID, reviewerID int64, status string) *PermissionReviewedEvent {
	return &PermissionReviewedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionReviewed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id": permissionID,
				"requester_id":  requesterID,
				"reviewer_id":   reviewerID,
				"status":        status,
			},
		},
		PermissionID: permissionID,
		RequesterID:  requesterID,
		ReviewerID:   reviewerID,
		Status:       status,
	}
}

type PermissionDeletedEvent struct {
	BaseEvent
	PermissionID int64 `json:"permission_id"`
	RequesterID  int64 `json:"requester_id"`
}

func NewPermissionDeletedEvent(permissionID, requesterID int64) *PermissionDeletedEvent {
	return &PermissionDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePermissionDeleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"permission_id": permissionID,
				"requester_id":  requesterID,
			},
		},
		PermissionID: permissionID,
		RequesterID:  requesterID,
	}
}
