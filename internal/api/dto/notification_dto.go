package dto

import (
	"time"

	"github.com/opsdesk/task-service/internal/domain"
)

// SendNotificationRequest payload.
type SendNotificationRequest struct {
	Message           string  `json:"message" validate:"required,max=2000"`
	RecipientUsername string  `json:"recipient_username" validate:"required"`
	Kind              string  `json:"kind" validate:"omitempty,oneof=TASK USER OTHER"`
	ReferenceID       *string `json:"reference_id"`
}

// NotificationResponse represents a notification.
type NotificationResponse struct {
	ID          string                  `json:"id"`
	Message     string                  `json:"message"`
	Read        bool                    `json:"read"`
	Kind        domain.NotificationKind `json:"kind"`
	ReferenceID *string                 `json:"reference_id"`
	CreatedAt   time.Time               `json:"created_at"`
}
