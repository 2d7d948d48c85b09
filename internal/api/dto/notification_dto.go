package dto

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// NotificationResponse representation.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// FromNotification maps a domain notification into its response form.
func FromNotification(notification *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		Content:   notification.Content,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}
