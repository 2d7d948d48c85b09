package dto

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	ServiceType string `json:"service_type"`
	Description string `json:"description"`
}

// TransitionTicketRequest payload.
type TransitionTicketRequest struct {
	TargetStatus domain.TicketStatus `json:"target_status"`
	Solution     string              `json:"solution,omitempty"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string              `json:"id"`
	ExternalKey string              `json:"external_key"`
	CustomerID  string              `json:"customer_id"`
	EngineerID  *string             `json:"engineer_id,omitempty"`
	Title       string              `json:"title"`
	ServiceType string              `json:"service_type"`
	Description string              `json:"description"`
	Solution    *string             `json:"solution,omitempty"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at,omitempty"`
}

// FromTicket maps a domain ticket into its response form.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		CustomerID:  ticket.CustomerID,
		EngineerID:  ticket.EngineerID,
		Title:       ticket.Title,
		ServiceType: ticket.ServiceType,
		Description: ticket.Description,
		Solution:    ticket.Solution,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
}
