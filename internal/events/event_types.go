package events

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Actor encapsulates actor metadata for an event. ActorID is empty when the
// system itself (the assignment engine) performed the change.
type Actor struct {
	Role    domain.Role `json:"role,omitempty"`
	ActorID string      `json:"actor_id,omitempty"`
	System  bool        `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID  string `json:"customer_id"`
	ServiceType string `json:"service_type"`
	Title       string `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	EngineerID string `json:"engineer_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	CustomerID string              `json:"customer_id"`
	EngineerID *string             `json:"engineer_id,omitempty"`
}
