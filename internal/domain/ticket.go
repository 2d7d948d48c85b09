package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusConfirmed  TicketStatus = "CONFIRMED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Terminal reports whether no further transitions are accepted from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusConfirmed || s == TicketStatusClosed
}

// Ticket is the aggregate for support requests.
//
// EngineerID is set exactly while the ticket is IN_PROGRESS, RESOLVED or
// CONFIRMED; it is always nil while OPEN. Version guards every write: the
// store only accepts an update carrying the version the writer observed.
type Ticket struct {
	ID          string
	ExternalKey string
	CustomerID  string
	EngineerID  *string
	Title       string
	ServiceType string
	Description string
	Solution    *string
	Status      TicketStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
