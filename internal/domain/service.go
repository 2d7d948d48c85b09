package domain

// Service is a catalog entry validating the service-type field of a ticket.
// Read-mostly reference data seeded at deployment.
type Service struct {
	ID   string
	Name string
}
