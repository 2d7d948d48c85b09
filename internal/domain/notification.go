package domain

import "time"

// Notification is a one-way message attached to a user. Created only as a
// side effect of a lifecycle transition; the owning user may mark it read,
// nothing ever deletes it.
type Notification struct {
	ID        string
	UserID    string
	Content   string
	Read      bool
	CreatedAt time.Time
}
