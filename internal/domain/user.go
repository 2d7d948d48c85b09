package domain

import "time"

// Role is the closed set of user roles. Adding a role means touching the
// lifecycle transition table, so keep the set explicit.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEngineer Role = "ENGINEER"
	RoleAdmin    Role = "ADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleEngineer, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for anyone known to the directory: customers who
// file tickets, engineers who resolve them, and admins. The role is fixed at
// creation.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
