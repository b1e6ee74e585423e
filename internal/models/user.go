package models

import (
	"time"
)

// User roles. Token issuance lives in the auth collaborator; this service
// only consumes the uid/role claims.
const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleAdmin      = "admin"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	Role      string    `gorm:"default:'customer'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor identifies who is performing a request, as extracted from the JWT
// claims by the auth middleware.
type Actor struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
