package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Role is an enumerated user role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents an account referenced by products (added-by) and reviews
type User struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Name      string         `json:"name" db:"name" validate:"required,max=255"`
	Email     string         `json:"email" db:"email" validate:"required,email"`
	Roles     pq.StringArray `json:"roles" db:"roles" validate:"required,dive,oneof=admin user"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
