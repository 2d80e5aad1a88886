package auth

import (
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

// Account represents an authenticatable user account.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
