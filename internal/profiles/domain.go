package profiles

import (
	"errors"
	"time"

	"github.com/meridian-crm/meridian-crm/internal/authz"
)

var ErrEmailTaken = errors.New("email already registered")

// Profile is a user account row. The same table backs role resolution, so a
// deactivated profile stops authorizing immediately.
type Profile struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=user finance admin"`
}

type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

func (p *Profile) authzRecord() authz.Record {
	return authz.Record{SelfID: p.ID}
}
