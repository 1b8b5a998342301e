package access

import (
	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/models"
)

// Principal is the authenticated actor of a request. It is built once by the
// authentication middleware and never mutated afterwards.
type Principal struct {
	ID   uuid.UUID
	Role models.UserRole
}

// NewPrincipal validates the role at the authentication boundary so that
// individual checks never see a value outside the three platform roles.
func NewPrincipal(id uuid.UUID, role string) (*Principal, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &Principal{ID: id, Role: r}, nil
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

func (p *Principal) HasRole(roles ...models.UserRole) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
