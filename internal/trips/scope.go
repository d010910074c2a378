package trips

import (
	"fmt"

	"github.com/ukydev/fleet-settlement/internal/models"
)

// Scope is the caller's tenant context, supplied by the auth layer.
type Scope struct {
	OrganizationID string
	Role           models.Role
}

// ScopeFromClaims builds a scope from validated token claims.
func ScopeFromClaims(c *models.Claims) Scope {
	if c == nil {
		return Scope{}
	}
	return Scope{OrganizationID: c.OrganizationID, Role: c.Role}
}

// IsSuperAdmin reports whether the caller may cross organizations.
func (s Scope) IsSuperAdmin() bool {
	return s.Role == models.RoleSuperAdmin
}

// readOrg returns the organization a read is pinned to. For super admins an
// empty result means every organization.
func (s Scope) readOrg(requested string) (string, error) {
	if s.IsSuperAdmin() {
		return requested, nil
	}
	if s.OrganizationID == "" {
		return "", ErrForbidden
	}
	if requested != "" && requested != s.OrganizationID {
		return "", fmt.Errorf("%w: organization %s", ErrForbidden, requested)
	}
	return s.OrganizationID, nil
}

// writeOrg returns the organization a new trip belongs to.
func (s Scope) writeOrg(requested string) (string, error) {
	if s.IsSuperAdmin() {
		if requested != "" {
			return requested, nil
		}
		if s.OrganizationID != "" {
			return s.OrganizationID, nil
		}
		return "", fmt.Errorf("%w: organization_id is required", ErrValidation)
	}
	return s.readOrg(requested)
}

// recordOrg is the organization filter for lookups by id.
func (s Scope) recordOrg() (string, error) {
	return s.readOrg("")
}
