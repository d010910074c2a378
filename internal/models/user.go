package models

// Role represents user roles in the system
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleOrgAdmin   Role = "ORG_ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleAccountant Role = "ACCOUNTANT"
	RoleViewer     Role = "VIEWER"
)

// Claims represents JWT claims issued by the identity service
type Claims struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organization_id"`
	Exp            int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleSuperAdmin, RoleOrgAdmin, RoleDispatcher, RoleAccountant, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role has permission for a specific action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleSuperAdmin, RoleOrgAdmin:
		return true
	case RoleAccountant:
		return action == "view_trips" || action == "create_trip" || action == "update_trip" ||
			action == "record_payment" || action == "view_reports"
	case RoleDispatcher:
		return action == "view_trips" || action == "create_trip" || action == "update_trip"
	case RoleViewer:
		return action == "view_trips" || action == "view_reports"
	default:
		return false
	}
}
