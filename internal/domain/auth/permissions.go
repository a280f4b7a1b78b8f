package auth

import "context"

const (
	PermNotificationsRead    = "notifications.read"
	PermFeedbackCyclesCreate = "performance.feedback_cycles.create"
	PermUsersAdmin           = "admin.users"
	PermAuditRead            = "admin.audit.read"
)

var DefaultPermissions = []string{
	PermNotificationsRead,
	PermFeedbackCyclesCreate,
	PermUsersAdmin,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermNotificationsRead,
	},
	RoleManager: {
		PermNotificationsRead,
		PermFeedbackCyclesCreate,
	},
	RoleAdmin: {
		PermNotificationsRead,
		PermFeedbackCyclesCreate,
		PermUsersAdmin,
		PermAuditRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions. Roles are
// fixed in this system, so there is no role_permissions table to consult.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}
