package auth

const (
	RoleEmployee = "EMPLOYEE"
	RoleManager  = "MANAGER"
	RoleAdmin    = "ADMIN"
)

var Roles = []string{RoleEmployee, RoleManager, RoleAdmin}

func ValidRole(role string) bool {
	for _, candidate := range Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// UserContext is what the auth middleware stores on the request context.
type UserContext struct {
	UserID   string
	RoleName string
}

// Requester is the caller identity handed to domain services.
type Requester struct {
	ID   string
	Role string
}

func (u UserContext) Requester() Requester {
	return Requester{ID: u.UserID, Role: u.RoleName}
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}

func (r Requester) IsManager() bool {
	return r.Role == RoleManager
}
