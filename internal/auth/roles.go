package auth

// Role is a user's access level.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleLecturer Role = "LECTURER"
	RoleStudent  Role = "STUDENT"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleStudent:
		return true
	}
	return false
}

// Authorize reports whether caller is one of the required roles. An empty or
// unknown caller role never authorizes.
func Authorize(caller Role, required ...Role) bool {
	if !ValidRole(caller) {
		return false
	}
	for _, r := range required {
		if caller == r {
			return true
		}
	}
	return false
}
