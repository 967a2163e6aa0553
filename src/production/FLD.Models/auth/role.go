package auth_models

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether role is one the API accepts
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
