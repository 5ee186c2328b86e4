package auth

// Role of the acting user as carried by the access token.
type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can view the team map and correct punches
	RoleEmployee Role = "employee" // Regular employee
)

// IsManager reports whether the identity may use supervisory endpoints.
func (i Identity) IsManager() bool {
	role := Role(i.Role)
	return role == RoleManager || role == RoleOwner
}
