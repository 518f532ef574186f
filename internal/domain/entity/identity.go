package entity

// Role constants for authenticated identities
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Identity is the result of resolving an opaque bearer token. Token issuance
// and the user directory live outside this service.
type Identity struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
}

// CanApprove reports whether the role may record approval decisions.
func (i Identity) CanApprove() bool {
	return i.Role == RoleAdmin || i.Role == RoleMember
}
