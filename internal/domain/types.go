package domain

// Account roles. A single email may hold one account per role.
const (
	RolePassenger = "PASSENGER"
	RoleDriver    = "DRIVER"
)

// RequestContext carries the authenticated caller decoded from the session token.
type RequestContext struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

func (rc RequestContext) IsDriver() bool    { return rc.Role == RoleDriver }
func (rc RequestContext) IsPassenger() bool { return rc.Role == RolePassenger }

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RolePassenger || role == RoleDriver
}
