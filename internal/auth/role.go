package auth

// Role is the account type of a member and the unit of authorization.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated caller of a request. It is resolved once by
// middleware and handed explicitly to every service operation.
type Principal struct {
	MemberID uint
	Role     Role
}

// Is reports whether the principal holds the role.
func (p Principal) Is(r Role) bool { return p.Role == r }
