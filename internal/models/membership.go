package models

// Role controls what a member may do inside a shared group.
type Role string

const (
	// RoleAdmin can modify the group and manage its members.
	RoleAdmin Role = "admin"

	// RoleMember can read the group and record shared expenses.
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Membership links a user to a group with a role.
//
// A (group, user) pair has at most one active membership at a time, but
// inactive rows accumulate as history: removing and re-adding a member
// creates a fresh record rather than reviving the old one. Once a
// membership is inactive it stays inactive.
type Membership struct {
	// ID is the unique identifier for this membership record (UUID format).
	ID string

	// GroupID references the group.
	GroupID string

	// UserID references the user.
	UserID string

	// Role is "admin" or "member".
	Role Role

	// IsActive is false once the member was removed or left.
	IsActive bool

	// JoinedAt is the Unix timestamp when the membership was created.
	JoinedAt int64

	// LeftAt is the Unix timestamp when the membership was deactivated,
	// or 0 while it is still active.
	LeftAt int64
}

// Member is a roster entry: a membership joined with its user's identity.
type Member struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	JoinedAt    int64

	// IsYou marks the entry belonging to the requesting user.
	IsYou bool
}
