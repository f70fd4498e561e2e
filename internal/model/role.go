package model

// Role is an ordered privilege level stored on the user record and
// snapshotted into session tokens at issuance. Roles are plain integers
// so that a simple numeric comparison answers "is this role at least
// that one". The gaps between values leave room for intermediate levels
// without renumbering existing rows.
type Role int

const (
	RolePublic Role = 0   // unauthenticated / lowest privilege
	RoleUser   Role = 100 // normal registered user
	RoleAdmin  Role = 200 // may act on any resource
)

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool { return r >= min }

// String returns a human-readable name for logging. Unknown values are
// rendered as USER-relative so a bad row is still visible in logs.
func (r Role) String() string {
	switch r {
	case RolePublic:
		return "PUBLIC"
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	}
	return "UNKNOWN"
}
