package users

import "fmt"

// Permission is the single capability a user account holds. The model is
// deliberately one permission per account, not a set.
type Permission string

const (
	PermissionCreateBillboards   Permission = "Create Billboards"
	PermissionEditAllBillboards  Permission = "Edit All Billboards"
	PermissionScheduleBillboards Permission = "Schedule Billboards"
	PermissionEditUsers          Permission = "Edit Users"
)

// ParsePermission converts a wire string into a Permission, rejecting
// anything outside the closed set.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionCreateBillboards, PermissionEditAllBillboards,
		PermissionScheduleBillboards, PermissionEditUsers:
		return p, nil
	}
	return "", fmt.Errorf("unknown permission %q", s)
}

// Valid reports whether the permission is one of the closed set.
func (p Permission) Valid() bool {
	_, err := ParsePermission(string(p))
	return err == nil
}

// User is an account record. Password carries different values depending on
// where the record lives: in transit it is the client-side hash of the true
// secret (32 uppercase hex chars); at rest it is the salted stored hash.
// OldPassword is only ever set on update requests, so the server can tell a
// password change apart from a resubmission of the existing one. The salt is
// never part of this record; it is persisted separately, keyed by username.
type User struct {
	Username    string     `json:"username"`
	Password    string     `json:"password,omitempty"`
	OldPassword string     `json:"old_password,omitempty"`
	Permission  Permission `json:"permission"`
}

// Sanitized returns a copy safe to send to clients, with both password
// fields cleared.
func (u User) Sanitized() User {
	u.Password = ""
	u.OldPassword = ""
	return u
}
