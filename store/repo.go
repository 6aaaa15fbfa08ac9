// Package store defines the persistence contract the dispatch core calls
// into. Implementations own all billboard, schedule, user and salt rows; the
// core never mutates them directly.
package store

import (
	"errors"

	"github.com/billboardcp/billboard-server/billboard"
	"github.com/billboardcp/billboard-server/users"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameExists is returned by AddUser on a duplicate username. It
	// is kept distinct from authorization failures so callers can report a
	// conflict rather than a denial.
	ErrUsernameExists = errors.New("username already exists")
)

type Repository interface {
	// Users and salts. A user's stored Password field holds the salted
	// hash; the salt itself lives in its own table, keyed by username, and
	// is never handed to clients. DeleteUser removes the salt row too.
	GetSalt(username string) (string, error)
	GetPassword(username string) (string, error)
	GetPermission(username string) (users.Permission, error)
	GetUsers() ([]users.User, error)
	AddUser(u users.User) error
	UpdateUser(u users.User) error
	DeleteUser(username string) error
	AddSalt(username, salt string) error

	// Billboards.
	GetBillboards() ([]billboard.Billboard, error)
	AddBillboard(b billboard.Billboard) error
	UpdateBillboard(b billboard.Billboard) error
	DeleteBillboard(name string) error
	GetRenderedContent(name string) ([]byte, error)

	// Schedules. IsScheduled reports whether any schedule references the
	// billboard name.
	IsScheduled(name string) (bool, error)
	GetSchedules() ([]billboard.Schedule, error)
	AddSchedule(s billboard.Schedule) error
}
