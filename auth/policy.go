// Package auth contains the credential derivation and the per-operation
// authorization rules of the billboard server.
package auth

import (
	"github.com/pkg/errors"

	"github.com/billboardcp/billboard-server/auth/sessions"
	"github.com/billboardcp/billboard-server/users"
)

// BillboardFacts are the contextual facts a billboard edit/delete decision
// needs beyond the caller's own session.
type BillboardFacts struct {
	Owner     string // owning username of the target billboard
	Scheduled bool   // true when at least one schedule references it
}

// Policy decides allow/deny for every operation against the caller's
// session. Every Can method returns nil on allow and a sentinel from
// auth_errors.go on deny; the dispatcher maps the sentinel to the response
// status. Policy holds no state of its own beyond the session store it
// resolves tokens through and the configured viewer credential.
type Policy struct {
	sessions    *sessions.Store
	viewerToken string
}

// NewPolicy creates a Policy bound to one connection's session store.
// viewerToken is the external-consumer credential that grants schedule
// listing without a login.
func NewPolicy(store *sessions.Store, viewerToken string) (*Policy, error) {
	if store == nil {
		return nil, errors.New("[NewPolicy] session store is required")
	}
	return &Policy{sessions: store, viewerToken: viewerToken}, nil
}

// Caller resolves the token to its live session, if any.
func (p *Policy) Caller(token string) (sessions.Session, bool) {
	return p.sessions.Lookup(token)
}

// CanListSchedules allows the viewer credential, or a session holding
// Schedule Billboards. All other operations require a live session.
func (p *Policy) CanListSchedules(token string) error {
	if p.viewerToken != "" && token == p.viewerToken {
		return nil
	}
	if sess, ok := p.Caller(token); ok && sess.Permission == users.PermissionScheduleBillboards {
		return nil
	}
	return NoPermissionErr
}

// CanAddSchedule requires Schedule Billboards; the viewer credential grants
// listing only.
func (p *Policy) CanAddSchedule(token string) error {
	if sess, ok := p.Caller(token); ok && sess.Permission == users.PermissionScheduleBillboards {
		return nil
	}
	return NoPermissionErr
}

// CanAddBillboard requires Create Billboards. The session is returned so the
// dispatcher can stamp the new billboard with the caller's username.
func (p *Policy) CanAddBillboard(token string) (sessions.Session, error) {
	sess, ok := p.Caller(token)
	if !ok || sess.Permission != users.PermissionCreateBillboards {
		return sessions.Session{}, NoPermissionErr
	}
	return sess, nil
}

// CanModifyBillboard covers both edit and delete. Create Billboards holders
// may only touch their own billboards, and only while not scheduled. Edit
// All Billboards bypasses both the ownership and the scheduled-lock check.
func (p *Policy) CanModifyBillboard(token string, facts BillboardFacts) error {
	sess, ok := p.Caller(token)
	if !ok {
		return NoPermissionErr
	}
	switch sess.Permission {
	case users.PermissionEditAllBillboards:
		return nil
	case users.PermissionCreateBillboards:
		if facts.Owner == sess.Username && !facts.Scheduled {
			return nil
		}
	}
	return NoPermissionErr
}

// CanManageUsers requires Edit Users; it gates the user list and all user
// mutations. The session is returned for the self-protection checks.
func (p *Policy) CanManageUsers(token string) (sessions.Session, error) {
	sess, ok := p.Caller(token)
	if !ok || sess.Permission != users.PermissionEditUsers {
		return sessions.Session{}, NoPermissionErr
	}
	return sess, nil
}

// CanDeleteUser requires Edit Users and denies deleting the caller's own
// account regardless of permission.
func (p *Policy) CanDeleteUser(token, targetUsername string) error {
	sess, err := p.CanManageUsers(token)
	if err != nil {
		return err
	}
	if targetUsername == sess.Username {
		return NoPermissionErr
	}
	return nil
}

// CanUpdateUser requires Edit Users. A caller may not change their own
// permission, but may change another account's, including removing Edit
// Users from a fellow administrator.
func (p *Policy) CanUpdateUser(token string, target users.User) error {
	sess, err := p.CanManageUsers(token)
	if err != nil {
		return err
	}
	if target.Username == sess.Username && target.Permission != sess.Permission {
		return NoPermissionErr
	}
	return nil
}
