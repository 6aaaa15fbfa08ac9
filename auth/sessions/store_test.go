package sessions_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/auth/sessions"
	"github.com/billboardcp/billboard-server/users"
)

func TestIssueAndLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := sessions.New(24*time.Hour, sessions.WithNowTime(func() time.Time { return now }))
	defer s.Close()

	token := s.Issue("alice", users.PermissionCreateBillboards)
	require.NotEmpty(t, token)

	sess, ok := s.Lookup(token)
	require.True(t, ok)
	require.Equal(t, "alice", sess.Username)
	require.Equal(t, users.PermissionCreateBillboards, sess.Permission)
	require.Equal(t, now.Add(24*time.Hour), sess.ExpiresAt)
}

func TestLookupUnknownToken(t *testing.T) {
	s := sessions.New(time.Hour)
	defer s.Close()

	_, ok := s.Lookup("no-such-token")
	require.False(t, ok)
}

func TestTwoLoginsAreIndependent(t *testing.T) {
	s := sessions.New(time.Hour)
	defer s.Close()

	first := s.Issue("alice", users.PermissionEditUsers)
	second := s.Issue("alice", users.PermissionEditUsers)
	require.NotEqual(t, first, second)

	require.True(t, s.Revoke(first))

	_, ok := s.Lookup(first)
	require.False(t, ok)
	_, ok = s.Lookup(second)
	require.True(t, ok, "revoking one session must not affect the other")
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := sessions.New(time.Hour)
	defer s.Close()

	token := s.Issue("alice", users.PermissionEditUsers)
	require.True(t, s.Revoke(token))
	require.False(t, s.Revoke(token))
}

func TestNaturalExpiry(t *testing.T) {
	expired := make(chan sessions.Session, 1)
	s := sessions.New(20*time.Millisecond, sessions.WithExpiryHook(func(sess sessions.Session) {
		expired <- sess
	}))
	defer s.Close()

	token := s.Issue("alice", users.PermissionScheduleBillboards)

	select {
	case sess := <-expired:
		require.Equal(t, "alice", sess.Username)
	case <-time.After(time.Second):
		t.Fatal("session did not expire")
	}

	_, ok := s.Lookup(token)
	require.False(t, ok)
}

func TestRevokeCancelsExpiry(t *testing.T) {
	expired := make(chan sessions.Session, 1)
	s := sessions.New(20*time.Millisecond, sessions.WithExpiryHook(func(sess sessions.Session) {
		expired <- sess
	}))
	defer s.Close()

	token := s.Issue("alice", users.PermissionEditUsers)
	require.True(t, s.Revoke(token))

	select {
	case <-expired:
		t.Fatal("expiry fired after revoke")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseTearsDownEverything(t *testing.T) {
	s := sessions.New(time.Hour)
	first := s.Issue("alice", users.PermissionEditUsers)
	s.Issue("bob", users.PermissionCreateBillboards)
	require.Equal(t, 2, s.Len())

	require.Equal(t, 2, s.Close(), "Close reports how many sessions it removed")
	require.Equal(t, 0, s.Len())

	_, ok := s.Lookup(first)
	require.False(t, ok)

	// A token issued after teardown must never resolve.
	late := s.Issue("carol", users.PermissionEditUsers)
	_, ok = s.Lookup(late)
	require.False(t, ok)

	require.Equal(t, 0, s.Close())
}

func TestCloseDoesNotCountExpiredSessions(t *testing.T) {
	expired := make(chan sessions.Session, 1)
	s := sessions.New(20*time.Millisecond, sessions.WithExpiryHook(func(sess sessions.Session) {
		expired <- sess
	}))

	s.Issue("alice", users.PermissionEditUsers)

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("session did not expire")
	}

	// The expiry hook already accounted for the session; Close must not
	// report it a second time.
	require.Equal(t, 0, s.Close())
}
