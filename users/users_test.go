package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/users"
)

func TestParsePermission(t *testing.T) {
	for _, want := range []users.Permission{
		users.PermissionCreateBillboards,
		users.PermissionEditAllBillboards,
		users.PermissionScheduleBillboards,
		users.PermissionEditUsers,
	} {
		got, err := users.ParsePermission(string(want))
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.True(t, want.Valid())
	}

	_, err := users.ParsePermission("Root")
	require.Error(t, err)
	require.False(t, users.Permission("").Valid())
}

func TestSanitized(t *testing.T) {
	u := users.User{
		Username:    "alice",
		Password:    "08695B4838E5521712D7473EF2745A67",
		OldPassword: "2AB96390C7DBE3439DE74D0C9B0B1767",
		Permission:  users.PermissionEditUsers,
	}
	clean := u.Sanitized()
	require.Empty(t, clean.Password)
	require.Empty(t, clean.OldPassword)
	require.Equal(t, "alice", clean.Username)
	require.NotEmpty(t, u.Password, "Sanitized returns a copy")
}
