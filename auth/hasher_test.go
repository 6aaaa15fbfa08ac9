package auth_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/auth"
)

var hexHash32 = regexp.MustCompile(`^[0-9A-F]{32}$`)

func TestDeriveStoredHashKnownVector(t *testing.T) {
	// Client-side hash of "hunter2" with a fixed salt.
	const (
		candidate = "2AB96390C7DBE3439DE74D0C9B0B1767"
		salt      = "000102030405060708090A0B0C0D0E0F"
		want      = "08695B4838E5521712D7473EF2745A67"
	)
	require.Equal(t, want, auth.DeriveStoredHash(candidate, salt))
}

func TestDeriveStoredHashDeterministic(t *testing.T) {
	salt, err := auth.GenerateSalt()
	require.NoError(t, err)

	// A value produced at account creation must validate at login.
	atCreation := auth.DeriveStoredHash("ABC", salt)
	atLogin := auth.DeriveStoredHash("ABC", salt)
	require.Equal(t, atCreation, atLogin)
	require.Regexp(t, hexHash32, atCreation)
}

func TestDeriveStoredHashSaltChangesOutput(t *testing.T) {
	require.NotEqual(t,
		auth.DeriveStoredHash("ABC", "salt-one"),
		auth.DeriveStoredHash("ABC", "salt-two"),
	)
}

func TestGenerateSalt(t *testing.T) {
	first, err := auth.GenerateSalt()
	require.NoError(t, err)
	second, err := auth.GenerateSalt()
	require.NoError(t, err)

	require.Regexp(t, hexHash32, first)
	require.Regexp(t, hexHash32, second)
	require.NotEqual(t, first, second)
}
