package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/billboard"
	"github.com/billboardcp/billboard-server/store"
	"github.com/billboardcp/billboard-server/store/sqlite"
	"github.com/billboardcp/billboard-server/users"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := openTestStore(t)

	u := users.User{Username: "alice", Password: "08695B4838E5521712D7473EF2745A67", Permission: users.PermissionCreateBillboards}
	require.NoError(t, s.AddUser(u))
	require.NoError(t, s.AddSalt("alice", "000102030405060708090A0B0C0D0E0F"))

	password, err := s.GetPassword("alice")
	require.NoError(t, err)
	require.Equal(t, u.Password, password)

	permission, err := s.GetPermission("alice")
	require.NoError(t, err)
	require.Equal(t, users.PermissionCreateBillboards, permission)

	salt, err := s.GetSalt("alice")
	require.NoError(t, err)
	require.Equal(t, "000102030405060708090A0B0C0D0E0F", salt)

	list, err := s.GetUsers()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "alice", list[0].Username)
	require.Empty(t, list[0].Password, "user listing must not expose stored hashes")
}

func TestAddUserDuplicate(t *testing.T) {
	s := openTestStore(t)

	u := users.User{Username: "alice", Password: "x", Permission: users.PermissionEditUsers}
	require.NoError(t, s.AddUser(u))
	require.ErrorIs(t, s.AddUser(u), store.ErrUsernameExists)
}

func TestMissingRows(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSalt("ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetPassword("ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetRenderedContent("ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteUserRemovesSalt(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddUser(users.User{Username: "alice", Password: "x", Permission: users.PermissionEditUsers}))
	require.NoError(t, s.AddSalt("alice", "abc"))
	require.NoError(t, s.DeleteUser("alice"))

	_, err := s.GetPassword("alice")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSalt("alice")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddUser(users.User{Username: "alice", Password: "old", Permission: users.PermissionEditUsers}))
	require.NoError(t, s.UpdateUser(users.User{Username: "alice", Password: "new", Permission: users.PermissionCreateBillboards}))

	password, err := s.GetPassword("alice")
	require.NoError(t, err)
	require.Equal(t, "new", password)

	require.ErrorIs(t, s.UpdateUser(users.User{Username: "ghost"}), store.ErrNotFound)
}

func TestBillboardsAndSchedules(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBillboard(billboard.Billboard{Name: "welcome", Username: "alice", Content: "hello"}))

	scheduled, err := s.IsScheduled("welcome")
	require.NoError(t, err)
	require.False(t, scheduled)

	require.NoError(t, s.AddSchedule(billboard.Schedule{BillboardName: "welcome", Day: "Mon", StartMinute: 540, Duration: 30}))
	scheduled, err = s.IsScheduled("welcome")
	require.NoError(t, err)
	require.True(t, scheduled)

	schedules, err := s.GetSchedules()
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	require.Equal(t, "welcome", schedules[0].BillboardName)

	require.NoError(t, s.UpdateBillboard(billboard.Billboard{Name: "welcome", Content: "changed"}))
	list, err := s.GetBillboards()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "changed", list[0].Content)
	require.Equal(t, "alice", list[0].Username, "updates never reassign ownership")

	require.NoError(t, s.DeleteBillboard("welcome"))
	list, err = s.GetBillboards()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestGetRenderedContent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBillboard(billboard.Billboard{Name: "welcome", Username: "alice", Content: "hello world"}))

	content, err := s.GetRenderedContent("welcome")
	require.NoError(t, err)
	require.Contains(t, string(content), "<?xml")
	require.Contains(t, string(content), "<billboard>")
	require.Contains(t, string(content), "hello world")
}
