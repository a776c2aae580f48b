package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/notifiq-session/users"
	fakeuserrepo "github.com/jrsteele09/notifiq-session/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("correct-pw")
	require.NoError(t, err)

	u := &users.User{Email: "alice@example.com", PasswordHash: hash}
	require.True(t, u.CheckPassword("correct-pw"))
	require.False(t, u.CheckPassword("wrong-pw"))
}

func TestGroupNames(t *testing.T) {
	u := &users.User{Groups: []users.GroupType{users.GroupITStaff, users.GroupCustomers}}
	require.Equal(t, []string{"IT Staff", "Customers"}, u.GroupNames())
	require.True(t, u.HasGroup(users.GroupITStaff))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	alice := &users.User{Email: "Alice@Example.com"}
	require.NoError(t, repo.Upsert(alice))
	require.NotEmpty(t, alice.ID, "Upsert should assign an ID")

	got, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.SetLastLogin("alice@example.com", now))
	got, err = repo.GetByID(alice.ID)
	require.NoError(t, err)
	require.Equal(t, now, got.LastLogin)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete("alice@example.com"))
	_, err = repo.GetByEmail("alice@example.com")
	require.ErrorIs(t, err, fakeuserrepo.ErrNotFound)
}
