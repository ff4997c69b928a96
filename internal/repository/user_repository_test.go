package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

func newUser(id, username string, role models.Role, subjects ...string) *models.User {
	return &models.User{ID: id, Username: username, FullName: username, Role: role, Subjects: subjects}
}

func TestCreateRejectsDuplicateUsernameCaseInsensitive(t *testing.T) {
	r := NewUserRepository()
	require.NoError(t, r.Create(newUser("u1", "Alice", models.RoleStudent)))

	err := r.Create(newUser("u2", "alice", models.RoleStudent))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	got, err := r.FindByUsername("ALICE")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestFindByIDMissing(t *testing.T) {
	r := NewUserRepository()
	_, err := r.FindByID("nope")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestListFilters(t *testing.T) {
	r := NewUserRepository()
	require.NoError(t, r.Create(newUser("u1", "zoe", models.RoleStudent)))
	require.NoError(t, r.Create(newUser("u2", "adam", models.RoleProfessor, "Calculus")))
	require.NoError(t, r.Create(newUser("u3", "amy", models.RoleCounselor)))

	all := r.List(models.UserFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, "adam", all[0].Username)
	assert.Equal(t, "zoe", all[2].Username)

	role := models.RoleProfessor
	profs := r.List(models.UserFilter{Role: &role})
	require.Len(t, profs, 1)
	assert.Equal(t, "adam", profs[0].Username)

	matched := r.List(models.UserFilter{Search: "AM"})
	require.Len(t, matched, 2)
}

func TestSubjectsUnionSorted(t *testing.T) {
	r := NewUserRepository()
	require.NoError(t, r.Create(newUser("u1", "adam", models.RoleProfessor, "Calculus", "Algebra")))
	require.NoError(t, r.Create(newUser("u2", "bea", models.RoleProfessor, "Algebra", "Statistics")))
	require.NoError(t, r.Create(newUser("u3", "carl", models.RoleStudent, "Ignored")))

	assert.Equal(t, []string{"Algebra", "Calculus", "Statistics"}, r.Subjects())
}
