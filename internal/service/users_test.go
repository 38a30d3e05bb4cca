package service

import (
	"context"
	"testing"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signup(username string) model.SignupRequest {
	return model.SignupRequest{
		Name:     "Dana " + username,
		Email:    username + "@Campus.test",
		Username: username,
		Password: "hunter22",
	}
}

func TestSignupAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Signup(ctx, signup("dana_k"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.Equal(t, "dana_k@campus.test", u.Email)

	got, err := f.users.Authenticate(ctx, "dana_k", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.Authenticate(ctx, "dana_k", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = f.users.Signup(ctx, signup("dana_k"))
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)

	me, err := f.users.Me(ctx, model.Caller{ID: u.ID, Role: u.Role})
	require.NoError(t, err)
	assert.Equal(t, "dana_k@campus.test", me.Email)

	_, err = f.users.Me(ctx, model.Caller{ID: "garbage", Role: model.RoleStudent})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := signup("x")
	req.Password = "123"
	req.Email = "not-an-email"
	_, err := f.users.Signup(ctx, req)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "username")
	assert.Contains(t, verr.Fields(), "password")
	assert.Contains(t, verr.Fields(), "email")

	req = signup("sneaky")
	req.Role = model.RoleAdmin
	_, err = f.users.Signup(ctx, req)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "role")
}

func TestCreateUser_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := signup("new_admin")
	req.Role = model.RoleAdmin
	_, err := f.users.CreateUser(ctx, f.organizer, req)
	assert.ErrorIs(t, err, model.ErrForbidden)

	u, err := f.users.CreateUser(ctx, f.admin, req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	seeded, err := f.users.CreateAdmin(ctx, signup("root_admin"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, seeded.Role)
}

func TestLastAdminGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.ChangeRole(ctx, f.admin, f.admin.ID, model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrLastAdmin)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, f.admin, f.admin.ID), model.ErrLastAdmin)

	promoted, err := f.users.ChangeRole(ctx, f.admin, f.organizer.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = f.users.ChangeRole(ctx, f.admin, f.admin.ID, model.RoleStudent)
	require.NoError(t, err)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, model.Caller{ID: f.organizer.ID, Role: model.RoleAdmin}, f.organizer.ID),
		model.ErrLastAdmin)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addUser("student", model.RoleStudent)

	_, err := f.users.ListUsers(ctx, student, model.UserFilter{})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = f.users.ChangeRole(ctx, f.organizer, student.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.users.ChangeRole(ctx, f.admin, student.ID, "superuser")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	organizers, err := f.users.ListUsers(ctx, f.admin, model.UserFilter{Role: model.RoleOrganizer})
	require.NoError(t, err)
	assert.Len(t, organizers, 2)

	found, err := f.users.ListUsers(ctx, f.admin, model.UserFilter{Search: "STUD"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, student.ID, found[0].ID)

	require.NoError(t, f.users.DeleteUser(ctx, f.admin, student.ID))
	assert.ErrorIs(t, f.users.DeleteUser(ctx, f.admin, student.ID), model.ErrNotFound)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, f.admin, "bogus"), model.ErrNotFound)
}
