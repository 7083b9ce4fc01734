package service

import (
	"context"
	"testing"

	"tribune/internal/models"
	"tribune/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService() *UserService {
	return NewUserService(repository.NewUserRepository(testDB))
}

func TestUpdateMe(t *testing.T) {
	truncateTables(t, testDB)
	svc := newUserService()
	user := mustCreateUser(t, testDB, "member", models.RoleUser)
	ctx := context.Background()

	_, err := svc.UpdateMe(ctx, actorFor(user), UpdateProfileInput{})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	updated, err := svc.UpdateMe(ctx, actorFor(user), UpdateProfileInput{
		FullName:       ptr("Jordan Writer"),
		ProfilePicture: ptr("https://example.com/avatar.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jordan Writer", updated.FullName)
	assert.Equal(t, "https://example.com/avatar.png", updated.ProfilePicture)
}

func TestAdminCreateUser(t *testing.T) {
	truncateTables(t, testDB)
	svc := newUserService()
	admin := mustCreateUser(t, testDB, "boss", models.RoleAdmin)
	member := mustCreateUser(t, testDB, "member", models.RoleUser)
	ctx := context.Background()

	in := AdminCreateUserInput{
		Login:    "moderator",
		Email:    "moderator@example.com",
		Password: "Sup3r-Secret-Pass!",
		Role:     "admin",
	}

	_, err := svc.AdminCreateUser(ctx, actorFor(member), in)
	assertAppErrorCode(t, err, "FORBIDDEN")

	created, err := svc.AdminCreateUser(ctx, actorFor(admin), in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.EmailConfirmed)

	// Duplicate login surfaces the unique violation as a conflict
	in.Email = "other@example.com"
	_, err = svc.AdminCreateUser(ctx, actorFor(admin), in)
	assertAppErrorCode(t, err, "CONFLICT")
}

func TestAdminUpdateUser_Role(t *testing.T) {
	truncateTables(t, testDB)
	svc := newUserService()
	admin := mustCreateUser(t, testDB, "boss", models.RoleAdmin)
	member := mustCreateUser(t, testDB, "member", models.RoleUser)
	ctx := context.Background()

	_, err := svc.SetRole(ctx, actorFor(member), member.ID, "admin")
	assertAppErrorCode(t, err, "FORBIDDEN")

	_, err = svc.SetRole(ctx, actorFor(admin), member.ID, "emperor")
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	promoted, err := svc.SetRole(ctx, actorFor(admin), member.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestAdminDeleteUser(t *testing.T) {
	truncateTables(t, testDB)
	svc := newUserService()
	admin := mustCreateUser(t, testDB, "boss", models.RoleAdmin)
	member := mustCreateUser(t, testDB, "member", models.RoleUser)
	ctx := context.Background()

	err := svc.AdminDeleteUser(ctx, actorFor(admin), admin.ID)
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	require.NoError(t, svc.AdminDeleteUser(ctx, actorFor(admin), member.ID))
	_, err = svc.GetUserByID(ctx, member.ID)
	assertAppErrorCode(t, err, "NOT_FOUND")
}

func TestListUsers_RoleFilter(t *testing.T) {
	truncateTables(t, testDB)
	svc := newUserService()
	mustCreateUser(t, testDB, "boss", models.RoleAdmin)
	mustCreateUser(t, testDB, "member", models.RoleUser)
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, ListUsersInput{Role: "emperor"})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	page, err := svc.ListUsers(ctx, ListUsersInput{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "boss", page.Items[0].Login)
}
