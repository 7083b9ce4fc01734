package server

import (
	"net/http"
	"testing"

	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLoginFlow(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"login":     "newcomer",
		"email":     "newcomer@example.com",
		"password":  testPassword,
		"full_name": "New Comer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.User
	decodeBody(t, resp, &created)
	assert.Equal(t, "newcomer", created.Login)
	assert.Empty(t, created.PasswordHash, "password hash must never be serialized")

	// Duplicate login is rejected
	resp = doRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"login":    "newcomer",
		"email":    "other@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Weak password is rejected
	resp = doRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"login":    "weakling",
		"email":    "weakling@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The fresh account can log in by login and by email
	token := loginAs(t, app, "newcomer")
	assert.NotEmpty(t, token)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "newcomer@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Wrong password yields 401 without disclosing which part was wrong
	resp = doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login":    "newcomer",
		"password": "Wrong-Password-99!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotation(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	mustCreateUser(t, testDB, "rotator", models.RoleUser)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login":    "rotator",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.Tokens.RefreshToken)

	// First refresh succeeds and rotates the token
	resp = doRequest(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, resp, &rotated)
	assert.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	// The consumed token is dead
	resp = doRequest(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.Tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rotated token still works
	resp = doRequest(t, app, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": rotated.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	mustCreateUser(t, testDB, "leaver", models.RoleUser)

	token := loginAs(t, app, "leaver")

	resp := doRequest(t, app, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The revoked token no longer authenticates
	resp = doRequest(t, app, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequiredRejectsAnonymousAndGarbage(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetNeverDisclosesAccounts(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	mustCreateUser(t, testDB, "forgetful", models.RoleUser)

	// Unknown and known emails answer identically
	for _, email := range []string{"ghost@example.com", "forgetful@example.com"} {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/password-reset", "", map[string]string{
			"email": email,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var count int64
	testDB.Table("reset_tokens").Count(&count)
	assert.Equal(t, int64(1), count, "only the real account gets a reset token")
}
