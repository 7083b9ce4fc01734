package server

import (
	"fmt"
	"net/http"
	"testing"

	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileEndpoints(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	user := mustCreateUser(t, testDB, "selfie", models.RoleUser)
	token := loginAs(t, app, "selfie")

	resp := doRequest(t, app, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, user.ID, me.ID)

	// Empty patch is rejected
	resp = doRequest(t, app, http.MethodPut, "/api/users/me", token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPut, "/api/users/me", token, map[string]interface{}{
		"full_name":       "Self Portrait",
		"profile_picture": "https://cdn.example.com/selfie.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &me)
	assert.Equal(t, "Self Portrait", me.FullName)

	// Public profile is readable anonymously
	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/users/999999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminUserManagement(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	mustCreateUser(t, testDB, "chief", models.RoleAdmin)
	subject := mustCreateUser(t, testDB, "subject", models.RoleUser)

	adminToken := loginAs(t, app, "chief")
	subjectToken := loginAs(t, app, "subject")

	// Members cannot use admin endpoints
	resp := doRequest(t, app, http.MethodPost, "/api/users", subjectToken, map[string]string{
		"login": "minion", "email": "minion@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin provisions an account directly
	resp = doRequest(t, app, http.MethodPost, "/api/users", adminToken, map[string]string{
		"login":    "provisioned",
		"email":    "provisioned@example.com",
		"password": testPassword,
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.User
	decodeBody(t, resp, &created)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.EmailConfirmed, "admin-created accounts skip verification")

	// Role change endpoint
	rolePath := fmt.Sprintf("/api/users/%d/role", subject.ID)
	resp = doRequest(t, app, http.MethodPatch, rolePath, subjectToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, rolePath, adminToken, map[string]string{"role": "emperor"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, rolePath, adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var promoted models.User
	decodeBody(t, resp, &promoted)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	// Deleting own account is refused, deleting another works
	var chief models.User
	require.NoError(t, testDB.Where("login = ?", "chief").First(&chief).Error)

	resp = doRequest(t, app, http.MethodDelete, fmt.Sprintf("/api/users/%d", chief.ID), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, fmt.Sprintf("/api/users/%d", subject.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", subject.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListUsersOrderedByRating(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	low := mustCreateUser(t, testDB, "low-scorer", models.RoleUser)
	high := mustCreateUser(t, testDB, "high-scorer", models.RoleUser)
	require.NoError(t, testDB.Create(&models.UserRating{UserID: low.ID, Rating: 1}).Error)
	require.NoError(t, testDB.Create(&models.UserRating{UserID: high.ID, Rating: 7}).Error)

	resp := doRequest(t, app, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []models.User `json:"items"`
		Total int64         `json:"total"`
	}
	decodeBody(t, resp, &page)
	require.Equal(t, int64(2), page.Total)
	assert.Equal(t, "high-scorer", page.Items[0].Login)
	assert.Equal(t, 7, page.Items[0].Rating)

	// Search narrows the listing
	resp = doRequest(t, app, http.MethodGet, "/api/users?search=high", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Equal(t, int64(1), page.Total)
}
