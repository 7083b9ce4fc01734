package server

import (
	"fmt"
	"net/http"
	"testing"

	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentFlow(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	author := mustCreateUser(t, testDB, "talker", models.RoleUser)
	mustCreateUser(t, testDB, "replier", models.RoleUser)
	post := mustCreatePost(t, testDB, author.ID, "Discussion", models.StatusActive)

	replierToken := loginAs(t, app, "replier")
	commentsPath := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	// Anonymous cannot comment
	resp := doRequest(t, app, http.MethodPost, commentsPath, "", map[string]string{
		"content": "drive-by",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, commentsPath, replierToken, map[string]string{
		"content": "Nice post!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	decodeBody(t, resp, &comment)
	require.NotZero(t, comment.ID)
	assert.Equal(t, "Nice post!", comment.Content)

	// Empty content is rejected
	resp = doRequest(t, app, http.MethodPost, commentsPath, replierToken, map[string]string{
		"content": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Comments are listed under the post
	resp = doRequest(t, app, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []models.Comment `json:"items"`
		Total int64            `json:"total"`
	}
	decodeBody(t, resp, &page)
	assert.Equal(t, int64(1), page.Total)

	commentPath := fmt.Sprintf("/api/comments/%d", comment.ID)

	// Content is immutable, only status moderation is possible
	resp = doRequest(t, app, http.MethodPatch, commentPath, replierToken,
		map[string]interface{}{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, commentPath, replierToken,
		map[string]interface{}{"status": "inactive"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A hidden comment disappears for strangers
	resp = doRequest(t, app, http.MethodGet, commentPath, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// But not for its author
	resp = doRequest(t, app, http.MethodGet, commentPath, replierToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, commentPath, replierToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommentLockOverHTTP(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	author := mustCreateUser(t, testDB, "locked-author", models.RoleUser)
	mustCreateUser(t, testDB, "janitor", models.RoleAdmin)
	post := mustCreatePost(t, testDB, author.ID, "Locked thread", models.StatusActive)

	authorToken := loginAs(t, app, "locked-author")
	adminToken := loginAs(t, app, "janitor")

	resp := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/posts/%d/comments", post.ID), authorToken,
		map[string]string{"content": "before the lock"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	decodeBody(t, resp, &comment)
	commentPath := fmt.Sprintf("/api/comments/%d", comment.ID)

	// Admin locks the comment
	resp = doRequest(t, app, http.MethodPatch, commentPath+"/lock", adminToken,
		map[string]interface{}{"locked": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The author can no longer touch it
	resp = doRequest(t, app, http.MethodPatch, commentPath, authorToken,
		map[string]interface{}{"status": "inactive"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, commentPath, authorToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Locking the parent post freezes commenting for non-admins
	resp = doRequest(t, app, http.MethodPatch,
		fmt.Sprintf("/api/posts/%d/lock", post.ID), adminToken,
		map[string]interface{}{"locked": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/posts/%d/comments", post.ID), authorToken,
		map[string]string{"content": "after the lock"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins bypass the lock
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/posts/%d/comments", post.ID), adminToken,
		map[string]string{"content": "admin note"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
