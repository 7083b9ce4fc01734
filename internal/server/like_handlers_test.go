package server

import (
	"fmt"
	"net/http"
	"testing"

	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeEndpoints(t *testing.T) {
	truncateTables(t, testDB)
	app := newTestApp(t)
	author := mustCreateUser(t, testDB, "liked-author", models.RoleUser)
	mustCreateUser(t, testDB, "fan", models.RoleUser)
	post := mustCreatePost(t, testDB, author.ID, "Popular", models.StatusActive)

	fanToken := loginAs(t, app, "fan")

	// Reactions require authentication
	resp := doRequest(t, app, http.MethodPost, "/api/likes", "", map[string]interface{}{
		"post_id": post.ID, "type": "like",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Exactly one target must be named
	resp = doRequest(t, app, http.MethodPost, "/api/likes", fanToken, map[string]interface{}{
		"type": "like",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/likes", fanToken, map[string]interface{}{
		"post_id": post.ID, "comment_id": 1, "type": "like",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A proper like lands and shows up in the listing and the author's rating
	resp = doRequest(t, app, http.MethodPost, "/api/likes", fanToken, map[string]interface{}{
		"post_id": post.ID, "type": "like",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d/likes", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []models.Like `json:"items"`
		Total int64         `json:"total"`
	}
	decodeBody(t, resp, &page)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, models.LikeTypeLike, page.Items[0].Type)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile models.User
	decodeBody(t, resp, &profile)
	assert.Equal(t, 1, profile.Rating)

	// Flipping to a dislike replaces the reaction instead of stacking
	resp = doRequest(t, app, http.MethodPost, "/api/likes", fanToken, map[string]interface{}{
		"post_id": post.ID, "type": "dislike",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), "", nil)
	decodeBody(t, resp, &profile)
	assert.Equal(t, -1, profile.Rating)

	// Removal is idempotent
	for i := 0; i < 2; i++ {
		resp = doRequest(t, app, http.MethodDelete, "/api/likes", fanToken, map[string]interface{}{
			"post_id": post.ID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), "", nil)
	decodeBody(t, resp, &profile)
	assert.Equal(t, 0, profile.Rating)

	// Reacting to an invisible post reads as missing
	hidden := mustCreatePost(t, testDB, author.ID, "Hidden gem", models.StatusInactive)
	resp = doRequest(t, app, http.MethodPost, "/api/likes", fanToken, map[string]interface{}{
		"post_id": hidden.ID, "type": "like",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
