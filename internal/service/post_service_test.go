package service

import (
	"context"
	"testing"

	"tribune/internal/models"
	"tribune/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService() *PostService {
	return NewPostService(
		testDB,
		repository.NewPostRepository(testDB),
		repository.NewCategoryRepository(testDB),
	)
}

func TestCreatePost_Validation(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	user := mustCreateUser(t, testDB, "user", models.RoleUser)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, actorFor(user), CreatePostInput{Content: "body"})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.CreatePost(ctx, actorFor(user), CreatePostInput{Title: "title"})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.CreatePost(ctx, actorFor(user), CreatePostInput{
		Title: "title", Content: "body", CategoryIDs: []uint{4242},
	})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.CreatePost(ctx, actorFor(user), CreatePostInput{
		Title: "title", Content: "body", Status: "limbo",
	})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestCreatePost_InactiveDraft(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	user := mustCreateUser(t, testDB, "drafter", models.RoleUser)
	stranger := mustCreateUser(t, testDB, "stranger", models.RoleUser)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, actorFor(user), CreatePostInput{
		Title: "draft", Content: "body", Status: "inactive",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, post.Status)

	// The draft behaves like any hidden post
	_, err = svc.GetPost(ctx, actorFor(stranger), post.ID)
	assertAppErrorCode(t, err, "NOT_FOUND")
	_, err = svc.GetPost(ctx, actorFor(user), post.ID)
	require.NoError(t, err)
}

func TestCreatePost_WithCategories(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	user := mustCreateUser(t, testDB, "user", models.RoleUser)
	ctx := context.Background()

	cat := models.Category{Name: "golang"}
	require.NoError(t, testDB.Create(&cat).Error)

	post, err := svc.CreatePost(ctx, actorFor(user), CreatePostInput{
		Title: "title", Content: "body", CategoryIDs: []uint{cat.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, post.Status)
	assert.Equal(t, user.ID, post.AuthorID)
	require.Len(t, post.Categories, 1)
	assert.Equal(t, "golang", post.Categories[0].Name)
}

func TestGetPost_Visibility(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	stranger := mustCreateUser(t, testDB, "stranger", models.RoleUser)
	admin := mustCreateUser(t, testDB, "admin", models.RoleAdmin)
	hidden := mustCreatePost(t, testDB, owner.ID, "hidden", models.StatusInactive)

	// A hidden post reads as missing to anonymous viewers and strangers
	_, err := svc.GetPost(ctx, nil, hidden.ID)
	assertAppErrorCode(t, err, "NOT_FOUND")
	_, err = svc.GetPost(ctx, actorFor(stranger), hidden.ID)
	assertAppErrorCode(t, err, "NOT_FOUND")

	got, err := svc.GetPost(ctx, actorFor(owner), hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, hidden.ID, got.ID)

	_, err = svc.GetPost(ctx, actorFor(admin), hidden.ID)
	require.NoError(t, err)
}

func TestUpdatePost_OwnerAndLock(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	stranger := mustCreateUser(t, testDB, "stranger", models.RoleUser)
	post := mustCreatePost(t, testDB, owner.ID, "original", models.StatusActive)

	// Empty patch
	_, err := svc.UpdatePost(ctx, actorFor(owner), post.ID, UpdatePostInput{})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	// Stranger cannot touch it
	_, err = svc.UpdatePost(ctx, actorFor(stranger), post.ID, UpdatePostInput{Title: ptr("hijack")})
	assertAppErrorCode(t, err, "FORBIDDEN")

	updated, err := svc.UpdatePost(ctx, actorFor(owner), post.ID, UpdatePostInput{
		Title:  ptr("renamed"),
		Status: ptr("inactive"),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, models.StatusInactive, updated.Status)

	// A locked post rejects owner edits
	require.NoError(t, testDB.Model(&models.Post{}).Where("id = ?", post.ID).Update("locked", true).Error)
	_, err = svc.UpdatePost(ctx, actorFor(owner), post.ID, UpdatePostInput{Title: ptr("again")})
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func TestUpdatePost_AdminModerationScope(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	admin := mustCreateUser(t, testDB, "admin", models.RoleAdmin)
	post := mustCreatePost(t, testDB, owner.ID, "original", models.StatusActive)

	cat := models.Category{Name: "golang"}
	require.NoError(t, testDB.Create(&cat).Error)

	// Admins moderating someone else's post cannot rewrite its body: the
	// title is silently dropped while the status part still applies
	updated, err := svc.UpdatePost(ctx, actorFor(admin), post.ID, UpdatePostInput{
		Title:  ptr("rewrite"),
		Status: ptr("inactive"),
	})
	require.NoError(t, err)
	assert.Equal(t, "original", updated.Title)
	assert.Equal(t, models.StatusInactive, updated.Status)

	// Categories are moderatable too
	updated, err = svc.UpdatePost(ctx, actorFor(admin), post.ID, UpdatePostInput{
		CategoryIDs: &[]uint{cat.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.Categories, 1)

	// A patch carrying nothing an admin may apply is a bad request
	_, err = svc.UpdatePost(ctx, actorFor(admin), post.ID, UpdatePostInput{Title: ptr("only title")})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.UpdatePost(ctx, actorFor(admin), post.ID, UpdatePostInput{})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestUpdatePost_ReplacesCategories(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	a := models.Category{Name: "a"}
	b := models.Category{Name: "b"}
	require.NoError(t, testDB.Create(&a).Error)
	require.NoError(t, testDB.Create(&b).Error)

	post, err := svc.CreatePost(ctx, actorFor(owner), CreatePostInput{
		Title: "title", Content: "body", CategoryIDs: []uint{a.ID},
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePost(ctx, actorFor(owner), post.ID, UpdatePostInput{
		CategoryIDs: &[]uint{b.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.Categories, 1)
	assert.Equal(t, "b", updated.Categories[0].Name)
}

func TestDeletePost_LockGate(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	admin := mustCreateUser(t, testDB, "admin", models.RoleAdmin)
	post := mustCreatePost(t, testDB, owner.ID, "post", models.StatusActive)
	require.NoError(t, testDB.Model(&models.Post{}).Where("id = ?", post.ID).Update("locked", true).Error)

	err := svc.DeletePost(ctx, actorFor(owner), post.ID)
	assertAppErrorCode(t, err, "FORBIDDEN")

	require.NoError(t, svc.DeletePost(ctx, actorFor(admin), post.ID))
	_, err = svc.GetPost(ctx, actorFor(admin), post.ID)
	assertAppErrorCode(t, err, "NOT_FOUND")
}

func TestSetLock_AdminOnly(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	owner := mustCreateUser(t, testDB, "owner", models.RoleUser)
	admin := mustCreateUser(t, testDB, "admin", models.RoleAdmin)
	post := mustCreatePost(t, testDB, owner.ID, "post", models.StatusActive)

	_, err := svc.SetLock(ctx, actorFor(owner), post.ID, true)
	assertAppErrorCode(t, err, "FORBIDDEN")

	locked, err := svc.SetLock(ctx, actorFor(admin), post.ID, true)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	unlocked, err := svc.SetLock(ctx, actorFor(admin), post.ID, false)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
}

func TestListPosts_StatusFilterIsAdminOnly(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	user := mustCreateUser(t, testDB, "user", models.RoleUser)
	other := mustCreateUser(t, testDB, "other", models.RoleUser)
	admin := mustCreateUser(t, testDB, "admin", models.RoleAdmin)
	mustCreatePost(t, testDB, user.ID, "visible", models.StatusActive)
	mustCreatePost(t, testDB, user.ID, "hidden", models.StatusInactive)

	// Non-admins have the filter silently ignored: visibility rules apply,
	// so the author still sees both posts and a stranger only one
	page, err := svc.ListPosts(ctx, actorFor(user), ListPostsInput{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.ListPosts(ctx, actorFor(other), ListPostsInput{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.ListPosts(ctx, actorFor(admin), ListPostsInput{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.ListPosts(ctx, actorFor(admin), ListPostsInput{Status: "limbo"})
	assertAppErrorCode(t, err, "VALIDATION_ERROR")

	// Anonymous default: active posts only, default page size
	page, err = svc.ListPosts(ctx, nil, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)
}

func TestListPosts_AuthorFilter(t *testing.T) {
	truncateTables(t, testDB)
	svc := newPostService()
	ctx := context.Background()

	alice := mustCreateUser(t, testDB, "alice", models.RoleUser)
	bob := mustCreateUser(t, testDB, "bob", models.RoleUser)
	mustCreatePost(t, testDB, alice.ID, "alice one", models.StatusActive)
	mustCreatePost(t, testDB, alice.ID, "alice two", models.StatusActive)
	mustCreatePost(t, testDB, bob.ID, "bob one", models.StatusActive)

	page, err := svc.ListPosts(ctx, nil, ListPostsInput{AuthorID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, p := range page.Items {
		assert.Equal(t, alice.ID, p.AuthorID)
	}

	// The author filter stacks with visibility
	mustCreatePost(t, testDB, alice.ID, "alice hidden", models.StatusInactive)
	page, err = svc.ListPosts(ctx, actorFor(bob), ListPostsInput{AuthorID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	page, err = svc.ListPosts(ctx, actorFor(alice), ListPostsInput{AuthorID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}
