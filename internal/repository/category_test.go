package repository

import (
	"context"
	"errors"
	"testing"

	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_CreateAndList(t *testing.T) {
	truncateTables(t, testDB)
	categories := NewCategoryRepository(testDB)
	ctx := context.Background()

	require.NoError(t, categories.Create(ctx, &models.Category{Name: "golang", Description: "All things Go"}))
	require.NoError(t, categories.Create(ctx, &models.Category{Name: "databases"}))

	got, err := categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// List orders by name
	assert.Equal(t, "databases", got[0].Name)
	assert.Equal(t, "golang", got[1].Name)
}

func TestCategoryRepository_DuplicateNameConflicts(t *testing.T) {
	truncateTables(t, testDB)
	categories := NewCategoryRepository(testDB)
	ctx := context.Background()

	require.NoError(t, categories.Create(ctx, &models.Category{Name: "golang"}))
	err := categories.Create(ctx, &models.Category{Name: "golang"})
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestCategoryRepository_GetByID_NotFound(t *testing.T) {
	truncateTables(t, testDB)
	categories := NewCategoryRepository(testDB)

	_, err := categories.GetByID(context.Background(), 4242)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestCategoryRepository_DeleteClearsAssignments(t *testing.T) {
	truncateTables(t, testDB)
	categories := NewCategoryRepository(testDB)
	posts := NewPostRepository(testDB)
	ctx := context.Background()

	author := mustCreateUser(t, testDB, "author")
	post := mustCreatePost(t, testDB, author.ID, "post", models.StatusActive)

	cat := models.Category{Name: "golang"}
	require.NoError(t, categories.Create(ctx, &cat))
	require.NoError(t, posts.AttachCategories(ctx, post.ID, []uint{cat.ID}))

	require.NoError(t, categories.Delete(ctx, cat.ID))

	var count int64
	require.NoError(t, testDB.Table("posts_categories").Where("category_id = ?", cat.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
}

func TestCategoryRepository_ExistingIDs(t *testing.T) {
	truncateTables(t, testDB)
	categories := NewCategoryRepository(testDB)
	ctx := context.Background()

	a := models.Category{Name: "a"}
	b := models.Category{Name: "b"}
	require.NoError(t, categories.Create(ctx, &a))
	require.NoError(t, categories.Create(ctx, &b))

	got, err := categories.ExistingIDs(ctx, []uint{a.ID, b.ID, 4242})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, got)
}
