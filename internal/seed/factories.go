// Package seed provides helpers to create demo data for development and
// testing. Nothing here is used by the server itself.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"tribune/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// seedPassword is the password of every generated account, handy for
// logging in as any seeded user during development.
const seedPassword = "Tribune-Dev-Pass1!"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand

	passwordHash string
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	if err != nil {
		// bcrypt only fails on invalid cost, which is a programming error
		panic(err)
	}

	return &Factory{
		db:           db,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		passwordHash: string(hash),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Login:          fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:          gofakeit.Email(),
		PasswordHash:   f.passwordHash,
		FullName:       gofakeit.Name(),
		ProfilePicture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:           models.RoleUser,
		EmailConfirmed: true,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post without persisting it, useful for batching.
// The publish date is spread over the last maxDays days.
func (f *Factory) BuildPost(author *models.User, maxDays int, overrides ...func(*models.Post)) *models.Post {
	if maxDays <= 0 {
		maxDays = 90
	}

	post := &models.Post{
		AuthorID:    author.ID,
		Title:       gofakeit.Sentence(5),
		Content:     gofakeit.Paragraph(2, 4, 8, "\n\n"),
		Status:      models.StatusActive,
		PublishDate: f.pastTime(maxDays),
	}
	if f.rng.Intn(3) == 0 {
		post.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a generated comment on the given post.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:      post.ID,
		AuthorID:    author.ID,
		Content:     gofakeit.Sentence(f.rng.Intn(15) + 3),
		Status:      models.StatusActive,
		PublishDate: post.PublishDate.Add(time.Duration(f.rng.Intn(72)) * time.Hour),
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateCategory persists a category with the given name, ignoring
// duplicates so presets can be reapplied.
func (f *Factory) CreateCategory(name, description string) (*models.Category, error) {
	category := &models.Category{Name: name, Description: description}
	err := f.db.Where(models.Category{Name: name}).
		Attrs(models.Category{Description: description}).
		FirstOrCreate(category).Error
	if err != nil {
		return nil, err
	}
	return category, nil
}

// LikePost records a reaction by the author on the post. Duplicate
// reactions by the same user are skipped.
func (f *Factory) LikePost(post *models.Post, author *models.User, likeType models.LikeType) error {
	like := &models.Like{
		AuthorID:    author.ID,
		PostID:      &post.ID,
		Type:        likeType,
		PublishDate: post.PublishDate.Add(time.Duration(f.rng.Intn(96)) * time.Hour),
	}
	return f.db.Where("author_id = ? AND post_id = ?", author.ID, post.ID).
		FirstOrCreate(like).Error
}

// LikeComment records a reaction by the author on the comment.
func (f *Factory) LikeComment(comment *models.Comment, author *models.User, likeType models.LikeType) error {
	like := &models.Like{
		AuthorID:    author.ID,
		CommentID:   &comment.ID,
		Type:        likeType,
		PublishDate: comment.PublishDate.Add(time.Duration(f.rng.Intn(48)) * time.Hour),
	}
	return f.db.Where("author_id = ? AND comment_id = ?", author.ID, comment.ID).
		FirstOrCreate(like).Error
}

// randomLikeType skews toward likes, roughly 4:1.
func (f *Factory) randomLikeType() models.LikeType {
	if f.rng.Intn(5) == 0 {
		return models.LikeTypeDislike
	}
	return models.LikeTypeLike
}

func (f *Factory) pastTime(maxDays int) time.Time {
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().
		Add(-time.Duration(daysBack) * 24 * time.Hour).
		Add(-time.Duration(hoursBack) * time.Hour).
		Add(-time.Duration(minsBack) * time.Minute)
}
