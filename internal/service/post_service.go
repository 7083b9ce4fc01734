package service

import (
	"context"
	"time"

	"tribune/internal/models"
	"tribune/internal/observability"
	"tribune/internal/repository"

	"gorm.io/gorm"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
)

type PostService struct {
	db         *gorm.DB
	posts      repository.PostRepository
	categories repository.CategoryRepository
}

func NewPostService(db *gorm.DB, posts repository.PostRepository, categories repository.CategoryRepository) *PostService {
	return &PostService{db: db, posts: posts, categories: categories}
}

type CreatePostInput struct {
	Title       string
	Content     string
	Image       string
	Status      string
	CategoryIDs []uint
}

type UpdatePostInput struct {
	Title       *string
	Content     *string
	Image       *string
	Status      *string
	CategoryIDs *[]uint
}

type ListPostsInput struct {
	Limit  int
	Offset int
	Sort   string

	Search     string
	AuthorID   uint
	CategoryID uint
	DateFrom   *time.Time
	DateTo     *time.Time

	// Status is honored for admin viewers only; others get the visibility
	// policy regardless of what they ask for.
	Status string
}

func (s *PostService) ListPosts(ctx context.Context, actor *models.Actor, in ListPostsInput) (*models.Page[models.Post], error) {
	limit, offset := clampPagination(in.Limit, in.Offset)

	q := repository.PostListQuery{
		Limit:      limit,
		Offset:     offset,
		Sort:       in.Sort,
		Search:     in.Search,
		AuthorID:   in.AuthorID,
		CategoryID: in.CategoryID,
		DateFrom:   in.DateFrom,
		DateTo:     in.DateTo,
	}
	if actor != nil {
		q.ViewerID = actor.ID
		q.ViewerIsAdmin = actor.IsAdmin()
	}
	// The status filter is an admin affordance; for everyone else it is
	// silently ignored and the visibility policy applies as usual.
	if in.Status != "" && actor.IsAdmin() {
		status := models.Status(in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("Invalid status filter")
		}
		q.Status = &status
	}

	posts, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Post]{Items: posts, Total: total, Limit: limit, Offset: offset}, nil
}

// GetPost returns a post if the actor may see it. Invisible posts are
// indistinguishable from missing ones.
func (s *PostService) GetPost(ctx context.Context, actor *models.Actor, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.AuthorID, post.Status) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, actor *models.Actor, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	status := models.StatusActive
	if in.Status != "" {
		status = models.Status(in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("Invalid status")
		}
	}
	if err := s.validateCategoryIDs(ctx, in.CategoryIDs); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID: actor.ID,
		Title:    in.Title,
		Content:  in.Content,
		Image:    in.Image,
		Status:   status,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		if err := posts.Create(ctx, post); err != nil {
			return err
		}
		return posts.AttachCategories(ctx, post.ID, in.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}

	observability.PostsCreatedTotal.Inc()
	return s.posts.GetByID(ctx, post.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, actor *models.Actor, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnerOrAdmin(actor, post.AuthorID, "posts"); err != nil {
		return nil, err
	}
	if post.Locked && !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Post is locked")
	}

	fields := map[string]interface{}{}

	// Moderation path: on content they do not own, admins may change only
	// status and categories. Other fields in the patch are dropped rather
	// than rejected, so a combined patch still applies its allowed part.
	moderating := actor.IsAdmin() && !actor.Owns(post.AuthorID)
	if !moderating {
		if in.Title != nil {
			if *in.Title == "" {
				return nil, models.NewValidationError("Title cannot be empty")
			}
			if len(*in.Title) > maxTitleLen {
				return nil, models.NewValidationError("Title too long (max 300 characters)")
			}
			fields["title"] = *in.Title
		}
		if in.Content != nil {
			if *in.Content == "" {
				return nil, models.NewValidationError("Content cannot be empty")
			}
			if len(*in.Content) > maxContentLen {
				return nil, models.NewValidationError("Content too long (max 50000 characters)")
			}
			fields["content"] = *in.Content
		}
		if in.Image != nil {
			fields["image"] = *in.Image
		}
	}

	if in.Status != nil {
		status := models.Status(*in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("Invalid status")
		}
		fields["status"] = status
	}
	if len(fields) == 0 && in.CategoryIDs == nil {
		return nil, models.NewValidationError("No updatable fields provided")
	}
	if in.CategoryIDs != nil {
		if err := s.validateCategoryIDs(ctx, *in.CategoryIDs); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		if err := posts.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		if in.CategoryIDs != nil {
			return posts.ReplaceCategories(ctx, id, *in.CategoryIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) DeletePost(ctx context.Context, actor *models.Actor, id uint) error {
	post, err := s.GetPost(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := ensureOwnerOrAdmin(actor, post.AuthorID, "posts"); err != nil {
		return err
	}
	if post.Locked && !actor.IsAdmin() {
		return models.NewForbiddenError("Post is locked")
	}
	return s.posts.Delete(ctx, id)
}

// SetLock freezes or unfreezes a post. Locked posts reject edits, deletion
// and new comments from non-admins.
func (s *PostService) SetLock(ctx context.Context, actor *models.Actor, id uint, locked bool) (*models.Post, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetByID(ctx, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{"locked": locked, "updated_at": time.Now()}
	if err := s.posts.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, id)
}

// ListPostCategories returns the categories attached to a post the actor may
// see, applying the same visibility rule as GetPost.
func (s *PostService) ListPostCategories(ctx context.Context, actor *models.Actor, id uint) ([]models.Category, error) {
	post, err := s.GetPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if post.Categories == nil {
		return []models.Category{}, nil
	}
	return post.Categories, nil
}

func (s *PostService) validateCategoryIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	existing, err := s.categories.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[uint]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return models.NewValidationError("Unknown category id")
		}
	}
	return nil
}
