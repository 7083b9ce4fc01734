package service

import (
	"context"
	"time"

	"tribune/internal/models"
	"tribune/internal/observability"
	"tribune/internal/repository"

	"gorm.io/gorm"
)

const maxCommentLen = 10000

type CommentService struct {
	db       *gorm.DB
	comments repository.CommentRepository
	posts    repository.PostRepository
}

func NewCommentService(db *gorm.DB, comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{db: db, comments: comments, posts: posts}
}

type UpdateCommentInput struct {
	Status  *string
	Content *string
}

type ListCommentsInput struct {
	Limit  int
	Offset int
	Sort   string

	// Status is honored for admin viewers only; others get the visibility
	// policy regardless of what they ask for.
	Status string
}

func (s *CommentService) CreateComment(ctx context.Context, actor *models.Actor, postID uint, content string) (*models.Comment, error) {
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.AuthorID, post.Status) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if post.Status != models.StatusActive {
		return nil, models.NewValidationError("Cannot comment on an inactive post")
	}
	if post.Locked && !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Post is locked")
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: actor.ID,
		Content:  content,
		Status:   models.StatusActive,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.CommentsCreatedTotal.Inc()
	return s.comments.GetByID(ctx, comment.ID)
}

// GetComment applies the comment's own visibility. A hidden comment stays
// readable to its author even when the parent post is not.
func (s *CommentService) GetComment(ctx context.Context, actor *models.Actor, id uint) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(comment.AuthorID, comment.Status) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, actor *models.Actor, postID uint, in ListCommentsInput) (*models.Page[models.Comment], error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.AuthorID, post.Status) {
		return nil, models.NewNotFoundError("Post", postID)
	}

	limit, offset := clampPagination(in.Limit, in.Offset)
	q := repository.CommentListQuery{Limit: limit, Offset: offset, Sort: in.Sort}
	if actor != nil {
		q.ViewerID = actor.ID
		q.ViewerIsAdmin = actor.IsAdmin()
	}
	if in.Status != "" && actor.IsAdmin() {
		status := models.Status(in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("Invalid status filter")
		}
		q.Status = &status
	}

	comments, total, err := s.comments.ListByPost(ctx, postID, q)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Comment]{Items: comments, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateComment changes a comment's status. Content is immutable after
// creation; hiding is the supported moderation action.
func (s *CommentService) UpdateComment(ctx context.Context, actor *models.Actor, id uint, in UpdateCommentInput) (*models.Comment, error) {
	if in.Content != nil {
		return nil, models.NewForbiddenError("Comment content is immutable")
	}
	if in.Status == nil {
		return nil, models.NewValidationError("Status is required")
	}
	status := models.Status(*in.Status)
	if !status.Valid() {
		return nil, models.NewValidationError("Invalid status")
	}

	comment, err := s.GetComment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnerOrAdmin(actor, comment.AuthorID, "comments"); err != nil {
		return nil, err
	}
	if err := s.ensureUnlocked(ctx, actor, comment); err != nil {
		return nil, err
	}

	comment.Status = status
	comment.UpdatedAt = time.Now()
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, id)
}

func (s *CommentService) DeleteComment(ctx context.Context, actor *models.Actor, id uint) error {
	comment, err := s.GetComment(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := ensureOwnerOrAdmin(actor, comment.AuthorID, "comments"); err != nil {
		return err
	}
	if err := s.ensureUnlocked(ctx, actor, comment); err != nil {
		return err
	}
	return s.comments.Delete(ctx, id)
}

// SetLock freezes or unfreezes a single comment.
func (s *CommentService) SetLock(ctx context.Context, actor *models.Actor, id uint, locked bool) (*models.Comment, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comment.Locked = locked
	comment.UpdatedAt = time.Now()
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, id)
}

// ensureUnlocked rejects non-admin mutations when either the comment itself
// or its parent post is locked.
func (s *CommentService) ensureUnlocked(ctx context.Context, actor *models.Actor, comment *models.Comment) error {
	if actor.IsAdmin() {
		return nil
	}
	if comment.Locked {
		return models.NewForbiddenError("Comment is locked")
	}
	post, err := s.posts.GetByID(ctx, comment.PostID)
	if err != nil {
		return err
	}
	if post.Locked {
		return models.NewForbiddenError("Post is locked")
	}
	return nil
}
