package repository

import (
	"context"
	"errors"
	"strings"

	"tribune/internal/models"

	"gorm.io/gorm"
)

const commentAggregateSelect = "comments.*, " +
	"COALESCE(la.likes_count, 0) AS likes_count, " +
	"COALESCE(la.dislikes_count, 0) AS dislikes_count"

const commentLikesJoin = "LEFT JOIN (" +
	"SELECT comment_id, " +
	"SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS likes_count, " +
	"SUM(CASE WHEN type = 'dislike' THEN 1 ELSE 0 END) AS dislikes_count " +
	"FROM likes WHERE comment_id IS NOT NULL GROUP BY comment_id" +
	") la ON la.comment_id = comments.id"

// CommentListQuery carries pagination, ordering and visibility for comment listings.
type CommentListQuery struct {
	Limit  int
	Offset int
	Sort   string

	// Status is an explicit admin filter. Non-admin viewers always get the
	// visibility policy instead: active comments plus their own.
	Status        *models.Status
	ViewerID      uint
	ViewerIsAdmin bool
}

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, q CommentListQuery) ([]models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select(commentAggregateSelect).
		Joins(commentLikesJoin).
		Preload("Author").
		Where("comments.id = ?", id).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) applyVisibility(db *gorm.DB, q CommentListQuery) *gorm.DB {
	switch {
	case q.ViewerIsAdmin:
		if q.Status != nil {
			return db.Where("comments.status = ?", *q.Status)
		}
		return db
	case q.ViewerID != 0:
		return db.Where("comments.status = ? OR comments.author_id = ?", models.StatusActive, q.ViewerID)
	default:
		return db.Where("comments.status = ?", models.StatusActive)
	}
}

var commentSortColumns = map[string]string{
	"publish_date": "comments.publish_date",
	"id":           "comments.id",
}

func (r *commentRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	dir := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		field = sort[1:]
	}
	if col, ok := commentSortColumns[field]; ok {
		return db.Order(col + " " + dir).Order("comments.id " + dir)
	}
	return db.Order("comments.publish_date ASC").Order("comments.id ASC")
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint, q CommentListQuery) ([]models.Comment, int64, error) {
	var total int64
	countQuery := r.applyVisibility(
		r.db.WithContext(ctx).Model(&models.Comment{}).Where("comments.post_id = ?", postID), q)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []models.Comment
	base := r.applyVisibility(
		r.db.WithContext(ctx).
			Model(&models.Comment{}).
			Select(commentAggregateSelect).
			Joins(commentLikesJoin).
			Preload("Author").
			Where("comments.post_id = ?", postID), q)
	err := r.applySort(base, q.Sort).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete hard-deletes a comment and its likes without relying on foreign key
// enforcement.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM likes WHERE comment_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM comments WHERE id = ?", id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
