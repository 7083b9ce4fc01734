package repository

import (
	"context"
	"strings"
	"time"

	"tribune/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeListQuery carries pagination and ordering for like listings.
type LikeListQuery struct {
	Limit  int
	Offset int
	Sort   string
}

// LikeRepository defines persistence operations for likes and the
// denormalized author ratings derived from them.
type LikeRepository interface {
	UpsertForPost(ctx context.Context, authorID, postID uint, likeType models.LikeType) error
	UpsertForComment(ctx context.Context, authorID, commentID uint, likeType models.LikeType) error
	DeleteForPost(ctx context.Context, authorID, postID uint) error
	DeleteForComment(ctx context.Context, authorID, commentID uint) error
	ListByPost(ctx context.Context, postID uint, q LikeListQuery) ([]models.Like, int64, error)
	ListByComment(ctx context.Context, commentID uint, q LikeListQuery) ([]models.Like, int64, error)
	SumForAuthorPosts(ctx context.Context, authorID uint) (int, error)
	SumForAuthorComments(ctx context.Context, authorID uint) (int, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// UpsertForPost sets the caller's reaction on a post. A repeated reaction
// replaces the type and refreshes the timestamp rather than erroring.
func (r *likeRepository) UpsertForPost(ctx context.Context, authorID, postID uint, likeType models.LikeType) error {
	like := models.Like{
		AuthorID:    authorID,
		PostID:      &postID,
		Type:        likeType,
		PublishDate: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Omit("Author").
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "author_id"}, {Name: "post_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "post_id IS NOT NULL"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"type", "publish_date"}),
		}).
		Create(&like).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) UpsertForComment(ctx context.Context, authorID, commentID uint, likeType models.LikeType) error {
	like := models.Like{
		AuthorID:    authorID,
		CommentID:   &commentID,
		Type:        likeType,
		PublishDate: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Omit("Author").
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "author_id"}, {Name: "comment_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "comment_id IS NOT NULL"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"type", "publish_date"}),
		}).
		Create(&like).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteForPost removes the caller's reaction. Removing a reaction that does
// not exist is a no-op.
func (r *likeRepository) DeleteForPost(ctx context.Context, authorID, postID uint) error {
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND post_id = ?", authorID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) DeleteForComment(ctx context.Context, authorID, commentID uint) error {
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND comment_id = ?", authorID, commentID).
		Delete(&models.Like{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

var likeSortColumns = map[string]string{
	"publish_date": "likes.publish_date",
	"id":           "likes.id",
}

func (r *likeRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	dir := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		field = sort[1:]
	}
	if col, ok := likeSortColumns[field]; ok {
		return db.Order(col + " " + dir).Order("likes.id " + dir)
	}
	return db.Order("likes.publish_date ASC").Order("likes.id ASC")
}

func (r *likeRepository) list(ctx context.Context, where string, id uint, q LikeListQuery) ([]models.Like, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where(where, id).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var likes []models.Like
	base := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Preload("Author").
		Where(where, id)
	err := r.applySort(base, q.Sort).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&likes).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return likes, total, nil
}

func (r *likeRepository) ListByPost(ctx context.Context, postID uint, q LikeListQuery) ([]models.Like, int64, error) {
	return r.list(ctx, "likes.post_id = ?", postID, q)
}

func (r *likeRepository) ListByComment(ctx context.Context, commentID uint, q LikeListQuery) ([]models.Like, int64, error) {
	return r.list(ctx, "likes.comment_id = ?", commentID, q)
}

// SumForAuthorPosts computes the net score of all reactions on the author's posts.
func (r *likeRepository) SumForAuthorPosts(ctx context.Context, authorID uint) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Select("COALESCE(SUM(CASE WHEN likes.type = 'like' THEN 1 WHEN likes.type = 'dislike' THEN -1 ELSE 0 END), 0)").
		Joins("JOIN posts ON posts.id = likes.post_id").
		Where("posts.author_id = ?", authorID).
		Scan(&sum).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return sum, nil
}

// SumForAuthorComments computes the net score of all reactions on the author's comments.
func (r *likeRepository) SumForAuthorComments(ctx context.Context, authorID uint) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Select("COALESCE(SUM(CASE WHEN likes.type = 'like' THEN 1 WHEN likes.type = 'dislike' THEN -1 ELSE 0 END), 0)").
		Joins("JOIN comments ON comments.id = likes.comment_id").
		Where("comments.author_id = ?", authorID).
		Scan(&sum).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return sum, nil
}
