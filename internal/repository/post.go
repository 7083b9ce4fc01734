package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"tribune/internal/cache"
	"tribune/internal/models"

	"gorm.io/gorm"
)

// postAggregateSelect exposes like and comment aggregates as SELECT aliases
// so they can be referenced in ORDER BY within the same query level.
const postAggregateSelect = "posts.*, " +
	"COALESCE(la.likes_count, 0) AS likes_count, " +
	"COALESCE(la.dislikes_count, 0) AS dislikes_count, " +
	"COALESCE(la.likes_net, 0) AS likes_net, " +
	"COALESCE(ca.comments_count, 0) AS comments_count"

const postLikesJoin = "LEFT JOIN (" +
	"SELECT post_id, " +
	"SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS likes_count, " +
	"SUM(CASE WHEN type = 'dislike' THEN 1 ELSE 0 END) AS dislikes_count, " +
	"SUM(CASE WHEN type = 'like' THEN 1 ELSE -1 END) AS likes_net " +
	"FROM likes WHERE post_id IS NOT NULL GROUP BY post_id" +
	") la ON la.post_id = posts.id"

const postCommentsJoin = "LEFT JOIN (" +
	"SELECT post_id, COUNT(*) AS comments_count " +
	"FROM comments WHERE status = 'active' GROUP BY post_id" +
	") ca ON ca.post_id = posts.id"

// PostListQuery carries the filters, visibility and ordering for post listings.
type PostListQuery struct {
	Limit  int
	Offset int
	Sort   string

	Search     string
	AuthorID   uint
	CategoryID uint
	DateFrom   *time.Time
	DateTo     *time.Time

	// Status is an explicit admin filter. Non-admin viewers always get the
	// visibility policy instead: active posts plus their own.
	Status        *models.Status
	ViewerID      uint
	ViewerIsAdmin bool
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, q PostListQuery) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	ReplaceCategories(ctx context.Context, postID uint, categoryIDs []uint) error
	AttachCategories(ctx context.Context, postID uint, categoryIDs []uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) withAggregates(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(postAggregateSelect).
		Joins(postLikesJoin).
		Joins(postCommentsJoin)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Categories").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withAggregates(ctx).
		Preload("Author").
		Preload("Categories").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// applyFilters adds the WHERE clauses shared by the listing and its count.
func (r *postRepository) applyFilters(db *gorm.DB, q PostListQuery) *gorm.DB {
	switch {
	case q.ViewerIsAdmin:
		if q.Status != nil {
			db = db.Where("posts.status = ?", *q.Status)
		}
	case q.ViewerID != 0:
		db = db.Where("posts.status = ? OR posts.author_id = ?", models.StatusActive, q.ViewerID)
	default:
		db = db.Where("posts.status = ?", models.StatusActive)
	}

	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		db = db.Where(`LOWER(posts.title) LIKE LOWER(?) ESCAPE '\' OR LOWER(posts.content) LIKE LOWER(?) ESCAPE '\'`, like, like)
	}
	if q.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", q.AuthorID)
	}
	if q.CategoryID != 0 {
		db = db.Where("posts.id IN (SELECT post_id FROM posts_categories WHERE category_id = ?)", q.CategoryID)
	}
	if q.DateFrom != nil {
		db = db.Where("posts.publish_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("posts.publish_date <= ?", *q.DateTo)
	}
	return db
}

// postSortColumns whitelists sortable fields. "likes" and "rating" both map
// to the net score alias.
var postSortColumns = map[string]string{
	"likes":        "likes_net",
	"rating":       "likes_net",
	"publish_date": "posts.publish_date",
	"title":        "posts.title",
	"id":           "posts.id",
}

// applySort appends the ORDER BY clause for the requested sort key. A "-"
// prefix selects descending order. Unknown keys fall back to the default
// ordering of net score, recency, then id.
func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	dir := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		field = sort[1:]
	}

	if col, ok := postSortColumns[field]; ok {
		return db.Order(col + " " + dir).Order("posts.id " + dir)
	}
	return db.Order("likes_net DESC").Order("posts.publish_date DESC").Order("posts.id DESC")
}

func (r *postRepository) List(ctx context.Context, q PostListQuery) ([]models.Post, int64, error) {
	var total int64
	countQuery := r.applyFilters(r.db.WithContext(ctx).Model(&models.Post{}), q)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	base := r.applyFilters(r.withAggregates(ctx), q).
		Preload("Author").
		Preload("Categories")
	err := r.applySort(base, q.Sort).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Categories", "Author").Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// Delete hard-deletes a post together with its comments, likes and category
// assignments. The schema cascades match this, but the cleanup is explicit so
// the behavior does not depend on foreign key enforcement.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []string{
			"DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)",
			"DELETE FROM likes WHERE post_id = ?",
			"DELETE FROM comments WHERE post_id = ?",
			"DELETE FROM posts_categories WHERE post_id = ?",
			"DELETE FROM posts WHERE id = ?",
		}
		for _, stmt := range steps {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// ReplaceCategories swaps the full category set of a post.
func (r *postRepository) ReplaceCategories(ctx context.Context, postID uint, categoryIDs []uint) error {
	if err := r.db.WithContext(ctx).Exec("DELETE FROM posts_categories WHERE post_id = ?", postID).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.AttachCategories(ctx, postID, categoryIDs); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

// AttachCategories links categories to a post, ignoring ones already attached.
func (r *postRepository) AttachCategories(ctx context.Context, postID uint, categoryIDs []uint) error {
	for _, categoryID := range categoryIDs {
		err := r.db.WithContext(ctx).Exec(
			`INSERT INTO posts_categories (post_id, category_id)
			 VALUES (?, ?)
			 ON CONFLICT (post_id, category_id) DO NOTHING`,
			postID, categoryID,
		).Error
		if err != nil {
			return models.NewInternalError(err)
		}
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}
