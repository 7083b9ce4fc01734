package service

import (
	"context"
	"time"

	"tribune/internal/models"
	"tribune/internal/observability"
	"tribune/internal/repository"

	"gorm.io/gorm"
)

type LikeService struct {
	db       *gorm.DB
	likes    repository.LikeRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func NewLikeService(db *gorm.DB, likes repository.LikeRepository, posts repository.PostRepository, comments repository.CommentRepository) *LikeService {
	return &LikeService{db: db, likes: likes, posts: posts, comments: comments}
}

// LikeTargetInput addresses exactly one of a post or a comment.
type LikeTargetInput struct {
	PostID    *uint
	CommentID *uint
}

type SetLikeInput struct {
	LikeTargetInput
	Type string
}

type ListLikesInput struct {
	Limit  int
	Offset int
	Sort   string
}

func (in LikeTargetInput) validate() error {
	if (in.PostID == nil) == (in.CommentID == nil) {
		return models.NewValidationError("Exactly one of post_id or comment_id is required")
	}
	return nil
}

// SetLike records or replaces the actor's reaction on a post or comment and
// recomputes the denormalized rating of the content's author in the same
// transaction.
func (s *LikeService) SetLike(ctx context.Context, actor *models.Actor, in SetLikeInput) error {
	likeType := models.LikeType(in.Type)
	if !likeType.Valid() {
		return models.NewValidationError("Type must be like or dislike")
	}
	if err := in.validate(); err != nil {
		return err
	}

	targetAuthorID, err := s.resolveTargetAuthor(ctx, actor, in.LikeTargetInput)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := repository.NewLikeRepository(tx)
		if in.PostID != nil {
			if err := likes.UpsertForPost(ctx, actor.ID, *in.PostID, likeType); err != nil {
				return err
			}
		} else {
			if err := likes.UpsertForComment(ctx, actor.ID, *in.CommentID, likeType); err != nil {
				return err
			}
		}
		return recomputeRating(ctx, tx, targetAuthorID)
	})
	if err != nil {
		return err
	}

	observability.LikesTotal.WithLabelValues(string(likeType), targetKind(in.LikeTargetInput)).Inc()
	return nil
}

// RemoveLike deletes the actor's reaction if present. Removing an absent
// reaction succeeds without effect.
func (s *LikeService) RemoveLike(ctx context.Context, actor *models.Actor, in LikeTargetInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	targetAuthorID, err := s.resolveTargetAuthor(ctx, actor, in)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := repository.NewLikeRepository(tx)
		if in.PostID != nil {
			if err := likes.DeleteForPost(ctx, actor.ID, *in.PostID); err != nil {
				return err
			}
		} else {
			if err := likes.DeleteForComment(ctx, actor.ID, *in.CommentID); err != nil {
				return err
			}
		}
		return recomputeRating(ctx, tx, targetAuthorID)
	})
}

func (s *LikeService) ListPostLikes(ctx context.Context, actor *models.Actor, postID uint, in ListLikesInput) (*models.Page[models.Like], error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.AuthorID, post.Status) {
		return nil, models.NewNotFoundError("Post", postID)
	}

	limit, offset := clampPagination(in.Limit, in.Offset)
	likes, total, err := s.likes.ListByPost(ctx, postID, repository.LikeListQuery{Limit: limit, Offset: offset, Sort: in.Sort})
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Like]{Items: likes, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *LikeService) ListCommentLikes(ctx context.Context, actor *models.Actor, commentID uint, in ListLikesInput) (*models.Page[models.Like], error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(comment.AuthorID, comment.Status) {
		return nil, models.NewNotFoundError("Comment", commentID)
	}

	limit, offset := clampPagination(in.Limit, in.Offset)
	likes, total, err := s.likes.ListByComment(ctx, commentID, repository.LikeListQuery{Limit: limit, Offset: offset, Sort: in.Sort})
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Like]{Items: likes, Total: total, Limit: limit, Offset: offset}, nil
}

// resolveTargetAuthor checks the target exists and is visible to the actor,
// and returns the author whose rating the mutation affects.
func (s *LikeService) resolveTargetAuthor(ctx context.Context, actor *models.Actor, in LikeTargetInput) (uint, error) {
	if in.PostID != nil {
		post, err := s.posts.GetByID(ctx, *in.PostID)
		if err != nil {
			return 0, err
		}
		if !actor.CanSee(post.AuthorID, post.Status) {
			return 0, models.NewNotFoundError("Post", *in.PostID)
		}
		return post.AuthorID, nil
	}
	comment, err := s.comments.GetByID(ctx, *in.CommentID)
	if err != nil {
		return 0, err
	}
	if !actor.CanSee(comment.AuthorID, comment.Status) {
		return 0, models.NewNotFoundError("Comment", *in.CommentID)
	}
	return comment.AuthorID, nil
}

// recomputeRating aggregates every reaction on the user's posts and comments
// and upserts the result. It runs inside the like mutation's transaction so
// the stored rating reflects the committed state.
func recomputeRating(ctx context.Context, tx *gorm.DB, userID uint) error {
	timer := time.Now()
	defer func() {
		observability.RatingRecomputeDuration.Observe(time.Since(timer).Seconds())
	}()

	likes := repository.NewLikeRepository(tx)
	postSum, err := likes.SumForAuthorPosts(ctx, userID)
	if err != nil {
		return err
	}
	commentSum, err := likes.SumForAuthorComments(ctx, userID)
	if err != nil {
		return err
	}
	return repository.NewUserRepository(tx).UpsertRating(ctx, userID, postSum+commentSum)
}

func targetKind(in LikeTargetInput) string {
	if in.PostID != nil {
		return "post"
	}
	return "comment"
}
