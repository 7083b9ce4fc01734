package repository

import (
	"context"
	"errors"
	"time"

	"tribune/internal/cache"
	"tribune/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ratingSelect joins the denormalized rating into user reads.
const ratingSelect = "users.*, COALESCE(user_ratings.rating, 0) AS rating"

// UserListQuery carries pagination and the optional search and role filters
// for user listings.
type UserListQuery struct {
	Limit  int
	Offset int
	Search string
	Role   *models.Role
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDCached(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByLoginOrEmail(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q UserListQuery) ([]models.User, int64, error)
	UpsertRating(ctx context.Context, userID uint, rating int) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) withRating(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Select(ratingSelect).
		Joins("LEFT JOIN user_ratings ON user_ratings.user_id = users.id")
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.withRating(ctx).Where("users.id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByIDCached is the cache-aside variant used on hot paths such as actor
// resolution. Writes invalidate via cache.InvalidateUser.
func (r *userRepository) GetByIDCached(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.withRating(ctx).Where("users.id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.withRating(ctx).Where("users.email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if err := r.withRating(ctx).Where("users.login = ?", login).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByLoginOrEmail resolves the login identifier used at sign-in, which may
// be either field.
func (r *userRepository) GetByLoginOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	if err := r.withRating(ctx).
		Where("users.login = ? OR users.email = ?", identifier, identifier).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Login or email already in use")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Login or email already in use")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// List returns users ordered by rating first, then id for a stable order.
func (r *userRepository) List(ctx context.Context, q UserListQuery) ([]models.User, int64, error) {
	applyFilters := func(tx *gorm.DB) *gorm.DB {
		if q.Search != "" {
			pattern := "%" + escapeLike(q.Search) + "%"
			tx = tx.Where(
				`(LOWER(users.login) LIKE LOWER(?) ESCAPE '\' OR LOWER(users.full_name) LIKE LOWER(?) ESCAPE '\')`,
				pattern, pattern,
			)
		}
		if q.Role != nil {
			tx = tx.Where("users.role = ?", *q.Role)
		}
		return tx
	}

	var total int64
	if err := applyFilters(r.db.WithContext(ctx).Model(&models.User{})).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := applyFilters(r.withRating(ctx)).
		Order("rating DESC, users.id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

// UpsertRating writes the recomputed denormalized rating for a user.
func (r *userRepository) UpsertRating(ctx context.Context, userID uint, rating int) error {
	row := models.UserRating{UserID: userID, Rating: rating, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}
