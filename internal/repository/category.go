package repository

import (
	"context"
	"errors"

	"tribune/internal/cache"
	"tribune/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List returns all categories ordered by name. The full set is small and
// read often, so it is cached as a single entry.
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.Aside(ctx, cache.CategoryListKey, &categories, cache.CategoryTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := cache.Aside(ctx, cache.CategoryKey(id), &category, cache.CategoryTTL, func() error {
		if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Category", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name already in use")
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.CategoryListKey)
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name already in use")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.ID)
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM posts_categories WHERE category_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, id)
	return nil
}

// ExistingIDs returns the subset of ids that refer to real categories.
func (r *categoryRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return found, nil
}
