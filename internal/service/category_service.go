package service

import (
	"context"
	"sort"
	"strings"

	"tribune/internal/models"
	"tribune/internal/repository"
)

const maxCategoryNameLen = 100

type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

type CategoryInput struct {
	Name        string
	Description string
}

type ListCategoriesInput struct {
	Search string
	Sort   string
}

// ListCategories serves from the cached full listing. The set is small, so
// the optional search filter and ordering run in memory.
func (s *CategoryService) ListCategories(ctx context.Context, in ListCategoriesInput) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	if in.Search != "" {
		needle := strings.ToLower(in.Search)
		filtered := categories[:0:0]
		for _, c := range categories {
			if strings.Contains(strings.ToLower(c.Name), needle) ||
				strings.Contains(strings.ToLower(c.Description), needle) {
				filtered = append(filtered, c)
			}
		}
		categories = filtered
	}

	switch in.Sort {
	case "", "name":
		// repository order
	case "-name":
		sort.Slice(categories, func(i, j int) bool { return categories[i].Name > categories[j].Name })
	case "id":
		sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	case "-id":
		sort.Slice(categories, func(i, j int) bool { return categories[i].ID > categories[j].ID })
	default:
		return nil, models.NewValidationError("Invalid sort field")
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *CategoryService) CreateCategory(ctx context.Context, actor *models.Actor, in CategoryInput) (*models.Category, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCategoryInput(in); err != nil {
		return nil, err
	}

	category := &models.Category{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, actor *models.Actor, id uint, in CategoryInput) (*models.Category, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCategoryInput(in); err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = in.Name
	category.Description = in.Description
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes the category and detaches it from every post.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *models.Actor, id uint) error {
	if err := ensureAdmin(actor); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}

func validateCategoryInput(in CategoryInput) error {
	if in.Name == "" {
		return models.NewValidationError("Name is required")
	}
	if len(in.Name) > maxCategoryNameLen {
		return models.NewValidationError("Name too long (max 100 characters)")
	}
	return nil
}
