package service

import (
	"context"

	"tribune/internal/models"
	"tribune/internal/repository"
	"tribune/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxFullNameLen = 100

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

type UpdateProfileInput struct {
	FullName       *string
	ProfilePicture *string
}

type ListUsersInput struct {
	Limit  int
	Offset int
	Search string
	Role   string
}

type AdminCreateUserInput struct {
	Login    string
	Email    string
	Password string
	FullName string
	Role     string
}

type AdminUpdateUserInput struct {
	Email          *string
	FullName       *string
	ProfilePicture *string
	Password       *string
	Role           *string
}

func (s *UserService) Me(ctx context.Context, actor *models.Actor) (*models.User, error) {
	return s.users.GetByIDCached(ctx, actor.ID)
}

func (s *UserService) UpdateMe(ctx context.Context, actor *models.Actor, in UpdateProfileInput) (*models.User, error) {
	if in.FullName == nil && in.ProfilePicture == nil {
		return nil, models.NewValidationError("No updatable fields provided")
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if len(*in.FullName) > maxFullNameLen {
			return nil, models.NewValidationError("Full name too long (max 100 characters)")
		}
		user.FullName = *in.FullName
	}
	if in.ProfilePicture != nil {
		user.ProfilePicture = *in.ProfilePicture
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID is the public profile lookup. Credential fields never leave the
// model thanks to their json tags.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, in ListUsersInput) (*models.Page[models.User], error) {
	limit, offset := clampPagination(in.Limit, in.Offset)
	q := repository.UserListQuery{Limit: limit, Offset: offset, Search: in.Search}
	if in.Role != "" {
		role := models.Role(in.Role)
		if !role.Valid() {
			return nil, models.NewValidationError("Invalid role filter")
		}
		q.Role = &role
	}

	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.User]{Items: users, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *UserService) AdminCreateUser(ctx context.Context, actor *models.Actor, in AdminCreateUserInput) (*models.User, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateLogin(in.Login); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	role := models.RoleUser
	if in.Role != "" {
		role = models.Role(in.Role)
		if !role.Valid() {
			return nil, models.NewValidationError("Invalid role")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Login:          in.Login,
		Email:          in.Email,
		PasswordHash:   string(hash),
		FullName:       in.FullName,
		Role:           role,
		EmailConfirmed: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) AdminUpdateUser(ctx context.Context, actor *models.Actor, id uint, in AdminUpdateUserInput) (*models.User, error) {
	if err := ensureAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		if err := validation.ValidateEmail(*in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = *in.Email
	}
	if in.FullName != nil {
		if len(*in.FullName) > maxFullNameLen {
			return nil, models.NewValidationError("Full name too long (max 100 characters)")
		}
		user.FullName = *in.FullName
	}
	if in.ProfilePicture != nil {
		user.ProfilePicture = *in.ProfilePicture
	}
	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.PasswordHash = string(hash)
	}
	if in.Role != nil {
		role := models.Role(*in.Role)
		if !role.Valid() {
			return nil, models.NewValidationError("Invalid role")
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) AdminDeleteUser(ctx context.Context, actor *models.Actor, id uint) error {
	if err := ensureAdmin(actor); err != nil {
		return err
	}
	if actor.ID == id {
		return models.NewValidationError("Administrators cannot delete their own account")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *UserService) SetRole(ctx context.Context, actor *models.Actor, id uint, role string) (*models.User, error) {
	r := role
	return s.AdminUpdateUser(ctx, actor, id, AdminUpdateUserInput{Role: &r})
}
