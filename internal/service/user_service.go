package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/storage"
)

// UserService manages accounts on behalf of administrators and their owners.
type UserService struct {
	users   repository.UserRepository
	hasher  *auth.Hasher
	avatars *AvatarStore
	logger  *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, hasher *auth.Hasher, store storage.ObjectStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:   users,
		hasher:  hasher,
		avatars: NewAvatarStore(store, logger),
		logger:  logger,
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role domain.Role
}

// CreateUserInput carries an administrator-created account.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

// UpdateUserInput carries a partial profile update.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *domain.Role
	Avatar    *Upload
}

func (s *UserService) List(ctx context.Context, page repository.Page) ([]domain.User, int, error) {
	return s.users.List(ctx, page)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create adds an account with any role. No token is minted; the owner signs in later.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
		Avatar:       domain.DefaultAvatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Update edits a profile. Owners may edit themselves; super admins may edit anyone and
// are the only ones allowed to change a role.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, in UpdateUserInput) (*domain.User, error) {
	isSuper := actor.Role == domain.RoleSuperAdmin
	if actor.ID != id && !isSuper {
		return nil, ErrForbidden
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Role != nil && *in.Role != user.Role {
		if !isSuper {
			return nil, ErrRoleChangeForbidden
		}
		user.Role = *in.Role
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}

	oldAvatar := user.Avatar
	if in.Avatar != nil {
		name, err := s.avatars.Save(ctx, in.Avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = name
	}

	if err := s.users.Update(ctx, user); err != nil {
		if in.Avatar != nil {
			s.avatars.Remove(ctx, user.Avatar)
		}
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Avatar != oldAvatar {
		s.avatars.Remove(ctx, oldAvatar)
	}
	return user, nil
}

// Delete hard-deletes the account and its avatar.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.avatars.Remove(ctx, user.Avatar)
	return nil
}

// OpenAvatar streams a stored avatar file.
func (s *UserService) OpenAvatar(ctx context.Context, name string) (*storage.Object, error) {
	return s.avatars.Open(ctx, name)
}
