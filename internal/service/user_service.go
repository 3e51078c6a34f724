package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"letterflow/internal/auth"
	"letterflow/internal/department"
	"letterflow/internal/models"
	"letterflow/internal/repository"
)

// ErrInvalidUser reports a user payload that violates the role/department
// coherence rules.
var ErrInvalidUser = errors.New("invalid user")

// UserService handles user administration. Every write re-checks that the
// role and the department depth agree with the capability table.
type UserService struct {
	users  *repository.UserRepository
	tree   *department.Tree
	tokens *auth.Service
}

// NewUserService creates a new user service
func NewUserService(users *repository.UserRepository, tree *department.Tree, tokens *auth.Service) *UserService {
	return &UserService{users: users, tree: tree, tokens: tokens}
}

// CreateUserInput carries the fields for a new user account.
type CreateUserInput struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Phone      string `json:"phone"`
	Role       string `json:"role" validate:"required"`
	Department string `json:"department"`
}

// Create validates the input and stores a new active user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	role := models.Role(in.Role)
	if err := s.checkPlacement(role, in.Department); err != nil {
		return nil, err
	}

	hash, err := s.tokens.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Role:         role,
		Department:   department.ParsePath(in.Department).String(),
		Active:       true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUserInput carries the mutable profile fields. Nil means unchanged.
type UpdateUserInput struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	Active     *bool   `json:"active"`
}

// Update applies the changed fields and re-validates role placement.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Role != nil {
		user.Role = models.Role(*in.Role)
	}
	if in.Department != nil {
		user.Department = department.ParsePath(*in.Department).String()
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	if err := s.checkPlacement(user.Role, user.Department); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ProfileInput carries the self-service profile fields. Nil means unchanged.
// Role, department and email stay admin-only.
type ProfileInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdateProfile applies a user's own profile changes.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Deactivate flips the active flag off. The account stays visible on past
// letters but drops out of every routing candidate set.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	return s.users.UpdateActiveStatus(ctx, id, false)
}

// Reactivate flips the active flag back on.
func (s *UserService) Reactivate(ctx context.Context, id string) error {
	return s.users.UpdateActiveStatus(ctx, id, true)
}

// Get retrieves one user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// List retrieves the whole directory.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.GetAll(ctx)
}

// checkPlacement enforces the role/department coherence rules: the role must
// exist, the department depth must match the role's expected depth, and a
// non-empty department must appear in the organizational tree.
func (s *UserService) checkPlacement(role models.Role, dept string) error {
	capability, ok := models.Capabilities[role]
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}

	path := department.ParsePath(dept)

	if capability.ExpectedDepartmentDepth == 0 {
		if path.Depth() != 0 && path.Key() != department.TopLevelSentinel {
			return fmt.Errorf("%w: role %s takes no department", ErrInvalidUser, role)
		}
		return nil
	}

	if path.Depth() != capability.ExpectedDepartmentDepth {
		return fmt.Errorf("%w: role %s requires a department of %d levels", ErrInvalidUser, role, capability.ExpectedDepartmentDepth)
	}
	if !s.tree.IsValid(path) {
		return fmt.Errorf("%w: department %q is not in the organizational tree", ErrInvalidUser, path.String())
	}

	return nil
}
