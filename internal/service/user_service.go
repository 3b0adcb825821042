package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/repository"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

// UserService manages staff accounts.
type UserService struct {
	users      repository.UserRepository
	branches   repository.BranchRepository
	bcryptCost int
}

// UserInput describes account creation payload.
type UserInput struct {
	Username string
	Password string
	Role     string
	BranchID *int64
}

// UserUpdateInput changes an account; nil fields keep their value.
type UserUpdateInput struct {
	Username *string
	Role     *string
	BranchID *int64
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, branches repository.BranchRepository, bcryptCost int) *UserService {
	return &UserService{users: users, branches: branches, bcryptCost: auth.BcryptCost(bcryptCost)}
}

// Create adds a staff account. Cashiers and guards must belong to an existing branch.
func (s *UserService) Create(ctx context.Context, input UserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username required", nil)
	}
	if err := passwordPolicy(username, input.Password); err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	branchID, err := s.assignment(ctx, role, input.BranchID)
	if err != nil {
		return nil, err
	}
	if err := s.usernameFree(ctx, username, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		BranchID:     branchID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns accounts, optionally limited to one branch.
func (s *UserService) List(ctx context.Context, branchID *int64) ([]domain.User, error) {
	return s.users.List(ctx, branchID)
}

// Update changes username, role or branch. Moving a cashier or guard to another
// branch changes which schedule gates them from their next login.
func (s *UserService) Update(ctx context.Context, id int64, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("username required", nil)
		}
		if !strings.EqualFold(username, user.Username) {
			if err := s.usernameFree(ctx, username, id); err != nil {
				return nil, err
			}
		}
		user.Username = username
	}
	if input.Role != nil {
		role, ok := domain.ParseRole(*input.Role)
		if !ok {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		user.Role = role
	}
	requested := user.BranchID
	if input.BranchID != nil {
		requested = input.BranchID
	}
	if user.BranchID, err = s.assignment(ctx, user.Role, requested); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the confirmation and policy.
func (s *UserService) ChangePassword(ctx context.Context, id int64, password, confirm string) error {
	if password != confirm {
		return apperrors.NewValidationError("Passwords do not match", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "user", id)
	}
	if err := passwordPolicy(user.Username, password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return notFound(err, "user", id)
	}
	return nil
}

// assignment resolves the branch an account belongs to: required and existing
// for cashiers and guards, always nil for admins.
func (s *UserService) assignment(ctx context.Context, role domain.Role, branchID *int64) (*int64, error) {
	if !role.BranchScoped() {
		return nil, nil
	}
	if branchID == nil {
		return nil, apperrors.NewValidationError("branch_id required for "+string(role), nil)
	}
	if _, err := s.branches.GetByID(ctx, *branchID); err != nil {
		return nil, notFound(err, "branch", *branchID)
	}
	return branchID, nil
}

func (s *UserService) usernameFree(ctx context.Context, username string, self int64) error {
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	}
	return apperrors.NewConflict("username already taken", nil)
}

func passwordPolicy(username, password string) error {
	if err := auth.ValidatePassword(username, password); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"min_length": auth.MinPasswordLength})
	}
	return nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user", id)
	}
	return nil
}
