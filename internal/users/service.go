package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	FindUsers(ctx context.Context, ids []int64) (map[int64]User, error)
	ListUsers(ctx context.Context, filter Filter, page shared.Pagination) ([]User, int, error)
	ListUserIDsByTypes(ctx context.Context, types []UserType) ([]int64, error)
	CreateUser(ctx context.Context, input CreateUserInput) (User, error)
	UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers returns users matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter Filter, page shared.Pagination) ([]User, int, error) {
	return s.repo.ListUsers(ctx, filter, page)
}

// VerifyUsersExist checks every id, collecting all missing ones into a
// single UnknownUsersError instead of failing on the first.
func (s *Service) VerifyUsersExist(ctx context.Context, ids []int64) (map[int64]User, error) {
	found, err := s.repo.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &shared.UnknownUsersError{IDs: missing}
	}
	return found, nil
}

// ListUserIDsByTypes returns ids of active users having one of the types.
func (s *Service) ListUserIDsByTypes(ctx context.Context, types []UserType) ([]int64, error) {
	return s.repo.ListUserIDsByTypes(ctx, types)
}

// EmailOf resolves a user's email address for notification delivery.
func (s *Service) EmailOf(ctx context.Context, id int64) (string, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// CreateUser validates and creates a user account.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	if input.FirstName == "" {
		return User{}, fmt.Errorf("%w: first name required", shared.ErrValidation)
	}
	if !input.Type.Valid() {
		return User{}, fmt.Errorf("%w: unknown user type %q", shared.ErrValidation, input.Type)
	}
	return s.repo.CreateUser(ctx, input)
}

// UpdateUser applies a partial update.
func (s *Service) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	if input.FirstName != nil && strings.TrimSpace(*input.FirstName) == "" {
		return User{}, fmt.Errorf("%w: first name cannot be empty", shared.ErrValidation)
	}
	return s.repo.UpdateUser(ctx, id, input)
}

// DeleteUser soft deletes an account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// AsAssignment converts a user to the shape rbac predicates inspect.
func AsAssignment(u User) rbac.AssignmentUser {
	return rbac.AssignmentUser{ID: u.ID, Type: string(u.Type), Active: u.Active && !u.Deleted}
}
