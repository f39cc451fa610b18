package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// RoleResolver yields the role names a user account holds.
type RoleResolver interface {
	RolesOf(user rbac.AssignmentUser) []string
}

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleResolver
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleResolver) *Service {
	return &Service{repo: repo, roles: roles}
}

// Authenticate validates email/password credentials and resolves the
// user's role set. Any failure maps to ErrInvalidCredentials so the
// response never reveals whether the account exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Identity{}, shared.ErrInvalidCredentials
	}
	if !cred.Active {
		return Identity{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Identity{}, shared.ErrInvalidCredentials
	}
	roles := s.roles.RolesOf(rbac.AssignmentUser{
		ID:     cred.UserID,
		Type:   cred.Type,
		Active: cred.Active,
	})
	return Identity{UserID: cred.UserID, Roles: roles}, nil
}

// RegisterSession persists the session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
