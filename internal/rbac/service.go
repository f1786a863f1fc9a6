package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/internal/users"
)

// ErrNotFound indicates that the requested principal does not exist.
var ErrNotFound = errors.New("rbac: not found")

// AccountSource reads accounts and their role names.
type AccountSource interface {
	FindByID(ctx context.Context, id int64) (users.User, error)
	RoleNames(ctx context.Context, userID int64) ([]string, error)
}

// Service answers identity questions for guards and the login flow.
type Service struct {
	accounts AccountSource
}

// NewService constructs a Service.
func NewService(accounts AccountSource) *Service {
	return &Service{accounts: accounts}
}

// Principal loads the account and its current role set.
func (s *Service) Principal(ctx context.Context, userID int64) (Principal, error) {
	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("rbac: load user %d: %w", userID, err)
	}
	names, err := s.accounts.RoleNames(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("rbac: load roles for %d: %w", userID, err)
	}
	return NewPrincipal(user.ID, user.Verified(), user.IsActive, names), nil
}
