package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shepherd-hq/shepherd/internal/shared"
)

// dummyHash is compared against when no account matches, so unknown emails
// cost the same bcrypt work as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("shepherd-timing-pad"), bcrypt.DefaultCost)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Authenticate checks email/password credentials. Unknown, inactive and
// mismatching accounts all yield shared.ErrInvalidCredentials; storage
// failures are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, shared.NormalizeEmail(email))
	if errors.Is(err, shared.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// StartSession records a login session that expires after ttl.
func (s *Service) StartSession(ctx context.Context, id string, userID int64, ttl time.Duration, ip, ua string) (SessionRecord, error) {
	now := s.now().UTC()
	rec := SessionRecord{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IP:        ip,
		UserAgent: ua,
	}
	if err := s.repo.CreateSession(ctx, rec); err != nil {
		return SessionRecord{}, fmt.Errorf("auth: record session: %w", err)
	}
	return rec, nil
}

// EndSession deletes a session record.
func (s *Service) EndSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PruneSessions deletes every session record that has already expired.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now().UTC())
}
