package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shepherd-hq/shepherd/internal/shared"
)

type memoryRepo struct {
	users    map[string]*User
	findErr  error
	sessions map[string]SessionRecord
	cutoff   time.Time
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) CreateSession(_ context.Context, rec SessionRecord) error {
	m.sessions[rec.ID] = rec
	return nil
}

func (m *memoryRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memoryRepo) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	m.cutoff = before
	var n int64
	for id, rec := range m.sessions {
		if rec.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func newMemoryService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memoryRepo{
		users: map[string]*User{
			"pastor@example.org":  {ID: 1, Email: "pastor@example.org", PasswordHash: string(hash), IsActive: true},
			"retired@example.org": {ID: 2, Email: "retired@example.org", PasswordHash: string(hash), IsActive: false},
		},
		sessions: make(map[string]SessionRecord),
	}
	return NewService(repo), repo
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newMemoryService(t)

	user, err := svc.Authenticate(context.Background(), "  Pastor@Example.org ", "12345678")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(context.Background(), "pastor@example.org", "wrong-password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.org", "12345678")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "retired@example.org", "12345678")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateStorageError(t *testing.T) {
	svc, repo := newMemoryService(t)
	repo.findErr = errors.New("connection reset")

	_, err := svc.Authenticate(context.Background(), "pastor@example.org", "12345678")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	svc, repo := newMemoryService(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	rec, err := svc.StartSession(context.Background(), "s-1", 1, time.Hour, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour), rec.ExpiresAt)
	_, err = svc.StartSession(context.Background(), "s-2", 1, 3*time.Hour, "", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	pruned, err := svc.PruneSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Equal(t, start.Add(2*time.Hour), repo.cutoff)
	assert.Contains(t, repo.sessions, "s-2")

	require.NoError(t, svc.EndSession(context.Background(), "s-2"))
	assert.Empty(t, repo.sessions)
}
