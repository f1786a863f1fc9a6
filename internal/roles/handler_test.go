package roles

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	records []Record
	err     error
}

func (s stubRepo) ListRoles(context.Context) ([]Record, error) {
	return s.records, s.err
}

func newTestRouter(repo RepositoryPort) http.Handler {
	r := chi.NewRouter()
	r.Route("/admin/roles", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo)).MountRoutes)
	return r
}

func TestCheckDrift(t *testing.T) {
	svc := NewService(stubRepo{records: []Record{{ID: 1, Name: "Super Admin"}, {ID: 2, Name: "church admin"}}})

	drift, err := svc.CheckDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Church Admin"}, drift.Missing)
	assert.Equal(t, []string{"church admin"}, drift.Unknown)
	assert.False(t, drift.Empty())
}

func TestCheckDriftMatchesEnumeration(t *testing.T) {
	svc := NewService(stubRepo{records: []Record{{ID: 1, Name: "Super Admin"}, {ID: 2, Name: "Church Admin"}}})

	drift, err := svc.CheckDrift(context.Background())
	require.NoError(t, err)
	assert.True(t, drift.Empty())
}

func TestListRolesJSON(t *testing.T) {
	router := newTestRouter(stubRepo{records: []Record{{ID: 1, Name: "Super Admin", GuardName: GuardWeb}}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/roles/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body listResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Roles, 1)
	assert.Equal(t, "Super Admin", body.Roles[0].Name)
	assert.Equal(t, []string{"Church Admin"}, body.Drift.Missing)
}

func TestListRolesFailure(t *testing.T) {
	router := newTestRouter(stubRepo{err: errors.New("db down")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/roles/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}
