package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherd-hq/shepherd/internal/shared"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	sm, _ := newSessionManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, token+"x"), shared.ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), shared.ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), nil, token), shared.ErrCSRFTokenMissing)
}

func TestCSRFTokenBoundToSessionID(t *testing.T) {
	sm, _ := newSessionManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	before, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	sm.Regenerate(sess)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, before), shared.ErrCSRFTokenMismatch)

	after, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, after))
}

func TestCSRFTokenRejectsOtherSecret(t *testing.T) {
	sm, _ := newSessionManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := shared.NewCSRFManager("other").Rotate(sess)
	require.NoError(t, err)
	assert.ErrorIs(t, shared.NewCSRFManager("csrfsecret").VerifyToken(context.Background(), sess, token), shared.ErrCSRFTokenMismatch)
}

func TestEnsureTokenNeedsSession(t *testing.T) {
	_, err := shared.NewCSRFManager("s").EnsureToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestCSRFMiddleware(t *testing.T) {
	sm, _ := newSessionManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	handler := csrf.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(method string, body url.Values, header string) int {
		req := httptest.NewRequest(method, "/", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set(shared.CSRFHeader, header)
		}
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet, nil, ""))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodPost, nil, ""))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, url.Values{shared.CSRFFormField: {token}}, ""))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodDelete, nil, token))
}
