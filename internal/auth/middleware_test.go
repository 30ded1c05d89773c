package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, claims *Claims) (domain.Caller, error)

func (f resolverFunc) ResolveCaller(ctx context.Context, claims *Claims) (domain.Caller, error) {
	return f(ctx, claims)
}

func echoCaller(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		_ = json.NewEncoder(w).Encode(caller)
	})
}

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestAuthenticate_ValidToken(t *testing.T) {
	mgr := newTestJWTManager()
	caller := domain.Caller{ID: uuid.New(), Username: "gamer", Role: domain.RoleUser}
	token, err := mgr.GenerateToken(caller)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/servers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Authenticate(mgr, nil)(echoCaller(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Caller
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, caller, got)
}

func TestAuthenticate_Rejections(t *testing.T) {
	mgr := newTestJWTManager()
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/servers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(mgr, nil)(echoCaller(t)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, domain.CodeUnauthorized, decodeCode(t, rec))
		})
	}
}

func TestAuthenticate_ResolverOverridesClaims(t *testing.T) {
	mgr := newTestJWTManager()
	id := uuid.New()
	token, _ := mgr.GenerateToken(domain.Caller{ID: id, Username: "old", Role: domain.RoleUser})

	resolver := resolverFunc(func(_ context.Context, c *Claims) (domain.Caller, error) {
		return domain.Caller{ID: id, Username: "old", Role: domain.RoleAdmin}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Authenticate(mgr, resolver)(RequireRole(domain.RoleAdmin)(echoCaller(t))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_DeletedUserFailsClosed(t *testing.T) {
	mgr := newTestJWTManager()
	token, _ := mgr.GenerateToken(domain.Caller{ID: uuid.New(), Role: domain.RoleAdmin})

	resolver := resolverFunc(func(context.Context, *Claims) (domain.Caller, error) {
		return domain.Caller{}, domain.ErrUnauthorized("user no longer exists")
	})

	req := httptest.NewRequest(http.MethodGet, "/servers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Authenticate(mgr, resolver)(echoCaller(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateQuery_AcceptsTokenParam(t *testing.T) {
	mgr := newTestJWTManager()
	token, _ := mgr.GenerateToken(domain.Caller{ID: uuid.New(), Role: domain.RoleUser})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	AuthenticateQuery(mgr, nil)(echoCaller(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Authenticate(mgr, nil)(echoCaller(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("no caller", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("user forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req = req.WithContext(WithCaller(req.Context(), domain.Caller{ID: uuid.New(), Role: domain.RoleUser}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, domain.CodeForbidden, decodeCode(t, rec))
	})

	t.Run("admin allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req = req.WithContext(WithCaller(req.Context(), domain.Caller{ID: uuid.New(), Role: domain.RoleAdmin}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
