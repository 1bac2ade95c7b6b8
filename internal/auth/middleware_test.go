package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashwin275/billing-api/internal/user"
)

func testIssuer() *TokenIssuer {
	return &TokenIssuer{
		Secret:   []byte("test-secret-test-secret-test-sec"),
		Issuer:   "billing-api",
		Audience: "billing-console",
		TTL:      15 * time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	handler := RequireAuth(testIssuer())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	handler := RequireAuth(testIssuer())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsSignedToken(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.Sign("user-1", user.RoleStaff)
	require.NoError(t, err)

	handler := RequireAuth(issuer)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	past := testIssuer()
	past.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := past.Sign("user-1", user.RoleStaff)
	require.NoError(t, err)

	handler := RequireAuth(testIssuer())(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	issuer := testIssuer()

	adminToken, _, err := issuer.Sign("admin-1", user.RoleAdmin)
	require.NoError(t, err)
	staffToken, _, err := issuer.Sign("staff-1", user.RoleStaff)
	require.NoError(t, err)

	handler := RequireAuth(issuer)(RequireRole(user.RoleAdmin)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
