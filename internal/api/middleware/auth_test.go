package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/clothing-shop/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-test-secret-key!", 15*time.Minute)
}

func captureClaims(target **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			*target = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken("user-123", "Chan Vicheka", auth.RoleStaff)
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware(captureClaims(&capturedClaims)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, "user-123", capturedClaims.UserID)
	assert.Equal(t, "Chan Vicheka", capturedClaims.Name)
	assert.Equal(t, auth.RoleStaff, capturedClaims.Role)
}

func TestAuthMiddleware_CookieTakesPrecedence(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService)

	cookieToken, _, err := jwtService.GenerateAccessToken("cookie-user", "", auth.RoleStaff)
	require.NoError(t, err)
	headerToken, _, err := jwtService.GenerateAccessToken("header-user", "", auth.RoleAdmin)
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)
	rec := httptest.NewRecorder()

	middleware(captureClaims(&capturedClaims)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, "cookie-user", capturedClaims.UserID)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	jwtService := newTestJWTService()
	expired, _, err := auth.NewJWTService("test-secret-key-test-secret-key!", -time.Minute).GenerateAccessToken("user-1", "", auth.RoleAdmin)
	require.NoError(t, err)
	foreign, _, err := auth.NewJWTService("another-secret-another-secret-!!", time.Minute).GenerateAccessToken("user-1", "", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"no token", "", "unauthorized"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "unauthorized"},
		{"garbage", "Bearer invalid-token", "invalid_token"},
		{"expired", "Bearer " + expired, "token_expired"},
		{"wrong signature", "Bearer " + foreign, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(jwtService)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

// ============================================
// Require Role Middleware Tests
// ============================================

func requestAs(role string) *http.Request {
	claims := &auth.Claims{UserID: "user-123", Role: role}
	ctx := WithClaims(context.Background(), claims)
	return httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil).WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	middleware := RequireRole(auth.RoleAdmin, auth.RoleStaff)

	tests := []struct {
		role string
		want int
	}{
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleStaff, http.StatusOK},
		{"staff", http.StatusOK},
		{"CUSTOMER", http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			rec := httptest.NewRecorder()
			middleware(okHandler).ServeHTTP(rec, requestAs(tt.role))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRole_NoClaims(t *testing.T) {
	rec := httptest.NewRecorder()

	RequireRole(auth.RoleAdmin)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Helper Functions Tests
// ============================================

func TestClaimsFromContext(t *testing.T) {
	claims := &auth.Claims{UserID: "user-123", Role: auth.RoleStaff}
	ctx := WithClaims(context.Background(), claims)

	result, ok := ClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, result)
	assert.Equal(t, "user-123", GetUserID(ctx))

	result, ok = ClaimsFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, result)
	assert.Empty(t, GetUserID(context.Background()))

	_, ok = ClaimsFromContext(WithClaims(context.Background(), nil))
	assert.False(t, ok)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(req))

	req.Header.Set("Authorization", "bearer  abc.def ")
	assert.Equal(t, "abc.def", ExtractToken(req))

	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", ExtractToken(req))
}
