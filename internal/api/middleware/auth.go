package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/clothing-shop/internal/auth"
	"github.com/example/clothing-shop/internal/logger"
	"go.uber.org/zap"
)

// AccessTokenCookie is set by the admin web app after login.
const AccessTokenCookie = "access_token"

type claimsKey struct{}

// denial mirrors the API error body so clients see one shape.
type denial struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func deny(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	logger.FromContext(r.Context()).Info("request denied",
		zap.String("code", code),
		zap.String("role", roleOf(r.Context())))

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="shop-admin"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(denial{Error: message, Code: code})
}

// ExtractToken reads the staff token from the cookie, then from a bearer
// Authorization header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware rejects requests without a valid staff token and stores the
// claims on the context.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				deny(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				deny(w, r, http.StatusUnauthorized, "token_expired", "token expired")
				return
			case err != nil:
				deny(w, r, http.StatusUnauthorized, "invalid_token", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole lets the request through when the caller holds any of roles.
// Role names compare case-insensitively.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToUpper(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			if _, ok := allowed[strings.ToUpper(claims.Role)]; !ok {
				deny(w, r, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserID returns the caller's id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

func roleOf(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.Role
	}
	return ""
}
