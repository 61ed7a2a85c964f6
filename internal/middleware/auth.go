package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"galaxy-server/internal/auth"
	"galaxy-server/internal/shared/cookies"
	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

// Authenticator checks tokens on protected routes. A nil token service means
// admin auth is not configured and every protected route answers 503.
type Authenticator struct {
	tokens *auth.TokenService
}

func NewAuthenticator(tokens *auth.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		if a.tokens == nil {
			response.Error(w, r, logger, errors.Unavailable("authentication is not configured"))
			return
		}

		token := TokenFromRequest(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := a.tokens.ValidateJWT(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		logger.Debug("JWT authentication successful", "subject", claims.Subject, "role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest prefers a bearer token over the auth cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookies.AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
