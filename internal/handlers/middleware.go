package handlers

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"stewardwell/internal/models"
	"stewardwell/internal/security"
	"stewardwell/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey  ContextKey = "user"
	ChildContextKey ContextKey = "child"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	childTokens *security.ChildTokenIssuer
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, childTokens *security.ChildTokenIssuer, csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		childTokens: childTokens,
		csrf:        csrf,
		limiter:     limiter,
	}
}

// RequireAuth requires a valid parent session and puts the user on the
// request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireChildAuth requires a valid child login token and puts its claims
// on the request context. Child sessions are stateless JWTs, there is no
// server-side lookup.
func (m *Middleware) RequireChildAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.ChildTokenCookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "child login required"})
			return
		}

		claims, err := m.childTokens.Verify(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, security.ChildTokenCookieName))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "child login required"})
			return
		}

		ctx := context.WithValue(r.Context(), ChildContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect validates the CSRF token on state-changing requests. Tokens
// are derived from the session, so this runs inside RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid csrf token"})
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if !m.csrf.ValidateToken(cookie.Value, token) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid csrf token"})
			return
		}

		next(w, r)
	}
}

// RateLimit rejects clients that exceed the request budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetChildFromContext retrieves the child token claims from the request context
func GetChildFromContext(ctx context.Context) *security.ChildClaims {
	claims, ok := ctx.Value(ChildContextKey).(*security.ChildClaims)
	if !ok {
		return nil
	}
	return claims
}
