package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the session cookie.
const CookieName = "session"

type contextKey struct{}

// WithUser stores the session claims in ctx.
func WithUser(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// UserFromContext returns the session claims, or nil when signed out.
func UserFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(contextKey{}).(*Claims)
	return c
}

// Middleware attaches the claims of a valid session cookie to the request
// context. Requests without a valid session pass through signed out.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err == nil && cookie.Value != "" {
			if claims, err := s.Authenticate(cookie.Value); err == nil {
				r = r.WithContext(WithUser(r.Context(), claims))
			} else {
				ClearCookie(w, r)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
