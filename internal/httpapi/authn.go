package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bodega.org/internal/auth"
)

const (
	authHeader        = "Authorization"
	bearer            = "Bearer "
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

var publicPaths = []string{
	"/api/auth/login",
	"/api/auth/refresh",
	"/api/auth/logout",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth resolves the presented token before any protected handler runs.
// The Authorization header wins over the access_token cookie; the raw token
// string is kept in context so logout can revoke exactly what was presented.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := presentedToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := a.auth.Resolve(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenRevoked):
				writeError(w, r, http.StatusUnauthorized, err.Error())
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthenticated):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// presentedToken returns the bearer header token, falling back to the access
// cookie.
func presentedToken(r *http.Request) string {
	if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
		return token
	}
	if c, err := r.Cookie(accessCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
