package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bodega.org/internal/audit"
	"bodega.org/internal/auth"
	"bodega.org/internal/inventory"
	"bodega.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User         inventory.SanitizedUser `json:"user"`
	AccessToken  string                  `json:"access_token,omitempty"`
	RefreshToken string                  `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time               `json:"expires_at,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, u, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		obs.CountLogin("denied")
		if errors.Is(err, auth.ErrUnauthenticated) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		handleDomainError(w, r, err)
		return
	}

	obs.CountLogin("ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username": u.Username,
		"user_id":  u.ID,
	})

	setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         u.Sanitize(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
	})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	u, err := a.auth.SessionUser(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, inventory.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "session is no longer valid")
			return
		}
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: u.Sanitize()})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := refreshTokenFromRequest(w, r)
	if token == "" {
		writeError(w, r, http.StatusUnauthorized, "refresh token is required")
		return
	}

	pair, u, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			writeError(w, r, http.StatusUnauthorized, err.Error())
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthenticated):
			writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
		default:
			handleDomainError(w, r, err)
		}
		return
	}

	setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         u.Sanitize(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
	})
}

// handleLogout revokes whatever tokens the request presented and clears the
// cookies. It answers 200 even when no token was sent: logout is idempotent
// and never leaks token state.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if token := presentedToken(r); token != "" {
		a.auth.Logout(token)
	}
	if c, err := r.Cookie(refreshCookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		a.auth.Logout(strings.TrimSpace(c.Value))
	}
	obs.SetRevokedTokens(a.auth.Blacklist().Len())
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// refreshTokenFromRequest prefers the refresh cookie, falling back to an
// explicit JSON body for non-browser clients.
func refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil {
		if token := strings.TrimSpace(c.Value); token != "" {
			return token
		}
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

func setTokenCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
