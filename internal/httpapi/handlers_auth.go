package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleAuthLogin opens an admin session for API clients. It shares the
// admin panel's cookie and login throttle.
func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	u, sessID, err := a.authSvc.Login(r.Context(), service.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		AdminOnly: true,
	})
	if err != nil {
		a.observeLoginError("api", err)
		WriteDomainError(w, err)
		return
	}

	auth.SetSessionCookie(w, auth.AdminCookieName, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	WriteSuccess(w, http.StatusOK, "logged in", u)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID, ok := CurrentSessionID(r.Context())
	if !ok || sessID == "" {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	_ = a.authSvc.Logout(r.Context(), sessID)
	auth.ClearSessionCookie(w, auth.AdminCookieName, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteSuccess(w, http.StatusOK, "", u)
}

func (a *api) observeLoginError(area string, err error) {
	if a.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		a.metrics.FailedLogins.WithLabelValues(area).Inc()
	case errors.Is(err, domain.ErrLoginBlocked):
		a.metrics.BlockedLogins.WithLabelValues(area).Inc()
	}
}
