package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"galaxy-server/internal/auth"
	"galaxy-server/internal/middleware"
	"galaxy-server/internal/shared/config"
	"galaxy-server/internal/shared/cookies"
	"galaxy-server/internal/shared/errors"
	"galaxy-server/internal/shared/response"
)

type MeResponse struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginHandler moves an already validated bearer token into the auth
// cookie, so browser clients need not keep the token in script.
type LoginHandler struct {
	cfg *config.Config
}

func NewLoginHandler(cfg *config.Config) *LoginHandler {
	return &LoginHandler{cfg: cfg}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "login")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no claims found in context"))
		return
	}

	token := middleware.TokenFromRequest(r)
	cookies.SetAuthCookie(w, h.cfg, token)

	logger.Info("Auth cookie issued", "subject", claims.Subject, "role", claims.Role)
	response.Success(w, http.StatusOK, meResponse(claims))
}

type LogoutHandler struct {
	cfg *config.Config
}

func NewLogoutHandler(cfg *config.Config) *LogoutHandler {
	return &LogoutHandler{cfg: cfg}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout", "remote_addr", r.RemoteAddr)

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	cookies.ClearAuthCookie(w, h.cfg)

	logger.Info("Auth cookie cleared")
	w.WriteHeader(http.StatusNoContent)
}

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no claims found in context"))
		return
	}

	response.Success(w, http.StatusOK, meResponse(claims))
}

func meResponse(claims *auth.Claims) MeResponse {
	resp := MeResponse{Subject: claims.Subject, Role: claims.Role}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return resp
}
