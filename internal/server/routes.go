package server

import (
	"log/slog"
	"net/http"

	authHandlers "galaxy-server/internal/auth/handlers"
	"galaxy-server/internal/galaxy"
	galaxyHandlers "galaxy-server/internal/galaxy/handlers"
	"galaxy-server/internal/middleware"
	"galaxy-server/internal/preset"
	presetHandlers "galaxy-server/internal/preset/handlers"
	"galaxy-server/internal/render"
	serverHandlers "galaxy-server/internal/server/handlers"
	"galaxy-server/internal/session"
	sessionHandlers "galaxy-server/internal/session/handlers"
	"galaxy-server/internal/shared/config"
	"galaxy-server/internal/shared/database"
	"galaxy-server/internal/shared/redis"
)

// Dependencies are the services the routes are built from. DB and Redis
// may be nil when those backends are disabled.
type Dependencies struct {
	Config        *config.Config
	DB            *database.DB
	Redis         *redis.Client
	Galaxy        *galaxy.Service
	Sessions      *session.Manager
	Presets       *preset.Service
	Previews      *render.PreviewRenderer
	Authenticator *middleware.Authenticator
	Ranges        galaxy.Ranges
}

type Routes struct {
	deps Dependencies
}

func NewRoutes(deps Dependencies) *Routes {
	return &Routes{deps: deps}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	d := r.deps

	healthHandler := serverHandlers.NewHealthHandler(
		r.databasePinger(),
		r.redisPinger(),
		d.Sessions.Len,
		d.Previews.Live,
	)
	galaxyHandler := galaxyHandlers.NewGalaxyHandler(d.Galaxy, d.Ranges)
	sessionHandler := sessionHandlers.NewSessionHandler(d.Sessions, d.Presets, d.Galaxy.Defaults())
	presetHandler := presetHandlers.NewPresetHandler(d.Presets)
	loginHandler := authHandlers.NewLoginHandler(d.Config)
	logoutHandler := authHandlers.NewLogoutHandler(d.Config)
	meHandler := authHandlers.NewMeHandler()

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("GET /api/galaxy/defaults", galaxyHandler.GetDefaults)
	mux.HandleFunc("POST /api/galaxy/generate", galaxyHandler.Generate)
	mux.HandleFunc("POST /api/galaxy/stats", galaxyHandler.Stats)

	mux.HandleFunc("POST /api/sessions", sessionHandler.CreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", sessionHandler.GetSession)
	mux.HandleFunc("PUT /api/sessions/{id}/parameters", sessionHandler.UpdateParameters)
	mux.HandleFunc("GET /api/sessions/{id}/cloud", sessionHandler.GetCloud)
	mux.HandleFunc("GET /api/sessions/{id}/preview.png", sessionHandler.GetPreview)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessionHandler.DeleteSession)

	mux.HandleFunc("GET /api/presets", presetHandler.ListPresets)
	mux.HandleFunc("GET /api/presets/{name}", presetHandler.GetPreset)

	// Admin-only endpoints (authenticated + admin role)
	mux.Handle("POST /api/presets", d.Authenticator.RequireAdmin(http.HandlerFunc(presetHandler.CreatePreset)))
	mux.Handle("DELETE /api/presets/{name}", d.Authenticator.RequireAdmin(http.HandlerFunc(presetHandler.DeletePreset)))

	// Auth endpoints
	mux.Handle("POST /api/auth/session", d.Authenticator.JWTMiddleware(loginHandler))
	mux.Handle("POST /api/auth/logout", logoutHandler)
	mux.Handle("GET /api/auth/me", d.Authenticator.JWTMiddleware(meHandler))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/galaxy", "/api/sessions", "/api/presets"},
		"protected_endpoints", []string{"/api/auth/session", "/api/auth/me"},
		"admin_endpoints", []string{"POST /api/presets", "DELETE /api/presets/{name}"},
		"database_enabled", d.DB != nil,
		"redis_enabled", d.Redis != nil,
	)

	return mux
}

// A nil backend must reach the health handler as a nil interface so it
// reports "disabled" rather than "disconnected".
func (r *Routes) databasePinger() serverHandlers.Pinger {
	if r.deps.DB == nil {
		return nil
	}
	return r.deps.DB
}

func (r *Routes) redisPinger() serverHandlers.Pinger {
	if r.deps.Redis == nil {
		return nil
	}
	return r.deps.Redis
}
