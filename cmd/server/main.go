package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"galaxy-server/internal/auth"
	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/middleware"
	"galaxy-server/internal/preset"
	"galaxy-server/internal/render"
	"galaxy-server/internal/server"
	"galaxy-server/internal/session"
	"galaxy-server/internal/shared/config"
	"galaxy-server/internal/shared/database"
	"galaxy-server/internal/shared/logger"
	"galaxy-server/internal/shared/redis"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a signed token for this subject and exit")
	role := flag.String("role", auth.RoleAdmin, "role carried by an issued token")
	flag.Parse()

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken, *role); err != nil {
			log.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func printToken(cfg *config.Config, subject, role string) error {
	if role != auth.RoleAdmin && role != auth.RoleEditor {
		return fmt.Errorf("unknown role %q", role)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	token, err := tokens.GenerateJWT(subject, role)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func run(cfg *config.Config) error {
	log := slog.With("component", "main", "operation", "run")
	log.Info("Starting galaxy server", "environment", cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	presetRepo := preset.Repository(preset.NewMemoryRepository())
	if cfg.Database.Enabled {
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		presetRepo = preset.NewPostgresRepository(db, slog.Default())
	} else {
		log.Info("Database disabled, presets kept in memory")
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var store session.Store
	if rdb != nil {
		store = session.NewRedisStore(rdb.Client, cfg.Redis.KeyPrefix, cfg.Session.TTL, slog.Default())
	} else {
		store = session.NewMemoryStore(cfg.Session.TTL)
	}

	ranges := galaxy.DefaultRanges()

	galaxyService, err := galaxy.NewService(cfg.Galaxy, slog.Default())
	if err != nil {
		return err
	}

	presetService := preset.NewService(presetRepo, ranges, cfg.Galaxy.MaxCount, slog.Default())
	if err := presetService.InstallBuiltins(ctx); err != nil {
		return err
	}

	previews, err := render.NewPreviewRenderer(cfg.Session.PreviewWidth, cfg.Session.PreviewHeight, slog.Default())
	if err != nil {
		return err
	}

	manager := session.NewManager(store, previews, session.ManagerConfig{
		MaxSessions: cfg.Session.MaxSessions,
		MaxCount:    cfg.Galaxy.MaxCount,
		Ranges:      ranges,
	}, slog.Default())
	defer func() {
		if err := manager.Close(); err != nil {
			log.Warn("Failed to release sessions", "error", err)
		}
	}()

	var tokens *auth.TokenService
	if cfg.AdminAuthConfigured() {
		tokens, err = auth.NewTokenService(cfg.Auth)
		if err != nil {
			return err
		}
	} else {
		log.Warn("JWT_SECRET not set, admin endpoints are unavailable")
	}

	routes := server.NewRoutes(server.Dependencies{
		Config:        cfg,
		DB:            db,
		Redis:         rdb,
		Galaxy:        galaxyService,
		Sessions:      manager,
		Presets:       presetService,
		Previews:      previews,
		Authenticator: middleware.NewAuthenticator(tokens),
		Ranges:        ranges,
	})

	var handler http.Handler = routes.Setup()

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		defer limiter.Close()
		handler = limiter.Middleware(handler)
	}
	handler = middleware.NewCORS(cfg.Frontend).Middleware(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr, "url", cfg.Server.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
