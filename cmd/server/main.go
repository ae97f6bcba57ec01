package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/api"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/backend"
	"github.com/eatbalance/web/internal/config"
	"github.com/eatbalance/web/internal/service"
	"github.com/eatbalance/web/internal/session"
	"github.com/eatbalance/web/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("storage close: %v", err)
		}
	}()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger)

	var provider auth.Provider
	if cfg.AuthMode == "local" {
		logger.Warn("AUTH_MODE=local: accounts live in memory and are lost on restart")
		provider = auth.NewLocalAuthProvider(logger)
	} else {
		provider = auth.NewRemoteAuthProvider(client, logger)
	}

	sessions := session.NewManager(store, provider, cfg.SessionTTL, logger)
	handoffs := service.NewHandoffService(store, cfg.HandoffTTL, logger)

	app := &api.Services{
		Log:        logger,
		SessionMgr: sessions,
		Account:    service.NewAccountService(provider, sessions, logger),
		Plan:       service.NewPlanService(client, sessions, handoffs, logger),
		Menu:       service.NewMenuService(client, sessions, cfg.MenuDefaultScheme, cfg.MenuOptionCount, logger),
		Handoff:    handoffs,
		Food:       service.NewFoodService(client, sessions, logger),
	}

	janitor := service.NewJanitor(sessions, handoffs, logger)
	if err := janitor.Start("@every 1m"); err != nil {
		logger.Fatalf("failed to schedule janitor: %v", err)
	}
	defer janitor.Stop()

	router := api.NewRouter(app, auth.CookieOptions{
		Secure: cfg.CookieSecure,
		MaxAge: int(cfg.SessionTTL / time.Second),
	})
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID", auth.HeaderName},
		ExposedHeaders:   []string{"X-Request-ID", auth.HeaderName, "Content-Disposition"},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Server running on %s (backend %s, storage %s)", cfg.HTTPAddr, cfg.BackendURL, cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
