package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"litrevu/internal/app"
	"litrevu/internal/config"
	"litrevu/internal/handler"
	"litrevu/internal/logger"
	"litrevu/internal/service"
	authmw "litrevu/internal/transport/http/middleware"
)

const (
	shutdownTimeout = 15 * time.Second

	tokenPurgeInterval = time.Hour
	tokenPurgeGrace    = 24 * time.Hour
)

// NewHandler builds the HTTP handler tree for a wired application.
func NewHandler(a *app.App) stdhttp.Handler {
	cfg := a.Config
	return NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(a.Users, a.Auth, cfg),
		UserHandler:         handler.NewUserHandler(a.Users),
		RelationshipHandler: handler.NewRelationshipHandler(a.Relationships),
		TicketHandler:       handler.NewTicketHandler(a.Tickets),
		ReviewHandler:       handler.NewReviewHandler(a.Reviews),
		FeedHandler:         handler.NewFeedHandler(a.Feed),
		JWTSecret:           cfg.JWTSecret,
		LoginLimiter:        authmw.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
		Logger:              logger.Named("http"),
	})
}

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Open storage, cache and services
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.StartWorkers(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	go purgeTokens(ctx, a.Auth)

	// 3. Serve until signalled
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewHandler(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// purgeTokens deletes long-expired refresh tokens until ctx ends.
func purgeTokens(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpired(ctx, tokenPurgeGrace)
			if err != nil {
				logger.Warn("refresh token purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
