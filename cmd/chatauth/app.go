package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mkraev/chatauth/internal/db"
	"github.com/mkraev/chatauth/internal/handlers"
	"github.com/mkraev/chatauth/internal/logger"
	"github.com/mkraev/chatauth/internal/repository"
	"github.com/mkraev/chatauth/internal/repository/memory"
	"github.com/mkraev/chatauth/internal/repository/postgres"
	"github.com/mkraev/chatauth/internal/service/auth"
	"github.com/mkraev/chatauth/internal/service/identity"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	// Without DSN the users live in memory, good enough for local runs
	var userRepo repository.UserRepo
	if c.DatabaseDSN != "" {
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		userRepo = postgres.NewUserRepo(pool)
	} else {
		log.Warn("No database configured, keeping users in memory")
		userRepo = memory.NewUserRepo()
	}

	// Initialize services
	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authCfg := auth.Config{
		Hasher:      auth.BcryptHasher{Cost: c.BcryptCost},
		RememberTTL: c.RememberTokenTTL,
	}
	if c.GoogleClientID != "" {
		authCfg.Google = identity.NewGoogleClient(c.GoogleClientID)
	}

	authService, err := auth.NewService(authCfg, tokenManager, userRepo)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
