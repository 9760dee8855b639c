package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/naukovi-znahidky/client/config"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/db"
	"github.com/naukovi-znahidky/client/internal/handlers"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	redis      *redis.Client
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		rdb    *redis.Client
		binder handlers.TokenBinder
		err    error
	)
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb, err = db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		binder, err = handlers.NewRedisTokens(rdb, cfg.Session.Name, cfg.Session.Key, cfg.Session.Secure, cfg.Session.MaxAge)
	case config.SessionBackendCookie, "":
		binder, err = handlers.NewCookieTokens(cfg.Session.Name, cfg.Session.Key, cfg.Session.Secure, cfg.Session.MaxAge)
	default:
		err = fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	render, err := handlers.NewRenderer(logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	api := apiclient.New(cfg.API.BaseURL, tokens.NewMemoryStore(tokens.Pair{}),
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logger.Named("api")),
	)
	h := handlers.NewHandler(api, binder, render, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.Router(router, h)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		redis:      rdb,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("web client listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return err
}
