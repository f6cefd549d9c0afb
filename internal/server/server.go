package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/todoweb/server/config"
	"github.com/todoweb/server/internal/auth"
	"github.com/todoweb/server/internal/db"
	"github.com/todoweb/server/internal/handlers"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/mq"
	"github.com/todoweb/server/internal/services"
	"github.com/todoweb/server/internal/storage"
	"github.com/todoweb/server/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	redis      *redis.Client
	log        logging.Logger
}

// New opens every backing service named by cfg and mounts the routes.
// Anything opened before a failure is closed again.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (_ *Server, err error) {
	s := &Server{log: log}
	defer func() {
		if err != nil {
			s.closeBackends()
		}
	}()

	s.db, err = db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		return nil, fmt.Errorf("init mq backend: %w", err)
	}
	s.events = mq.New(backend, cfg.MQ.Channel)

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if objects != nil {
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
		}
	}

	sessionStore, err := s.openSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(s.db)
	todoRepo := store.NewTodoRepository(s.db)

	userService := services.NewUserService(userRepo, cfg.Auth.HashCost, s.events, log)
	todoService := services.NewTodoService(todoRepo, s.events, log)
	exportService := services.NewExportService(todoRepo, objects)

	sessions, err := auth.NewManager(userService, sessionStore, auth.Options{
		Secret:       cfg.Session.Secret,
		TTL:          cfg.Session.TTL,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		HashCost:     cfg.Auth.HashCost,
	}, log)
	if err != nil {
		return nil, err
	}

	views, err := handlers.NewViews()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, handlers.NewAuthHandler(userService, sessions, views, log))
	handlers.TodoRouter(router, handlers.NewTodoHandler(todoService, views, log), sessions.RequireAuthenticated)
	handlers.ExportRouter(router, handlers.NewExportHandler(exportService, log), sessions.RequireAuthenticated)
	s.router = router

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) openSessionStore(ctx context.Context, cfg config.Config) (auth.SessionStore, error) {
	if cfg.Session.Store != config.SessionStoreRedis {
		return auth.NewMemoryStore(), nil
	}

	s.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	return auth.NewRedisStore(s.redis), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

func (s *Server) closeBackends() {
	ctx := context.Background()
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.log.Warn(ctx, "close mq failed", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "close redis failed", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn(ctx, "close db failed", "error", err)
		}
	}
}
