package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/skillbridge/apiserver/config"
	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/db"
	"github.com/skillbridge/apiserver/internal/handlers"
	"github.com/skillbridge/apiserver/internal/mq"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/internal/storage"
	"github.com/skillbridge/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultPort           = 5001
	defaultRequestTimeout = 60 * time.Second
)

// Services is everything the router needs to serve requests.
type Services struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Courses     *services.CourseService
	Enrollments *services.EnrollmentService
	// Ping backs the health check. Nil means always healthy.
	Ping handlers.Pinger
}

// Server wraps the HTTP server, router, and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	mongo      *mongo.Client
	events     *mq.Topic
	courses    *services.CourseService
	logger     *zap.Logger
}

// New connects to MongoDB and the optional broker and object storage, then
// builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	client, database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	userRepo := store.NewUserRepository(database)
	courseRepo := store.NewCourseRepository(database)
	enrollmentRepo := store.NewEnrollmentRepository(database)

	policy := authz.Policy{Strict: cfg.StrictAuthz}
	courseService := services.NewCourseService(courseRepo, enrollmentRepo, policy, logger)

	var events *mq.Topic
	backend, err := mq.Open(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("course events disabled")
	case err != nil:
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("open mq: %w", err)
	default:
		events = mq.NewTopic(backend, cfg.MQ.EventsChannel)
		courseService.WithEvents(events)
		logger.Info("publishing course events", zap.String("backend", cfg.MQ.Backend), zap.String("channel", events.Channel()))
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logger.Info("lesson uploads disabled")
	case err != nil:
		if events != nil {
			_ = events.Close()
		}
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("open storage: %w", err)
	default:
		courseService.WithStorage(objects)
		logger.Info("lesson uploads enabled", zap.String("backend", cfg.Storage.Backend), zap.String("bucket", objects.Bucket()))
	}

	router := NewRouter(cfg, Services{
		Auth:        services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger),
		Users:       services.NewUserService(userRepo, policy, logger),
		Courses:     courseService,
		Enrollments: services.NewEnrollmentService(enrollmentRepo, courseRepo, logger),
		Ping:        func(ctx context.Context) error { return db.Ping(ctx, client) },
	}, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		mongo:      client,
		events:     events,
		courses:    courseService,
		logger:     logger,
	}, nil
}

// NewRouter builds the chi router with middleware and all API routes.
func NewRouter(cfg config.Config, svc Services, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.LoggerMiddleware(logger),
		handlers.RecoveryMiddleware(logger),
		handlers.CORSMiddleware(cfg.CORSOrigins),
	)
	if cfg.RateLimitPerMinute > 0 {
		router.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
	router.Use(middleware.Timeout(requestTimeout))

	authMiddleware := handlers.RequireAuth(svc.Auth, logger)

	router.Get("/healthz", handlers.Healthz(svc.Ping, logger))
	router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Auth, svc.Users, logger)
		})
		r.Route("/courses", func(r chi.Router) {
			handlers.CourseRouter(r, svc.Courses, authMiddleware, logger)
		})
		r.Route("/enrollments", func(r chi.Router) {
			handlers.EnrollmentRouter(r, svc.Enrollments, authMiddleware, logger)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, svc.Courses, svc.Users, authMiddleware, logger)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and pending events, then closes the
// broker and database clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.courses != nil {
		if flushErr := s.courses.FlushEvents(ctx); flushErr != nil {
			s.logger.Warn("dropped pending course events", zap.Error(flushErr))
		}
	}
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.logger.Warn("failed to close mq backend", zap.Error(closeErr))
		}
	}
	if s.mongo != nil {
		if dcErr := s.mongo.Disconnect(ctx); dcErr != nil {
			s.logger.Warn("failed to disconnect mongo", zap.Error(dcErr))
		}
	}
	return err
}
