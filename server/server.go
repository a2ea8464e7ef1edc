package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"users-service/cache"
	"users-service/confs"
	"users-service/db"
	"users-service/handlers"
	httpHandler "users-service/handlers/http"
	"users-service/middleware"
	"users-service/observability"
	"users-service/repositories"
	"users-service/services"
	"users-service/usecases"
	"users-service/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Dependencies are the external resources handed to the application factory.
type Dependencies struct {
	Database db.Database
	// Cache defaults to an in-memory cache when nil.
	Cache cache.UserCache
	// Sinks receive user-created events in addition to the websocket feed.
	Sinks []services.Sink
}

type Server struct {
	app     *gin.Engine
	cfg     *confs.Config
	db      db.Database
	users   *usecases.UserUseCase
	feed    *ws.Manager
	metrics *observability.Metrics
}

// NewServer is the application factory: it wires configuration, the data
// layer and the handlers, and registers every route.
func NewServer(cfg *confs.Config, deps Dependencies) (*Server, error) {
	if deps.Database == nil {
		return nil, errors.New("server: database is required")
	}
	gin.SetMode(cfg.GinMode())

	s := &Server{
		app:     gin.New(),
		cfg:     cfg,
		db:      deps.Database,
		feed:    ws.NewManager(),
		metrics: observability.NewMetrics(),
	}

	tmpl, err := httpHandler.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	s.app.SetHTMLTemplate(tmpl)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}

	s.app.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		cors.New(corsConfig),
		middleware.PrometheusMiddleware(s.metrics),
	)

	sinks := append([]services.Sink{s.feed}, deps.Sinks...)
	notifier := services.NewUserNotifier(sinks...)

	userRepo := repositories.NewUserPgRepository(s.db)
	s.users = usecases.NewUserUseCase(userRepo, deps.Cache, notifier, s.metrics)

	s.registerRoutes()
	logrus.WithField("sinks", notifier.Sinks()).Debug("application initialised")
	return s, nil
}

func (s *Server) registerRoutes() {
	userHandler := httpHandler.NewUserHandler(s.users)
	indexHandler := httpHandler.NewIndexHandler(s.users)
	healthHandler := handlers.NewHealthHandler(s.db, s.users)
	wsHandler := handlers.NewWSHandler(s.feed)

	s.app.GET("/health", healthHandler.Health)
	s.app.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.app.GET("/", indexHandler.Index)
	s.app.POST("/", indexHandler.AddUser)

	users := s.app.Group("/users")
	{
		users.GET("/ping", userHandler.Ping)
		users.GET("", userHandler.GetAllUsers)
		users.POST("", userHandler.CreateUser)
		users.GET("/:id", userHandler.GetUser)
	}

	feed := s.app.Group("/ws/users")
	{
		feed.GET("", wsHandler.HandleUserFeed)
		feed.GET("/subscribers", wsHandler.Subscribers)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

func (s *Server) Users() *usecases.UserUseCase { return s.users }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("starting HTTP server")
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

	logrus.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
