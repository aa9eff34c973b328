package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/teamtrack/core/internal/adapters/http"
	"github.com/teamtrack/core/internal/adapters/remote"
	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/infrastructure/config"
	"github.com/teamtrack/core/internal/infrastructure/logger"
	"github.com/teamtrack/core/internal/ports"
)

// Server is the dashboard API: the HTTP surface through which the UI drives
// the task, request and session lifecycles. All persistence behind it is
// the remote store; the server only ever serves the session user's own
// private data.
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	registry *prometheus.Registry

	state          *services.SessionState
	sessionService *services.SessionService
	taskService    *services.TaskService
	requestService *services.RequestService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance wired to the remote store and the local
// session store.
func New(cfg *config.Config, client *remote.Client, sessionStore ports.SessionStore, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Repositories over the remote store
	userRepo := remote.NewUserRepository(client)
	taskRepo := remote.NewTaskRepository(client)
	requestRepo := remote.NewRequestRepository(client)

	// Session state and services
	state := services.NewSessionState()
	sessionService := services.NewSessionService(userRepo, sessionStore, state, appLogger)
	taskService := services.NewTaskService(taskRepo, state, appLogger, cfg.Sync.RetentionMonths, cfg.Sync.PruneDelay)
	requestService := services.NewRequestService(requestRepo, state, appLogger)

	// Handlers
	sessionHandler := httpHandlers.NewSessionHandler(sessionService, state, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(taskService, state, appLogger)
	teamHandler := httpHandlers.NewTeamHandler(state, cfg.Sync.PresenceStale, appLogger)
	requestHandler := httpHandlers.NewRequestHandler(requestService, state, appLogger)

	server := &Server{
		echo:           e,
		config:         cfg,
		logger:         appLogger,
		registry:       prometheus.NewRegistry(),
		state:          state,
		sessionService: sessionService,
		taskService:    taskService,
		requestService: requestService,
	}

	server.setupMiddleware()
	server.setupRoutes(sessionHandler, taskHandler, teamHandler, requestHandler)

	if cfg.Metrics.Enabled {
		server.setupMetrics()
		taskService.RegisterMetrics(server.registry)
	}

	return server, nil
}

// State exposes the session state for the polling jobs.
func (s *Server) State() *services.SessionState { return s.state }

// Sessions exposes the session service for the polling jobs.
func (s *Server) Sessions() *services.SessionService { return s.sessionService }

// Tasks exposes the task service for the polling jobs.
func (s *Server) Tasks() *services.TaskService { return s.taskService }

// Requests exposes the request service for the polling jobs.
func (s *Server) Requests() *services.RequestService { return s.requestService }

// Registry exposes the metrics registry so the scheduler can register its
// own counters.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(sessionHandler *httpHandlers.SessionHandler, taskHandler *httpHandlers.TaskHandler, teamHandler *httpHandlers.TeamHandler, requestHandler *httpHandlers.RequestHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Session routes
	sessionGroup := v1.Group("/session")
	sessionGroup.POST("/login", sessionHandler.Login)
	sessionGroup.POST("/logout", sessionHandler.Logout)
	sessionGroup.GET("", sessionHandler.GetSession)

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", taskHandler.ListForDay)
	taskGroup.POST("", taskHandler.Create)
	taskGroup.POST("/:id/complete", taskHandler.ToggleComplete)
	taskGroup.POST("/:id/share", taskHandler.ToggleShare)
	taskGroup.DELETE("/:id", taskHandler.Delete)

	// Team routes
	teamGroup := v1.Group("/team")
	teamGroup.GET("/shared", teamHandler.SharedForDay)
	teamGroup.GET("/completed", teamHandler.CompletedWeek)
	teamGroup.GET("/presence", teamHandler.Presence)

	// Request routes
	requestGroup := v1.Group("/requests")
	requestGroup.GET("/inbox", requestHandler.Inbox)
	requestGroup.GET("/outbox", requestHandler.Outbox)
	requestGroup.POST("", requestHandler.Send)
	requestGroup.POST("/:id/read", requestHandler.MarkRead)
	requestGroup.POST("/:id/respond", requestHandler.Respond)
	requestGroup.POST("/:id/complete", requestHandler.Complete)
	requestGroup.DELETE("/:id", requestHandler.Delete)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	s.registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		var re *remote.Error

		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": ve.Error()}
		case errors.As(err, &re):
			// Remote store failure surfaces as a gateway error with the
			// service-provided message attached.
			code = http.StatusBadGateway
			msg = map[string]interface{}{
				"message":       "remote store error",
				"remote_status": re.StatusCode,
				"detail":        re.Message,
			}
			logger.Error("Remote store call failed", "status", re.StatusCode, "detail", re.Message, "path", c.Request().URL.Path)
		default:
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}
