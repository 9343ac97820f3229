// Package http implements the JSON API for Codevia on top of gin.
// It exposes registration and login, the skill tree, quizzes, the daily
// challenge and achievements, plus health and metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/infrastructure/metrics"
	"github.com/codevia/codevia/internal/infrastructure/security"
	"github.com/codevia/codevia/internal/interface/http/handlers"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// Mode - gin mode: debug, release or test.
	Mode string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS. "*" allows any.
	AllowedOrigins []string

	// EnableMetrics - serve /metrics when Dependencies.Metrics is set.
	EnableMetrics bool

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// Version is reported by / and /health.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		Mode:               gin.ReleaseMode,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerMinute: 120,
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	RegisterUser         *command.RegisterUserHandler
	Login                *command.LoginHandler
	UnlockSkill          *command.UnlockSkillHandler
	SubmitQuiz           *command.SubmitQuizHandler
	ChangePassword       *command.ChangePasswordHandler
	DeleteAccount        *command.DeleteAccountHandler
	RequestPasswordReset *command.RequestPasswordResetHandler

	// Query Handlers (CQRS Read Side)
	ListSkills       *query.ListSkillsHandler
	QuizCatalog      *query.QuizCatalogHandler
	DailyChallenge   *query.GetDailyChallengeHandler
	ListAchievements *query.ListAchievementsHandler
	Account          *query.GetAccountHandler
	DirectoryStats   *query.DirectoryStatsHandler

	Tokens TokenParser

	// Metrics, when set, records request metrics and backs /metrics.
	Metrics *metrics.Metrics

	HealthChecker handlers.HealthChecker

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(logger.Component("http")),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.engine,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	// Recovery first so it also covers the other middleware.
	s.engine.Use(s.recoveryMiddleware())
	s.engine.Use(requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(corsMiddleware(s.config.AllowedOrigins))

	if s.config.RateLimitPerMinute > 0 {
		s.engine.Use(newRateLimiter(s.config.RateLimitPerMinute, time.Minute).middleware())
	}

	if s.deps.Metrics != nil {
		s.engine.Use(s.deps.Metrics.Middleware())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.engine

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/healthz", s.handleHealth) // Kubernetes alias
	r.GET("/ready", s.handleReady)
	r.GET("/live", s.handleLive)

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		r.GET("/metrics", s.deps.Metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Public Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", s.handleRegister)
	v1.POST("/auth/login", s.handleLogin)
	v1.POST("/auth/password-reset", s.handlePasswordReset)
	v1.GET("/quizzes", s.handleListQuizzes)
	v1.GET("/settings", s.handleSettings)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Authenticated Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	authed := v1.Group("")
	authed.Use(s.authMiddleware())
	authed.GET("/me", s.handleMe)
	authed.GET("/skills", s.handleListSkills)
	authed.POST("/skills/unlock", s.handleUnlockSkill)
	authed.GET("/quizzes/:skill", s.handleGetQuiz)
	authed.POST("/quizzes/:skill/submit", s.handleSubmitQuiz)
	authed.GET("/challenge", s.handleDailyChallenge)
	authed.GET("/achievements", s.handleListAchievements)
	authed.POST("/account/password", s.handleChangePassword)
	authed.DELETE("/account", s.handleDeleteAccount)

	r.NoRoute(func(c *gin.Context) {
		writeJSONError(c, http.StatusNotFound, "not_found", "Route not found")
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
