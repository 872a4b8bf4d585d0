package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/api/mock"
	"github.com/smarttransit/busticket-web/internal/api/remote"
	"github.com/smarttransit/busticket-web/internal/config"
	"github.com/smarttransit/busticket-web/internal/database"
	"github.com/smarttransit/busticket-web/internal/handlers"
	"github.com/smarttransit/busticket-web/internal/middleware"
	"github.com/smarttransit/busticket-web/internal/services"
	"github.com/smarttransit/busticket-web/internal/session"
	"github.com/smarttransit/busticket-web/internal/utils"
	"github.com/smarttransit/busticket-web/internal/views"
	"github.com/smarttransit/busticket-web/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// sessionCleanupInterval is how often expired sessions are purged
const sessionCleanupInterval = 15 * time.Minute

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting BusTicket web frontend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		logger.WithError(err).Warnf("Unknown timezone %q, using local time", cfg.Server.Timezone)
		loc = time.Local
	}

	// Data-access backend
	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize backend: %v", err)
	}
	logger.WithField("mode", cfg.Backend.Mode).Info("Backend initialized")

	// Session store
	store, closeStore, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize session store: %v", err)
	}
	defer closeStore()

	sessions := session.NewManager(store, backend, session.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Security.SecureCookies,
		Logger:     logger,
	})

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go runSessionCleanup(cleanupCtx, sessions)

	// Views
	renderer, err := views.NewRenderer(loc)
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	// Initialize services and handlers
	catalog := services.NewCatalogService(backend, logger, loc)
	tickets := services.NewTicketService(views.AppName, loc)

	pages := handlers.Set{
		Auth:    handlers.NewAuthHandler(sessions, validator.NewPhoneValidator(), logger),
		Catalog: handlers.NewCatalogHandler(catalog, logger),
		Booking: handlers.NewBookingHandler(backend, tickets, logger),
		Wizard:  handlers.NewWizardHandler(backend, logger),
		Admin:   handlers.NewAdminHandler(backend, loc, logger),
	}

	// Initialize Gin router
	router := gin.New()
	router.HTMLRender = renderer

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.StaticFS("/static", views.StaticFS())
	router.GET("/health", healthCheckHandler(cfg))

	handlers.RegisterRoutes(router, pages, sessions, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopCleanup()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// newBackend builds the data-access implementation selected by BACKEND_MODE
func newBackend(cfg *config.Config, logger *logrus.Logger) (api.Backend, error) {
	if cfg.Backend.Mode == config.BackendRemote {
		return remote.NewClient(remote.Options{
			BaseURL: cfg.Backend.BaseURL,
			Timeout: cfg.Backend.Timeout,
			Logger:  logger,
		})
	}

	secret := cfg.JWT.Secret
	if secret == "" {
		generated, err := utils.GenerateJWTSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
		secret = generated
	}

	return mock.New(mock.Options{
		Latency:     cfg.Backend.MockLatency,
		JWTSecret:   secret,
		TokenExpiry: cfg.JWT.AccessTokenExpiry,
		BcryptCost:  cfg.Security.BcryptCost,
		SeedAdmin:   cfg.Backend.MockSeedAdmin,
		AdminEmail:  cfg.Backend.MockAdminEmail,
		AdminPass:   cfg.Backend.MockAdminPass,
		Logger:      logger,
	})
}

// newSessionStore opens the store selected by SESSION_STORE. The returned
// func releases it.
func newSessionStore(cfg *config.Config, logger *logrus.Logger) (session.Store, func(), error) {
	if cfg.Session.Store == config.SessionStoreMemory {
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}

	logger.WithField("driver", cfg.Session.Store).Info("Connecting to session database...")
	db, err := database.NewConnection(cfg.Session.Store, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	repo := database.NewSessionRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Session database connection established")

	return repo, func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close session database")
		}
	}, nil
}

func runSessionCleanup(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Cleanup(ctx)
		}
	}
}

// allowsAnyOrigin reports a wildcard origin, which cannot be combined with
// credentials
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"backend":       cfg.Backend.Mode,
			"session_store": cfg.Session.Store,
			"version":       version,
			"timestamp":     time.Now().Unix(),
		})
	}
}
