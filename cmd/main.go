package main

import (
	"tenant-service/internal/handler"
	"tenant-service/internal/middleware"
	"tenant-service/internal/tenant"
	"tenant-service/pkg/config"
	"tenant-service/pkg/database"
	"tenant-service/pkg/jwtutil"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting tenant service...", zap.String("environment", cfg.Server.Env))

	// Initialize the registry database (includes migrations)
	if err := database.InitDB(cfg, log); err != nil {
		log.Fatal("Failed to initialize registry database", zap.Error(err))
	}
	log.Info("Registry database connection established and migrations completed")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Wire the tenant subsystem and handlers
	svc := tenant.NewService(database.GetDB(), cfg.TenantDB, log)
	handler.InitHandlers(svc)

	jwtUtil := jwtutil.New(cfg.JWT.SigningKey, cfg.JWT.ExpirationTime)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover()) // Add recovery middleware
	e.Use(echomiddleware.CORS())    // Add CORS middleware
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup flow: creates the company, provisions the tenant database and
	// seeds it, then creates the admin user. Unauthenticated: it is how a
	// brand-new tenant comes into existence.
	e.POST("/setup", handler.Setup)

	// Routes that act on behalf of an authenticated central user
	api := e.Group("/api")
	api.Use(middleware.IdentityMiddleware(jwtUtil))

	api.GET("/me/modules", handler.GetMyModules)
	api.GET("/me/permissions", handler.CheckMyPermission)
	api.POST("/users", handler.CreateUser)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
