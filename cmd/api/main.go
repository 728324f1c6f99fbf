package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DrewHollis/gatehouse/internal/auth"
	"github.com/DrewHollis/gatehouse/internal/background"
	"github.com/DrewHollis/gatehouse/internal/config"
	"github.com/DrewHollis/gatehouse/internal/database"
	"github.com/DrewHollis/gatehouse/internal/handlers"
	middlewareCustom "github.com/DrewHollis/gatehouse/internal/middleware"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/DrewHollis/gatehouse/internal/repositories"
	"github.com/DrewHollis/gatehouse/internal/routes"
	"github.com/DrewHollis/gatehouse/internal/services"
	pkgauth "github.com/DrewHollis/gatehouse/pkg/auth"
	pkghttp "github.com/DrewHollis/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	eventRepo := repositories.NewAuthEventRepository(db)
	counterStore := repositories.NewRedisCounterStore(redisClient)

	// Initialize services
	auditService := services.NewAuditService(eventRepo, logger)

	limiter := services.NewAttemptLimiter(counterStore, services.AttemptLimiterConfig{
		MaxAttempts: cfg.Auth.LoginMaxAttempts,
		DecayWindow: cfg.Auth.LoginAttemptDecay,
	}, logger)

	lockGuard := services.NewAccountLockGuard(counterStore, services.LockGuardConfig{
		Threshold:    cfg.Auth.LockThreshold,
		LockDuration: cfg.Auth.LockDuration,
	}, logger)

	deviceRegistry := services.NewDeviceRegistry(deviceRepo, auditService, logger)

	sessionManager := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTokenExpiry)

	authGate := services.NewAuthGate(userRepo, limiter, lockGuard, deviceRegistry, sessionManager, auditService, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authGate, ipConfig)
	deviceHandler := handlers.NewDeviceHandler(deviceRegistry)
	adminHandler := handlers.NewAdminHandler(deviceRegistry, auditService, userRepo)

	// Initialize retention sweeper
	sweeper := background.NewSweeper(
		deviceRegistry,
		auditService,
		logger,
		cfg.Auth.SweepInterval,
		cfg.Auth.DevicePurgeAge,
		cfg.Auth.EventRetention,
	)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, deviceHandler, adminHandler, sessionManager, deviceRegistry, ipConfig, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start retention sweep task
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	// Hash password
	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	// Create admin user
	admin := &models.User{
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              "admin",
		Status:            models.UserStatusActive,
		SingleDeviceLogin: true,
	}

	_, err = userRepo.Create(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
