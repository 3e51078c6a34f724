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

	_ "letterflow/docs" // This is for Swagger
	"letterflow/internal/auth"
	"letterflow/internal/config"
	"letterflow/internal/database"
	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/handlers"
	"letterflow/internal/lifecycle"
	"letterflow/internal/logger"
	"letterflow/internal/middleware"
	"letterflow/internal/repository"
	"letterflow/internal/service"
	"letterflow/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title LetterFlow API
// @version 1.0
// @description Backend API for hierarchical letter routing, approval and task delegation

// @contact.name API Support
// @contact.email support@letterflow.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Load the department hierarchy
	tree, err := department.Load(cfg.Department.TreePath)
	if err != nil {
		slog.Error("Failed to load department hierarchy", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	letterRepo := repository.NewLetterRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)

	// Fetch the JWT signing key from Vault (if enabled)
	var signingKey string
	if cfg.Vault.Enabled {
		vaultClient, err := vault.NewClient(&cfg.Vault)
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		if err := vaultClient.Health(); err != nil {
			slog.Error("Vault health check failed", "error", err)
			os.Exit(1)
		}
		signingKey, err = vaultClient.FetchSigningKey(context.Background())
		if err != nil {
			slog.Error("Failed to fetch signing key from Vault", "error", err)
			os.Exit(1)
		}
		if signingKey == "" {
			slog.Warn("Vault holds no signing key - falling back to local key files", "key_path", cfg.Vault.KeyPath)
		} else {
			slog.Info("JWT signing key loaded from Vault", "vault_addr", cfg.Vault.Address)
		}
	}

	// Initialize services
	authService, err := auth.NewService(&cfg.JWT, signingKey)
	if err != nil {
		slog.Error("Failed to initialize auth service", "error", err)
		os.Exit(1)
	}
	dir := directory.New(userRepo)
	letterService := lifecycle.NewService(letterRepo, dir, tree)
	authSvc := service.NewAuthService(userRepo, authService, cfg.JWT.Expiration)
	userService := service.NewUserService(userRepo, tree, authService)

	// Seed the first admin account on an empty database
	if err := authSvc.EnsureBootstrapAdmin(context.Background(), cfg.Bootstrap); err != nil {
		slog.Error("Failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	rbacMw := middleware.NewRBACMiddleware()
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(auditRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, userService, auditMw)
	userHandler := handlers.NewUserHandler(userService, auditMw)
	departmentHandler := handlers.NewDepartmentHandler(tree)
	routingHandler := handlers.NewRoutingHandler(dir)
	letterHandler := handlers.NewLetterHandler(letterService, letterRepo, auditMw)
	dashboardHandler := handlers.NewDashboardHandler(letterRepo, dir)
	auditHandler := handlers.NewAuditHandler(auditRepo)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)

	// Authenticated routes
	mux.Handle("GET /api/v1/auth/me", authMw.Authenticate(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/v1/auth/change-password", authMw.Authenticate(http.HandlerFunc(authHandler.ChangePassword)))

	// User directory
	mux.Handle("GET /api/v1/users", authMw.Authenticate(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/v1/users/{id}", authMw.Authenticate(http.HandlerFunc(userHandler.Get)))
	mux.Handle("PATCH /api/v1/users/profile", authMw.Authenticate(http.HandlerFunc(userHandler.UpdateProfile)))

	// Department hierarchy
	mux.Handle("GET /api/v1/departments", authMw.Authenticate(http.HandlerFunc(departmentHandler.Tree)))
	mux.Handle("GET /api/v1/departments/children", authMw.Authenticate(http.HandlerFunc(departmentHandler.Children)))
	mux.Handle("GET /api/v1/departments/validate", authMw.Authenticate(http.HandlerFunc(departmentHandler.Validate)))

	// Routing candidates
	mux.Handle("GET /api/v1/routing/approvers", authMw.Authenticate(http.HandlerFunc(routingHandler.Approvers)))
	mux.Handle("GET /api/v1/routing/assignees", authMw.Authenticate(http.HandlerFunc(routingHandler.Assignees)))
	mux.Handle("POST /api/v1/routing/cc/expand", authMw.Authenticate(http.HandlerFunc(routingHandler.ExpandCC)))

	// Letters
	mux.Handle("POST /api/v1/letters", authMw.Authenticate(http.HandlerFunc(letterHandler.Create)))
	mux.Handle("GET /api/v1/letters", authMw.Authenticate(http.HandlerFunc(letterHandler.List)))
	mux.Handle("GET /api/v1/letters/{id}", authMw.Authenticate(http.HandlerFunc(letterHandler.Get)))
	mux.Handle("POST /api/v1/letters/{id}/approve", authMw.Authenticate(http.HandlerFunc(letterHandler.Approve)))
	mux.Handle("POST /api/v1/letters/{id}/reject", authMw.Authenticate(http.HandlerFunc(letterHandler.Reject)))
	mux.Handle("POST /api/v1/letters/{id}/assign", authMw.Authenticate(http.HandlerFunc(letterHandler.Assign)))
	mux.Handle("POST /api/v1/letters/{id}/progress", authMw.Authenticate(http.HandlerFunc(letterHandler.Progress)))
	mux.Handle("GET /api/v1/letters/{id}/progress", authMw.Authenticate(http.HandlerFunc(letterHandler.ProgressLog)))
	mux.Handle("POST /api/v1/letters/{id}/archive", authMw.Authenticate(http.HandlerFunc(letterHandler.Archive)))
	mux.Handle("POST /api/v1/letters/{id}/restore", authMw.Authenticate(http.HandlerFunc(letterHandler.Restore)))
	mux.Handle("POST /api/v1/letters/{id}/star", authMw.Authenticate(http.HandlerFunc(letterHandler.Star)))
	mux.Handle("POST /api/v1/letters/{id}/read", authMw.Authenticate(http.HandlerFunc(letterHandler.MarkRead)))

	// Dashboard
	mux.Handle("GET /api/v1/dashboard/stats", authMw.Authenticate(http.HandlerFunc(dashboardHandler.Stats)))
	mux.Handle("GET /api/v1/dashboard/overall",
		authMw.Authenticate(
			rbacMw.RequireTopLevel(
				http.HandlerFunc(dashboardHandler.Overall),
			),
		),
	)

	// Admin routes
	mux.Handle("POST /api/v1/admin/users",
		authMw.Authenticate(
			rbacMw.RequireAdmin(
				http.HandlerFunc(userHandler.Create),
			),
		),
	)
	mux.Handle("PATCH /api/v1/admin/users/{id}",
		authMw.Authenticate(
			rbacMw.RequireAdmin(
				http.HandlerFunc(userHandler.Update),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/{id}/deactivate",
		authMw.Authenticate(
			rbacMw.RequireAdmin(
				auditMw.Log("user.deactivate", "users")(
					http.HandlerFunc(userHandler.Deactivate),
				),
			),
		),
	)
	mux.Handle("POST /api/v1/admin/users/{id}/reactivate",
		authMw.Authenticate(
			rbacMw.RequireAdmin(
				auditMw.Log("user.reactivate", "users")(
					http.HandlerFunc(userHandler.Reactivate),
				),
			),
		),
	)
	mux.Handle("GET /api/v1/admin/audit",
		authMw.Authenticate(
			rbacMw.RequireAdmin(
				http.HandlerFunc(auditHandler.List),
			),
		),
	)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
