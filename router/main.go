package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/config"
	"github.com/kujua-learning/kujua-api/database"
	"github.com/kujua-learning/kujua-api/handlers"
	admin_handlers "github.com/kujua-learning/kujua-api/handlers/admin"
	auth_handlers "github.com/kujua-learning/kujua-api/handlers/auth"
	progress_handlers "github.com/kujua-learning/kujua-api/handlers/progress"
	reflection_handlers "github.com/kujua-learning/kujua-api/handlers/reflection"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/auth"
	"github.com/kujua-learning/kujua-api/utils/cache"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/validation"
)

// Dependencies bundles the shared collaborators the router wires into
// handlers. AdminService is exposed so the cron manager can reuse it.
type Dependencies struct {
	AdminService *services.AdminService
	RedisCache   *cache.RedisCache
}

// SetupRoutes builds all services and handlers and registers every route
func SetupRoutes(app *fiber.App, store database.Storage, cfg *config.Config, mailer services.WelcomeMailer) *Dependencies {
	db := store.GetDB()

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: cfg.JWT.Secret,
		Expiry: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		Issuer: cfg.JWT.Issuer,
	})

	// Redis backs brute force protection and the dashboard stats cache.
	// The app degrades gracefully without it.
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: failed to connect to Redis: %v. Brute force protection and stats caching disabled.", err)
		redisCache = nil
	}

	var bruteForce *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForce = middleware.NewBruteForceProtection(redisCache)
	}

	validator := validation.NewValidator()
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Services
	authService := services.NewAuthService(db, jwtManager, mailer)
	progressService := services.NewProgressService(db)
	reflectionService := services.NewReflectionService(db)
	adminService := services.NewAdminService(db, redisCache, reflectionService)

	// Handlers
	healthHandler := handlers.NewHealthHandler(store)
	authHandler := auth_handlers.NewAuthHandler(authService, validator, bruteForce, cfg)
	progressHandler := progress_handlers.NewProgressHandler(progressService, validator)
	reflectionHandler := reflection_handlers.NewReflectionHandler(reflectionService, validator)
	adminHandler := admin_handlers.NewAdminHandler(adminService)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check (public)
	app.Get("/ping", healthHandler.Ping)

	api := app.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/register/admin", authMiddleware.Optional(), authHandler.RegisterAdmin)
	if bruteForce != nil {
		authGroup.Post("/signin", bruteForce.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/signin", authHandler.Login)
	}
	authGroup.Get("/google", authHandler.GoogleLogin)
	authGroup.Get("/google/callback", authHandler.GoogleCallback)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.Profile)

	// Progress routes
	progressGroup := api.Group("/progress", authMiddleware.Required())
	progressGroup.Get("/", progressHandler.Get)
	progressGroup.Post("/", progressHandler.Start)
	progressGroup.Put("/module/:moduleId", progressHandler.UpdateModule)
	progressGroup.Put("/module/:moduleId/part/:partId", progressHandler.UpdatePart)
	progressGroup.Post("/module/:moduleId/assessment", progressHandler.SubmitAssessment)
	progressGroup.Get("/certificate", progressHandler.GetCertificate)

	// Reflection routes
	reflectionGroup := api.Group("/reflections", authMiddleware.Required())
	reflectionGroup.Post("/", reflectionHandler.Submit)
	reflectionGroup.Get("/my-reflections", reflectionHandler.MyReflections)
	reflectionGroup.Get("/module/:moduleId/segment/:segmentId", reflectionHandler.GetBySegment)

	// Admin routes. The admin service re-verifies the role on every call.
	adminGroup := api.Group("/admin", authMiddleware.RequireAdmin())
	adminGroup.Get("/dashboard", adminHandler.Dashboard)
	adminGroup.Get("/learners/recent", adminHandler.RecentLearners)
	adminGroup.Get("/modules/top", adminHandler.TopModules)
	adminGroup.Get("/modules/statistics", adminHandler.ModuleStatistics)
	adminGroup.Get("/users", adminHandler.Users)
	adminGroup.Get("/analytics/users", adminHandler.UserAnalytics)
	adminGroup.Get("/reflections", adminHandler.Reflections)
	adminGroup.Get("/reflections/stats", adminHandler.ReflectionStats)
	adminGroup.Get("/reflections/export", adminHandler.ExportReflections)
	adminGroup.Get("/reflections/module/:moduleId", adminHandler.ModuleReflections)
	adminGroup.Get("/reflections/user/:userId", adminHandler.UserReflections)

	return &Dependencies{
		AdminService: adminService,
		RedisCache:   redisCache,
	}
}
