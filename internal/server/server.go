// Package server contains the HTTP handlers for the confession, reaction,
// comment, topic and account endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "unheard/docs" // swagger docs
	"unheard/internal/cache"
	"unheard/internal/config"
	"unheard/internal/database"
	"unheard/internal/featureflags"
	"unheard/internal/middleware"
	"unheard/internal/models"
	"unheard/internal/repository"
	"unheard/internal/service"
	"unheard/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	catalog        *models.Catalog
	featureFlags   *featureflags.Manager
	effects        *service.EffectQueue

	sessionService    *service.SessionService
	confessionService *service.ConfessionService
	commentService    *service.CommentService
	reactionService   *service.ReactionService
	topicService      *service.TopicService
}

// NewServer connects to the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: caching and rate limits then fail open.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	confessionRepo := repository.NewConfessionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	catalog := models.DefaultCatalog()
	store := cache.NewStore(redisClient)
	effects := service.NewEffectQueue(cfg.EffectWorkers, cfg.EffectQueueSize)
	avatars := validation.NewAvatarSeeder(cfg.JWTSecret)

	aggregator := service.NewAggregator(confessionRepo, commentRepo, reactionRepo, effects, flags,
		service.AggregatorOptions{
			HighlightThreshold: cfg.HighlightThreshold,
			Concurrency:        cfg.EnrichConcurrency,
		})
	reactions := service.NewReactionService(reactionRepo, confessionRepo, flags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("unheard-api"),
		catalog:        catalog,
		featureFlags:   flags,
		effects:        effects,

		sessionService: service.NewSessionService(sessionRepo, store, cfg.JWTSecret,
			time.Duration(cfg.SessionTTLHours)*time.Hour),
		confessionService: service.NewConfessionService(confessionRepo, aggregator, reactions, effects, store, catalog, avatars),
		commentService:    service.NewCommentService(commentRepo, confessionRepo, effects, avatars),
		reactionService:   reactions,
		topicService:      service.NewTopicService(confessionRepo, aggregator, store, catalog),
	}
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates the request id into the user context for logging
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  models.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Unheard Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/catalog", s.GetCatalog)

	account := api.Group("/account")
	account.Post("/sessions/anonymous", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "create_session"), s.CreateAnonymousSession)
	account.Post("/sessions/:id/recover", middleware.RateLimit(
		s.redis, 20, 10*time.Minute, "recover_session"), s.RecoverSession)

	withSession := middleware.SessionRequired(s.sessionService)
	account.Get("/", withSession, s.GetAccount)
	account.Get("/features", withSession, s.GetFeatureFlags)
	account.Delete("/sessions/current", withSession, s.RevokeSession)

	confessions := api.Group("/confessions", withSession)
	confessions.Get("/", s.ListConfessions)
	confessions.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_confession"), s.CreateConfession)
	// Specific /:id/:resource routes before the generic /:id routes
	confessions.Get("/:id/reactions", s.GetReactions)
	confessions.Post("/:id/reactions", middleware.RateLimit(
		s.redis, 60, time.Minute, "toggle_reaction"), s.ToggleReaction)
	confessions.Get("/:id/comments", s.ListComments)
	confessions.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	confessions.Delete("/:id/comments/:commentId", s.DeleteComment)
	confessions.Get("/:id", s.GetConfession)
	confessions.Patch("/:id", s.UpdateConfession)
	confessions.Delete("/:id", s.DeleteConfession)

	topics := api.Group("/topics", withSession)
	topics.Get("/", s.GetTopicStats)
	topics.Get("/catalog", s.GetTopicCatalog)
	api.Get("/stats", withSession, s.GetCommunityStats)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App returns a Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Unheard API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape a handler, such as unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	log.Printf("Error: %v", err)
	return models.RespondWithAppError(c, err)
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server, drains pending secondary effects and
// closes the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.effects.Flush(ctx); err != nil {
		log.Printf("secondary effects not drained: %v", err)
	}
	s.effects.Close()

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
