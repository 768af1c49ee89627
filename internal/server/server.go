// Package server contains the HTTP handlers for the comments API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"socialcomments/internal/cache"
	"socialcomments/internal/config"
	"socialcomments/internal/database"
	"socialcomments/internal/featureflags"
	"socialcomments/internal/mailer"
	"socialcomments/internal/middleware"
	"socialcomments/internal/models"
	"socialcomments/internal/notifications"
	"socialcomments/internal/repository"
	"socialcomments/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus

	commentRepo      repository.CommentRepository
	replyRepo        repository.ReplyRepository
	pinRepo          repository.PinRepository
	subscriptionRepo repository.SubscriptionRepository
	platformRepo     repository.PlatformRepository
	digestRepo       repository.DigestRepository

	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager

	commentService   *service.CommentService
	digestService    *service.DigestService
	reportService    *service.ReportService
	lifecycleService *service.LifecycleService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)
	prom := middleware.InitMetrics("socialcomments-api")

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   prom,
		commentRepo:      repository.NewCommentRepository(db),
		replyRepo:        repository.NewReplyRepository(db),
		pinRepo:          repository.NewPinRepository(db),
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		platformRepo:     repository.NewPlatformRepository(db),
		digestRepo:       repository.NewDigestRepository(db),
		featureFlags:     featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	caps := service.NewCapabilityChecker(server.platformRepo)
	visibility := service.NewVisibilityService(server.platformRepo, caps)

	server.commentService = service.NewCommentService(service.CommentServiceDeps{
		Comments:        server.commentRepo,
		Replies:         server.replyRepo,
		Pins:            server.pinRepo,
		Subscriptions:   server.subscriptionRepo,
		Platform:        server.platformRepo,
		Capabilities:    caps,
		Visibility:      visibility,
		Publish:         server.publishEvent,
		CommentsPerPage: cfg.CommentsPerPage,
		RepliesLimit:    cfg.RepliesLimit,
	})
	server.digestService = service.NewDigestService(service.DigestServiceDeps{
		Subscriptions: server.subscriptionRepo,
		Digests:       server.digestRepo,
		Platform:      server.platformRepo,
		Visibility:    visibility,
		Mailer:        mailer.NewSMTPMailer(cfg),
		DigestType:    cfg.DigestType,
		UsersPerRun:   cfg.DigestUsersPerRun,
	})
	server.reportService = service.NewReportService(
		server.commentRepo, server.replyRepo, server.pinRepo,
		server.platformRepo, caps, visibility, cfg.ReportPerPage)
	server.lifecycleService = service.NewLifecycleService(
		server.commentRepo, server.pinRepo, server.subscriptionRepo, server.platformRepo)

	return server, nil
}

// publishEvent forwards write-path events to Redis. Publish failures are
// logged, never surfaced; the write already succeeded.
func (s *Server) publishEvent(ctx context.Context, event string, contextID, objectID, userID uint) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.PublishContextEvent(ctx, notifications.Event{
		Name:      event,
		ContextID: contextID,
		ObjectID:  objectID,
		UserID:    userID,
		At:        time.Now().Unix(),
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed",
			"event", event, "context_id", contextID, "error", err)
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate the Request ID; the user id is added
	// by AuthRequired on the protected route groups.
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Social Comments Metrics Dashboard",
	}))

	// Everything below requires a platform-issued bearer token.
	protected := api.Group("", middleware.AuthRequired)

	// Context-scoped comment routes
	contexts := protected.Group("/contexts")
	contexts.Get("/:id/comments", s.GetContextComments)
	contexts.Post("/:id/pin", s.SetPinned)
	contexts.Post("/:id/subscription", s.SetSubscribed)

	// Comment and reply write routes
	comments := protected.Group("/comments")
	comments.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.SaveComment)
	comments.Delete("/:id", s.DeleteComment)

	replies := protected.Group("/replies")
	replies.Post("/", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_reply"), s.SaveReply)
	replies.Delete("/:id", s.DeleteReply)

	// Course-scoped views
	courses := protected.Group("/courses")
	courses.Get("/:id/report", s.GetCourseReport)
	courses.Get("/:id/new", s.GetCourseNewItems)
	courses.Get("/:id/pinned", s.GetCoursePinned)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/digests/run", s.RunDigests)
	admin.Post("/digests/users/:id", s.RunUserDigest)
	admin.Post("/lifecycle/courses/:id/deleted", s.CourseDeleted)
	admin.Post("/lifecycle/users/:id/deleted", s.UserDeleted)
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

	// Redis is optional; the service degrades to cache-less operation.
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
	if dbStatus == "unhealthy" {
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

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.platformRepo.GetUser(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, models.StatusForError(err), err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionError("Admin access required"))
		}

		return c.Next()
	}
}

// StartDigestScheduler runs the digest loop until the context is cancelled.
func (s *Server) StartDigestScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.config.DigestInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.digestService.RunScheduledDigests(ctx); err != nil {
					middleware.Logger.ErrorContext(ctx, "scheduled digest run failed", "error", err)
				}
			}
		}
	}()
}

// Shutdown releases the server's backing resources. The Fiber app belongs to
// the caller and is shut down there before this runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
