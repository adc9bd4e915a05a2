// Package server contains the HTTP and WebSocket handlers for the API.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	_ "odinbook/docs" // swagger docs
	"odinbook/internal/auth"
	"odinbook/internal/config"
	"odinbook/internal/featureflags"
	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/notifications"
	"odinbook/internal/repository"
	"odinbook/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	imageRepo   repository.ImageRepository

	resolver       auth.IdentityResolver
	authenticator  *auth.Authenticator
	graphService   *service.SocialGraphService
	contentService *service.ContentService
	userService    *service.UserService

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	events       *notifications.Publisher
	featureFlags *featureflags.Manager
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; sessions and websocket tickets then become unavailable.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	resolver, err := auth.NewResolver(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("odinbook-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		imageRepo:      repository.NewImageRepository(db),
		resolver:       resolver,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.events = notifications.NewPublisher(s.notifier, s.hub)

	s.authenticator = auth.NewAuthenticator(s.userRepo, auth.NewBcryptHasher(), resolver)
	s.graphService = service.NewSocialGraphService(s.userRepo, s.featureFlags, s.events)
	s.contentService = service.NewContentService(s.userRepo, s.postRepo, s.commentRepo, s.imageRepo,
		s.events, int64(cfg.ImageMaxUploadBytes()))
	s.userService = service.NewUserService(s.userRepo)

	return s, nil
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "Odinbook API",
		BodyLimit: s.config.ImageMaxUploadBytes() + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := models.StatusFor(err)
			if status >= fiber.StatusInternalServerError {
				middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
					slog.String("path", c.Path()), slog.String("error", err.Error()))
			}
			return models.RespondWithStatus(c, status, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagates request and trace IDs into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(compress.New(compress.Config{
		// Image bytes are already compressed.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/images/")
		},
	}))

	perMinute := s.config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.rateLimitsRelaxed()
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

func (s *Server) rateLimitsRelaxed() bool {
	switch s.config.Env {
	case "", "test", "development":
		return true
	}
	return false
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	requireAuth := s.AuthRequired()

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Odinbook Metrics"}))

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", s.Logout)

	api.Get("/protected", requireAuth, s.Protected)

	// Specific /:id/:resource routes before the generic /:id route.
	users := api.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/:id/friends", s.GetUserFriends)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Post("/:id/friend-requests/accept", requireAuth, s.AcceptFriendRequest)
	users.Post("/:id/friend-requests", requireAuth,
		middleware.RateLimit(s.redis, 10, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	users.Delete("/:id/friendship", requireAuth, s.Unfriend)
	users.Get("/:id", s.GetUser)

	me := api.Group("/me", requireAuth)
	me.Put("/", s.EditProfile)
	me.Get("/posts", s.GetMyPosts)
	me.Get("/feed", s.GetFeed)
	me.Get("/friends-posts", s.GetFriendsPosts)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", requireAuth, s.CreatePost)
	posts.Post("/:id/likes", requireAuth, s.LikePost)
	posts.Delete("/:id/likes", requireAuth, s.UnlikePost)
	posts.Get("/:id/likes", s.GetPostLikes)
	posts.Post("/:id/comments", requireAuth, s.CreateComment)
	posts.Get("/:id/comments", s.GetComments)
	posts.Get("/:id", s.GetPost)

	api.Get("/images/:id", s.GetImage)

	api.Post("/ws/ticket", requireAuth, s.IssueWSTicket)
	api.Get("/ws", requireAuth, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis reachability.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	// Redis is optional in token mode.
	redisRequired := s.resolver.Mode() == config.AuthModeSession
	if dbStatus != "healthy" || redisStatus == "unhealthy" || (redisRequired && redisStatus != "healthy") {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StartRealtime subscribes the hub to Redis notifications. It is a no-op
// without Redis.
func (s *Server) StartRealtime() error {
	return s.hub.StartWiring(s.shutdownCtx, s.notifier)
}

// Start serves HTTP on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	if err := s.StartRealtime(); err != nil {
		middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
