// Package server contains the HTTP handlers and the application context they share.
package server

import (
	"context"
	"fmt"
	"time"

	_ "folio/docs" // swagger docs
	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/credentials"
	"folio/internal/database"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/observability"
	"folio/internal/repository"
	"folio/internal/service"
	"folio/internal/session"
	"folio/internal/site"
	"folio/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	serviceName    = "folio"
	requestTimeout = 5 * time.Second
)

// Server is the application context: every handler reads its dependencies
// from here and nothing else is shared between requests.
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	tracingShutdown func(context.Context) error
	site            site.Metadata
	userRepo        repository.UserRepository
	photoRepo       repository.PhotoRepository
	accounts        *service.AccountService
	photos          *service.PhotoService
	sessions        *session.Issuer
	limiter         *middleware.RateLimiter
}

// NewServer connects to the database and Redis and builds the server.
// Redis is optional: without it logout cannot revoke tokens and rate
// limiting is skipped.
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Initialize Redis
	redisClient, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, continuing without it", "error", err.Error())
		redisClient = nil
	}

	srv, err := NewServerWithDeps(cfg, db, redisClient)
	if err != nil {
		_ = database.Close(db)
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	// Tracing failures are not fatal; spans fall back to the no-op tracer
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       !cfg.IsProduction(),
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		middleware.Logger.Warn("tracing disabled", "error", err.Error())
	} else {
		srv.tracingShutdown = shutdown
	}

	return srv, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	// Site metadata is read once and shared read-only
	meta, err := site.Load(cfg.SiteMetadataPath)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	ttl := time.Duration(cfg.SessionTTLMillis) * time.Millisecond

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		site:           meta,
		userRepo:       userRepo,
		photoRepo:      photoRepo,
		accounts: service.NewAccountService(userRepo,
			credentials.NewHasher(cfg.BcryptCost), cfg.DuplicateUsernamePolicy),
		photos:   service.NewPhotoService(photoRepo, userRepo, cfg),
		sessions: session.NewIssuer(cfg.SessionSecret, ttl, cfg.IsProduction(), redisClient),
		limiter:  middleware.NewRateLimiter(redisClient, redisClient != nil && rateLimitEnabled(cfg)),
	}, nil
}

func rateLimitEnabled(cfg *config.Config) bool {
	return cfg.Env != "development" && cfg.Env != "test"
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	// Leave one MB above the upload limit for multipart framing
	bodyLimit := 4 * 1024 * 1024
	if s.config != nil && s.config.ImageMaxUploadSizeMB > 0 {
		bodyLimit = (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:     "Folio",
		BodyLimit:   bodyLimit,
		Views:       views.New(),
		ViewsLayout: views.LayoutName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Recover first so panics anywhere below become 500s
	app.Use(recover.New())
	app.Use(requestid.New())
	// Tracing sets traceID, which ContextMiddleware copies for the logger
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Avatars and covers are embedded by the front-end bundle.
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS for the front-end bundle
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:9000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Coarse in-memory limit per IP; sensitive routes add Redis limits below
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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics and API docs
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded media and the front-end bundle
	if s.config.MediaDir != "" {
		app.Static("/media", s.config.MediaDir)
	}
	if s.config.BundleDir != "" {
		app.Static(s.site.BundleURL, s.config.BundleDir)
	}

	app.Get("/", s.IndexPage)

	// Account pages and flows
	user := app.Group("/user")
	user.Get("/", s.UserPage)
	user.Get("/register", s.RegisterPage)
	user.Post("/register/new",
		s.limiter.Limit("register", 3, 10*time.Minute, middleware.FailOpen), s.Register)
	user.Post("/login",
		s.limiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	user.Post("/login/check-user",
		s.limiter.Limit("check_user", 30, time.Minute, middleware.FailOpen), s.CheckUser)
	user.Post("/logout", s.Logout)

	// Editor routes (session required)
	editor := app.Group("/editor", s.sessions.Required())
	editor.Post("/cover-photo",
		s.limiter.Limit("cover_photo", 10, 10*time.Minute, middleware.FailOpen), s.UploadCoverPhoto)
	editor.Get("/photos", s.ListPhotos)
}

// Start builds the app and listens on the configured port. It blocks until
// the listener stops.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// LivenessCheck reports that the process is serving
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	// Check database
	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Check Redis
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Sessions still work without Redis; only revocation is lost.
		redisStatus = "unavailable"
	}

	// A missing Redis is tolerated, a failing one is not
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Shutdown stops the listener and releases the database, Redis and tracer.
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop accepting requests before releasing what they use
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if s.tracingShutdown != nil {
		if err := s.tracingShutdown(ctx); err != nil {
			middleware.Logger.Error("error flushing traces", "error", err.Error())
		}
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			middleware.Logger.Error("error closing database", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
