package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/attachment"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/auth"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/bid"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/project"
)

// Server holds everything the HTTP surface needs.
type Server struct {
	DB          *gorm.DB
	Auth        *auth.Service
	Projects    *project.Service
	Bids        *bid.Service
	Attachments *attachment.Service
	Hub         *realtime.Hub
	Google      *GoogleOAuthHandler     // nil disables Google sign-in
	Limiter     *middleware.RateLimiter // nil disables rate limiting
	Log         *logrus.Entry
}

// NewApp returns a fiber app that renders errors in the standard body.
func NewApp(log *logrus.Entry, bodyLimit int) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "bidding-api",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(log),
	})
}

// Mount registers /healthz, /api and /ws routes. Global middleware must be
// added to app before calling it.
func (s *Server) Mount(app *fiber.App) {
	// Public routes are limited per client IP. Protected routes are limited
	// after Auth, so each user gets a bucket of their own.
	limit := s.limit()

	app.Get("/healthz", s.Healthz)

	rt := &RealtimeHandler{Verifier: s.Auth, Hub: s.Hub, Log: s.Log}
	rt.Routes(app, limit)

	api := app.Group("/api")

	authH := &AuthHandler{Auth: s.Auth}
	api.Post("/auth/register", limit, authH.Register)
	api.Post("/auth/login", limit, authH.Login)
	if s.Google != nil {
		api.Get("/auth/google/start", limit, s.Google.GoogleStart)
		api.Get("/auth/google/callback", limit, s.Google.GoogleCallback)
	}

	// everything registered below requires a bearer token
	protected := api.Group("/", middleware.Auth(s.Auth), limit)
	protected.Get("/auth/me", authH.Me)

	(&ProjectHandler{Projects: s.Projects, Attachments: s.Attachments}).Routes(protected)
	(&BidHandler{Bids: s.Bids}).Routes(protected)
	(&NotificationHandler{DB: s.DB}).Routes(protected)
}

func (s *Server) limit() fiber.Handler {
	if s.Limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return s.Limiter.Handler()
}

func (s *Server) Healthz(c *fiber.Ctx) error {
	sqlDB, err := s.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		s.Log.WithError(err).Warn("health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   true,
			"message": "database unavailable",
		})
	}
	return ok(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

// NotFound is the catch-all for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return apperr.NotFound("route not found")
}
