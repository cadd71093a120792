package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/ratelimit"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// NewApp builds the fiber app with the envelope error handler and body limit.
func NewApp(name string, bodyLimit int, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, metrics),
	})
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Cases          *handlers.CasesHandler
	Reports        *handlers.ReportsHandler
	Visiting       *handlers.VisitingHandler
	Files          *handlers.FilesHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes. It must run last: it installs the catch-all 404.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authenticated := cfg.AuthMiddleware.Handle
	admins := auth.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)
	superAdmins := auth.RequireRole(domain.RoleSuperAdmin)
	limit := func(route string) fiber.Handler {
		return cfg.Limiter.Middleware(route, cfg.Logger)
	}

	files := app.Group("/files")
	files.Get("/avatars/:name", cfg.Files.Avatar)
	files.Get("/reports/:name", authenticated, cfg.Files.Report)

	v1 := app.Group("/api/v1")

	users := v1.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", limit("login"), cfg.Users.Login)
	users.Post("/forgot-password", limit("forgot-password"), cfg.Users.ForgotPassword)
	users.Post("/verify-reset-code", limit("verify-reset-code"), cfg.Users.VerifyResetCode)
	users.Put("/reset-password", cfg.Users.ResetPassword)
	users.Get("/", authenticated, superAdmins, cfg.Users.List)
	users.Post("/", authenticated, superAdmins, cfg.Users.Create)
	users.Get("/:userId", authenticated, superAdmins, cfg.Users.Get)
	users.Patch("/:userId", authenticated, cfg.Users.Update)
	users.Delete("/:userId", authenticated, superAdmins, cfg.Users.Delete)

	cases := v1.Group("/cases")
	cases.Get("/", authenticated, admins, cfg.Cases.List)
	cases.Post("/", authenticated, admins, cfg.Cases.Create)
	registerReports(cases.Group("/:caseId/reports"), cfg, authenticated, admins)
	registerVisiting(cases.Group("/:caseId/visiting"), cfg, authenticated, admins)
	cases.Get("/:caseId", authenticated, cfg.Cases.Get)
	cases.Patch("/:caseId", authenticated, admins, cfg.Cases.Update)
	cases.Delete("/:caseId", authenticated, admins, cfg.Cases.Delete)

	registerReports(v1.Group("/reports"), cfg, authenticated, admins)
	registerVisiting(v1.Group("/visiting"), cfg, authenticated, admins)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(dto.Envelope{
			Status:  apperrors.StatusError,
			Message: "this resource is not available",
		})
	})
}

func registerReports(r fiber.Router, cfg RouteConfig, authenticated, admins fiber.Handler) {
	r.Get("/", authenticated, admins, cfg.Reports.List)
	r.Post("/", authenticated, admins, cfg.Reports.Create)
	r.Get("/:reportId", authenticated, cfg.Reports.Get)
	r.Patch("/:reportId", authenticated, admins, cfg.Reports.Update)
	r.Delete("/:reportId", authenticated, admins, cfg.Reports.Delete)
}

func registerVisiting(r fiber.Router, cfg RouteConfig, authenticated, admins fiber.Handler) {
	r.Get("/", authenticated, admins, cfg.Visiting.List)
	r.Post("/", authenticated, admins, cfg.Visiting.Create)
	r.Get("/:visitingId", authenticated, cfg.Visiting.Get)
	r.Patch("/:visitingId", authenticated, admins, cfg.Visiting.Update)
	r.Delete("/:visitingId", authenticated, admins, cfg.Visiting.Delete)
}
