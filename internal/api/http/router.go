package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ebingo-service/internal/api/http/handlers"
	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Branches       *handlers.BranchesHandler
	Users          *handlers.UsersHandler
	Members        *handlers.MembersHandler
	AuthMiddleware *auth.AuthMiddleware
	HoursGuard     *auth.HoursGuard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// The closed page keeps polling after its session lapses, so the window read is public.
	app.Get("/branches/:id/window", cfg.Branches.Window)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Logout)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/metrics", auth.RequireAdmin(), cfg.Health.Metrics)

	// Landing routes. Terminal roles are re-checked against branch hours.
	protected.Get("/kaizen", auth.RequireRole(domain.RoleKaizen), handlers.Landing)
	protected.Get("/superadmin", auth.RequireRole(domain.RoleSuperAdmin), handlers.Landing)
	protected.Get("/cashier", auth.RequireRole(domain.RoleCashier), cfg.HoursGuard.Handle, handlers.Landing)
	protected.Get("/guard", auth.RequireRole(domain.RoleGuard), cfg.HoursGuard.Handle, handlers.Landing)

	branches := protected.Group("/branches")
	branches.Get("/:id", auth.RequireAnyRole(), cfg.Branches.Get)
	branches.Get("", auth.RequireAdmin(), cfg.Branches.List)
	branches.Post("", auth.RequireAdmin(), cfg.Branches.Create)
	branches.Put("/:id/schedule", auth.RequireAdmin(), cfg.Branches.UpdateSchedule)
	branches.Put("/:id", auth.RequireAdmin(), cfg.Branches.Update)
	branches.Delete("/:id", auth.RequireAdmin(), cfg.Branches.Delete)

	users := protected.Group("/users", auth.RequireAdmin())
	users.Get("", cfg.Users.List)
	users.Post("", cfg.Users.Create)
	users.Put("/:id/password", cfg.Users.ChangePassword)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	members := protected.Group("/members", auth.RequireRole(domain.RoleCashier, domain.RoleGuard), cfg.HoursGuard.Handle)
	members.Post("/lookup", cfg.Members.Lookup)
	members.Get("/banned", cfg.Members.Banned)
	members.Post("/:id/ban", cfg.Members.Ban)
	members.Post("/:id/unban", cfg.Members.Unban)
}
