package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/livechat-service/internal/api/http/handlers"
	"github.com/spec-kit/livechat-service/internal/auth"
	"github.com/spec-kit/livechat-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Departments    *handlers.DepartmentsHandler
	Agents         *handlers.AgentsHandler
	Methods        *handlers.MethodsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	manager := auth.RequireRole(domain.AgentRoleManager)
	admin := auth.RequireRole(domain.AgentRoleAdmin)

	departments := api.Group("/departments")
	departments.Get("/", cfg.Departments.List)
	departments.Get("/enabled-with-agents", cfg.Departments.EnabledWithAgents)
	departments.Get("/by-units", cfg.Departments.ByUnits)
	departments.Get("/lookup/:idOrName", cfg.Departments.Lookup)
	departments.Post("/reconcile", admin, cfg.Departments.Reconcile)
	departments.Post("/", manager, cfg.Departments.Create)
	departments.Get("/:id", cfg.Departments.Get)
	departments.Get("/:id/agents", cfg.Departments.Agents)
	departments.Put("/:id", manager, cfg.Departments.Save)
	departments.Patch("/:id", manager, cfg.Departments.Patch)
	departments.Put("/:id/num-agents", admin, cfg.Departments.SetNumAgents)
	departments.Delete("/:id", manager, cfg.Departments.Delete)

	agents := api.Group("/agents")
	agents.Get("/", manager, cfg.Agents.List)
	agents.Post("/", admin, cfg.Agents.Create)
	agents.Get("/:id", manager, cfg.Agents.Get)
	agents.Get("/:id/departments", cfg.Agents.Departments)
	agents.Put("/:id/departments", manager, cfg.Agents.SaveDepartments)

	methods := api.Group("/methods", manager)
	methods.Get("/", cfg.Methods.List)
	methods.Post("/:name", cfg.Methods.Invoke)
}
