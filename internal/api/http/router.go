package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/http/handlers"
	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Workers        *handlers.WorkersHandler
	Departments    *handlers.DepartmentsHandler
	Tasks          *handlers.TasksHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/login", cfg.Workers.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/me", cfg.Workers.Me)
	protected.Put("/me", cfg.Workers.UpdateMe)
	protected.Put("/me/password", cfg.Workers.ChangePassword)

	managers := auth.RequireRole(domain.WorkerRoleSupervisor, domain.WorkerRoleAdmin)
	admins := auth.RequireRole(domain.WorkerRoleAdmin)

	tasks := protected.Group("/tasks")
	tasks.Post("/", cfg.Tasks.Create)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Put("/:id", cfg.Tasks.Update)
	tasks.Delete("/:id", managers, cfg.Tasks.Delete)
	tasks.Post("/:id/assign", managers, cfg.Tasks.Assign)
	tasks.Post("/:id/comments", cfg.Tasks.AddComment)
	tasks.Get("/:id/comments", cfg.Tasks.ListComments)

	notifications := protected.Group("/notifications")
	notifications.Post("/send", managers, cfg.Notifications.Send)
	notifications.Get("/unread", cfg.Notifications.Unread)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Put("/:id/read", cfg.Notifications.MarkRead)

	workers := protected.Group("/workers", admins)
	workers.Post("/", cfg.Workers.Create)
	workers.Get("/", cfg.Workers.List)
	workers.Get("/:id", cfg.Workers.Get)
	workers.Put("/:id", cfg.Workers.Update)
	workers.Delete("/:id", cfg.Workers.Delete)

	departments := protected.Group("/departments")
	departments.Get("/", cfg.Departments.List)
	departments.Get("/:id", cfg.Departments.Get)
	departments.Get("/:id/users", cfg.Departments.Members)
	departments.Post("/", admins, cfg.Departments.Create)
	departments.Put("/:id", admins, cfg.Departments.Update)
}
