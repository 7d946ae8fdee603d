package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/domain"
)

// RequireRole ensures the authenticated worker has one of the allowed roles.
func RequireRole(allowed ...domain.WorkerRole) fiber.Handler {
	allowedSet := make(map[domain.WorkerRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		worker, ok := WorkerFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[worker.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a worker is attached to the request.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
