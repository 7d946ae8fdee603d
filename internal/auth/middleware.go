package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

const workerKey = "auth_worker"

// AuthMiddleware validates bearer tokens and loads the acting worker.
type AuthMiddleware struct {
	tokens  *TokenManager
	workers repository.WorkerRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, workers repository.WorkerRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, workers: workers}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	worker, err := m.workers.GetByID(c.UserContext(), claims.WorkerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("worker not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(workerKey, worker)
	return c.Next()
}

// WorkerFromContext retrieves the authenticated worker.
func WorkerFromContext(c *fiber.Ctx) (*domain.Worker, bool) {
	val := c.Locals(workerKey)
	if val == nil {
		return nil, false
	}
	worker, ok := val.(*domain.Worker)
	return worker, ok && worker != nil
}

// WithWorker attaches worker to the request. Used by tests and internal callers.
func WithWorker(c *fiber.Ctx, worker *domain.Worker) {
	c.Locals(workerKey, worker)
}
