package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/dto"
	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// bind decodes the JSON body into req and runs struct validation.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func currentWorker(c *fiber.Ctx) (*domain.Worker, error) {
	worker, ok := auth.WorkerFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return worker, nil
}

// pagination reads page and page_size query params.
func pagination(c *fiber.Ctx) (limit, offset int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}

// csvQuery splits a comma separated query param, dropping blanks.
func csvQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

// parseDate parses a YYYY-MM-DD value in loc.
func parseDate(field, raw string, loc *time.Location) (*time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{field: "expected YYYY-MM-DD"})
	}
	return &t, nil
}
