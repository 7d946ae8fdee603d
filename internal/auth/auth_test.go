package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/mocks"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("secret", 15*time.Minute)
	worker := &domain.Worker{ID: "w1", Username: "alice", Role: domain.WorkerRoleSupervisor}

	token, exp, err := tm.GenerateToken(worker)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "w1", claims.WorkerID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, domain.WorkerRoleSupervisor, claims.Role)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := auth.NewTokenManager("one", time.Hour).GenerateToken(&domain.Worker{ID: "w1"})
	require.NoError(t, err)

	_, err = auth.NewTokenManager("two", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresWorker(t *testing.T) {
	_, _, err := auth.NewTokenManager("secret", 0).GenerateToken(nil)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, auth.ComparePassword(hash, "s3cret-pass"))
	assert.Error(t, auth.ComparePassword(hash, "other"))
}

func TestMiddlewareAndRoles(t *testing.T) {
	store := mocks.NewStore()
	store.SeedWorker(domain.Worker{ID: "emp", Role: domain.WorkerRoleEmployee})
	store.SeedWorker(domain.Worker{ID: "adm", Role: domain.WorkerRoleAdmin})
	tm := auth.NewTokenManager("secret", time.Hour)
	mw := auth.NewAuthMiddleware(tm, store.Workers())

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.SendStatus(fiberErr.Code)
		}
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Get("/admin", mw.Handle, auth.RequireRole(domain.WorkerRoleAdmin), func(c *fiber.Ctx) error {
		w, _ := auth.WorkerFromContext(c)
		return c.SendString(w.ID)
	})

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}
	bearer := func(id string) string {
		token, _, err := tm.GenerateToken(&domain.Worker{ID: id})
		require.NoError(t, err)
		return "Bearer " + token
	}

	assert.Equal(t, http.StatusOK, call(bearer("adm")))
	assert.Equal(t, http.StatusForbidden, call(bearer("emp")))
	assert.Equal(t, http.StatusUnauthorized, call(bearer("ghost")))
	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("Basic abc"))
}

func TestPasswordEdgeCases(t *testing.T) {
	_, err := auth.HashPassword(strings.Repeat("x", 73), 4)
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)

	hash, err := auth.HashPassword("fallback-cost", 0)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(hash, "fallback-cost"))

	assert.Error(t, auth.ComparePassword("", "anything"))
}
