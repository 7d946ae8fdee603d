package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/task-service/internal/api/http"
	"github.com/opsdesk/task-service/internal/api/http/handlers"
	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/mocks"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/service"
)

const testPassword = "correct-horse"

type testServer struct {
	app    *fiber.App
	store  *mocks.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := mocks.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	clock := service.FixedClock{At: time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications(),
		WorkerRepo:       store.Workers(),
		Directory:        store.Directory(),
		Dispatcher:       dispatcher,
		Metrics:          metrics,
	}, logger)
	notifications.RegisterHandlers()
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TaskRepo:   store.Tasks(),
		WorkerRepo: store.Workers(),
		Directory:  store.Directory(),
		Dispatcher: dispatcher,
		Clock:      clock,
	}, logger)
	tasks := service.NewTaskService(service.TaskDependencies{
		TaskRepo:       store.Tasks(),
		CommentRepo:    store.Comments(),
		DepartmentRepo: store.Departments(),
		WorkerRepo:     store.Workers(),
		Assignment:     assignment,
		Dispatcher:     dispatcher,
		Clock:          clock,
	}, logger)
	workers := service.NewWorkerService(service.WorkerDependencies{
		WorkerRepo:       store.Workers(),
		DepartmentRepo:   store.Departments(),
		NotificationRepo: store.Notifications(),
		Dispatcher:       dispatcher,
		Clock:            clock,
		BcryptCost:       4,
	}, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		WorkerRepo:   store.Workers(),
		TokenManager: tokens,
		Clock:        clock,
	}, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("task-service", "test", nil, metrics),
		Workers:        handlers.NewWorkersHandler(authService, workers),
		Departments:    handlers.NewDepartmentsHandler(service.NewDepartmentService(store.Departments())),
		Tasks:          handlers.NewTasksHandler(tasks, assignment, time.UTC),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Workers()),
	})

	hash, err := auth.HashPassword(testPassword, 4)
	require.NoError(t, err)
	dept := "dept-1"
	junior := domain.QualificationJunior
	store.SeedDepartment(dept, "Operations")
	store.SeedWorker(domain.Worker{ID: "admin", Role: domain.WorkerRoleAdmin, PasswordHash: hash})
	store.SeedWorker(domain.Worker{ID: "sup", Role: domain.WorkerRoleSupervisor, DepartmentID: &dept, PasswordHash: hash})
	store.SeedWorker(domain.Worker{ID: "emp", Role: domain.WorkerRoleEmployee, DepartmentID: &dept, Qualification: &junior, PasswordHash: hash})

	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) tokenFor(t *testing.T, workerID string) string {
	t.Helper()
	worker, err := s.store.Workers().GetByID(t.Context(), workerID)
	require.NoError(t, err)
	token, _, err := s.tokens.GenerateToken(worker)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", body)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "emp", "password": testPassword})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	token, _ := data["auth"].(map[string]any)["token"].(string)
	claims, err := srv.tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "emp", claims.WorkerID)

	status, body = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "emp", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, _ = srv.do(t, http.MethodGet, "/api/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleChecks(t *testing.T) {
	srv := newTestServer(t)
	task := srv.store.SeedTask(domain.Task{Title: "t", DepartmentID: "dept-1", Status: domain.TaskStatusPending,
		Priority: domain.TaskPriorityMedium, RequiredQualification: domain.QualificationJunior})

	status, body := srv.do(t, http.MethodDelete, "/api/tasks/"+task.ID, srv.tokenFor(t, "emp"), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, _ = srv.do(t, http.MethodGet, "/api/workers", srv.tokenFor(t, "sup"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = srv.do(t, http.MethodDelete, "/api/tasks/"+task.ID, srv.tokenFor(t, "sup"), nil)
	assert.Equal(t, http.StatusNoContent, status)
	_, exists := srv.store.Task(task.ID)
	assert.False(t, exists)
}

func TestCreateTaskAssignsAutomatically(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/tasks", srv.tokenFor(t, "sup"), map[string]any{
		"title":         "Restock shelves",
		"department_id": "dept-1",
		"due_date":      "2024-03-12",
	})

	require.Equal(t, http.StatusCreated, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "emp", data["assignee_id"])
	assert.Equal(t, "2024-03-12", data["due_date"])
	assert.Equal(t, "PENDING", data["status"])
	assert.Len(t, srv.store.NotificationsFor("emp"), 1)
}

func TestCreateTaskWithoutEligibleWorker(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/tasks", srv.tokenFor(t, "sup"), map[string]any{
		"title":                  "Audit",
		"department_id":          "dept-1",
		"required_qualification": "senior",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "NO_ELIGIBLE_WORKER", errorCode(t, body))
	data := body["data"].(map[string]any)
	assert.Nil(t, data["assignee_id"])
	_, exists := srv.store.Task(data["id"].(string))
	assert.True(t, exists, "task is kept unassigned")
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	token := srv.tokenFor(t, "sup")

	status, body := srv.do(t, http.MethodPost, "/api/tasks", token, map[string]any{"department_id": "dept-1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	status, body = srv.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "x", "department_id": "dept-1", "status": "PAUSED",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STATE", errorCode(t, body))

	status, body = srv.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "x", "department_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestNotificationInbox(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, http.MethodPost, "/api/notifications/send", srv.tokenFor(t, "sup"), map[string]any{
		"message": "stand-up moved", "recipient_username": "emp",
	})
	require.Equal(t, http.StatusAccepted, status)

	empToken := srv.tokenFor(t, "emp")
	status, body := srv.do(t, http.MethodGet, "/api/notifications/unread", empToken, nil)
	require.Equal(t, http.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	id := items[0].(map[string]any)["id"].(string)

	status, _ = srv.do(t, http.MethodPut, "/api/notifications/"+id+"/read", empToken, nil)
	require.Less(t, status, 300)

	_, body = srv.do(t, http.MethodGet, "/api/notifications/unread", empToken, nil)
	assert.Empty(t, body["data"])
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestDepartmentMembers(t *testing.T) {
	srv := newTestServer(t)
	other := "dept-2"
	srv.store.SeedDepartment(other, "Logistics")
	srv.store.SeedWorker(domain.Worker{ID: "carrier", Role: domain.WorkerRoleEmployee, DepartmentID: &other})

	status, body := srv.do(t, http.MethodGet, "/api/departments/dept-1/users", srv.tokenFor(t, "sup"), nil)
	require.Equal(t, http.StatusOK, status, body)
	items := body["data"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "emp", items[0].(map[string]any)["username"])
	assert.NotContains(t, items[0].(map[string]any), "password_hash")

	status, body = srv.do(t, http.MethodGet, "/api/departments/dept-2/users", srv.tokenFor(t, "emp"), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = srv.do(t, http.MethodGet, "/api/departments/nowhere/users", srv.tokenFor(t, "admin"), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = srv.do(t, http.MethodGet, "/api/departments/dept-1", srv.tokenFor(t, "admin"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["member_count"])
}

func TestTaskListIsScopedToCaller(t *testing.T) {
	srv := newTestServer(t)
	emp := "emp"
	srv.store.SeedTask(domain.Task{Title: "mine", DepartmentID: "dept-1", AssigneeID: &emp,
		Status: domain.TaskStatusPending, Priority: domain.TaskPriorityMedium})
	srv.store.SeedTask(domain.Task{Title: "unassigned", DepartmentID: "dept-1",
		Status: domain.TaskStatusPending, Priority: domain.TaskPriorityMedium})
	srv.store.SeedTask(domain.Task{Title: "elsewhere", DepartmentID: "dept-2",
		Status: domain.TaskStatusPending, Priority: domain.TaskPriorityMedium})

	titles := func(token string) []string {
		status, body := srv.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, status, body)
		var out []string
		for _, item := range body["data"].([]any) {
			out = append(out, item.(map[string]any)["title"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"mine"}, titles(srv.tokenFor(t, "emp")))
	assert.ElementsMatch(t, []string{"mine", "unassigned"}, titles(srv.tokenFor(t, "sup")))
	assert.Len(t, titles(srv.tokenFor(t, "admin")), 3)
}

func TestSelfService(t *testing.T) {
	srv := newTestServer(t)
	token := srv.tokenFor(t, "emp")

	status, body := srv.do(t, http.MethodPut, "/api/me", token, map[string]any{"first_name": "Emma", "email": "emma@example.com"})
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Emma", data["first_name"])
	assert.Equal(t, "emma@example.com", data["email"])

	status, body = srv.do(t, http.MethodPut, "/api/me/password", token, map[string]any{
		"current_password": "not-it", "new_password": "battery-staple",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	status, _ = srv.do(t, http.MethodPut, "/api/me/password", token, map[string]any{
		"current_password": testPassword, "new_password": "battery-staple",
	})
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "emp", "password": "battery-staple"})
	assert.Equal(t, http.StatusOK, status)
}
