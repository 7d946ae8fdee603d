package service_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/mocks"
	"github.com/opsdesk/task-service/internal/service"
)

var fixedNow = time.Date(2024, time.March, 11, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store         *mocks.Store
	dispatcher    events.Dispatcher
	notifications *service.NotificationService
	assignment    *service.AssignmentService
	tasks         *service.TaskService
	workers       *service.WorkerService
}

func newFixture(t *testing.T, policy service.QualificationPolicy) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := mocks.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	clock := service.FixedClock{At: fixedNow}

	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications(),
		WorkerRepo:       store.Workers(),
		Directory:        store.Directory(),
		Dispatcher:       dispatcher,
	}, logger)
	notifications.RegisterHandlers()

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TaskRepo:   store.Tasks(),
		WorkerRepo: store.Workers(),
		Directory:  store.Directory(),
		Dispatcher: dispatcher,
		Policy:     policy,
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

	return &fixture{
		store:         store,
		dispatcher:    dispatcher,
		notifications: notifications,
		assignment:    assignment,
		tasks:         tasks,
		workers:       workers,
	}
}

func employee(id, dept string, q domain.Qualification) domain.Worker {
	return domain.Worker{ID: id, Username: id, Role: domain.WorkerRoleEmployee, DepartmentID: &dept, Qualification: &q}
}

func supervisor(id, dept string) domain.Worker {
	return domain.Worker{ID: id, Username: id, Role: domain.WorkerRoleSupervisor, DepartmentID: &dept}
}

func admin(id string) domain.Worker {
	return domain.Worker{ID: id, Username: id, Role: domain.WorkerRoleAdmin}
}

func ptr[T any](v T) *T {
	return &v
}
