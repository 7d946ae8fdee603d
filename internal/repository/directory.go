package repository

import (
	"context"

	"github.com/opsdesk/task-service/internal/domain"
)

// Directory is the read-only view of workers used by assignment and sweeps.
// Empty results are not errors.
type Directory interface {
	ListEmployeesInDepartment(ctx context.Context, departmentID string) ([]domain.Worker, error)
	ListSupervisorsInDepartment(ctx context.Context, departmentID string) ([]domain.Worker, error)
	ListAdmins(ctx context.Context) ([]domain.Worker, error)
	AssignedTaskCount(ctx context.Context, workerID string) (int, error)
	AllWorkers(ctx context.Context) ([]domain.Worker, error)
}

type directory struct {
	workers WorkerRepository
	tasks   TaskRepository
}

// NewDirectory composes the directory from the worker and task repositories.
func NewDirectory(workers WorkerRepository, tasks TaskRepository) Directory {
	return &directory{workers: workers, tasks: tasks}
}

func (d *directory) ListEmployeesInDepartment(ctx context.Context, departmentID string) ([]domain.Worker, error) {
	return d.byRole(ctx, domain.WorkerRoleEmployee, &departmentID)
}

func (d *directory) ListSupervisorsInDepartment(ctx context.Context, departmentID string) ([]domain.Worker, error) {
	return d.byRole(ctx, domain.WorkerRoleSupervisor, &departmentID)
}

func (d *directory) ListAdmins(ctx context.Context) ([]domain.Worker, error) {
	return d.byRole(ctx, domain.WorkerRoleAdmin, nil)
}

// AssignedTaskCount counts every task held by the worker, whatever its status.
func (d *directory) AssignedTaskCount(ctx context.Context, workerID string) (int, error) {
	return d.tasks.CountByAssignee(ctx, workerID)
}

func (d *directory) AllWorkers(ctx context.Context) ([]domain.Worker, error) {
	return d.workers.List(ctx, WorkerFilter{})
}

func (d *directory) byRole(ctx context.Context, role domain.WorkerRole, departmentID *string) ([]domain.Worker, error) {
	return d.workers.List(ctx, WorkerFilter{Role: &role, DepartmentID: departmentID})
}
