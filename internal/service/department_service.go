package service

import (
	"context"
	"strings"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// DepartmentService manages departments.
type DepartmentService struct {
	departments repository.DepartmentRepository
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments repository.DepartmentRepository) *DepartmentService {
	return &DepartmentService{departments: departments}
}

// CreateDepartment creates a new department.
func (s *DepartmentService) CreateDepartment(ctx context.Context, actor *domain.Worker, name, description string) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// UpdateDepartment modifies department metadata.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, actor *domain.Worker, id string, name, description *string) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	dept, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		dept.Name = strings.TrimSpace(*name)
	}
	if description != nil {
		dept.Description = strings.TrimSpace(*description)
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// GetDepartment fetches a department.
func (s *DepartmentService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns every department ordered by name.
func (s *DepartmentService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	list, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ListMembers returns the workers of a department. Admins may list any department,
// everyone else only their own.
func (s *DepartmentService) ListMembers(ctx context.Context, actor *domain.Worker, id string) ([]domain.Worker, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	if _, err := s.GetDepartment(ctx, id); err != nil {
		return nil, err
	}
	if actor.Role != domain.WorkerRoleAdmin && !actor.InDepartment(id) {
		return nil, apperrors.NewForbidden("department members are visible to its own workers only")
	}
	members, err := s.departments.Members(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}
