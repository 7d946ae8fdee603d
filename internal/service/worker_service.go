package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// WorkerService manages worker accounts and announces changes to administrators.
type WorkerService struct {
	workers       repository.WorkerRepository
	departments   repository.DepartmentRepository
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	clock         Clock
	bcryptCost    int
	logger        *zap.Logger
}

// WorkerDependencies bundles repositories required for worker management.
type WorkerDependencies struct {
	WorkerRepo       repository.WorkerRepository
	DepartmentRepo   repository.DepartmentRepository
	NotificationRepo repository.NotificationRepository
	Dispatcher       events.Dispatcher
	Clock            Clock
	BcryptCost       int
}

// WorkerInput carries create and update fields. On update, nil pointers are left unchanged.
type WorkerInput struct {
	Username      *string
	Email         *string
	FirstName     *string
	LastName      *string
	Password      *string
	Role          *string
	DepartmentID  *string
	Qualification *string
}

// ProfileInput carries the fields a worker may change on their own account.
type ProfileInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

// WorkerListFilters define listing parameters.
type WorkerListFilters struct {
	Role         *string
	DepartmentID *string
	Limit        int
	Offset       int
}

// NewWorkerService constructs the service.
func NewWorkerService(deps WorkerDependencies, logger *zap.Logger) *WorkerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &WorkerService{
		workers:       deps.WorkerRepo,
		departments:   deps.DepartmentRepo,
		notifications: deps.NotificationRepo,
		dispatcher:    deps.Dispatcher,
		clock:         clock,
		bcryptCost:    deps.BcryptCost,
		logger:        logger,
	}
}

func requireAdmin(actor *domain.Worker) error {
	if actor == nil {
		return apperrors.NewUnauthorized("worker required")
	}
	if actor.Role != domain.WorkerRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateWorker registers a new worker. Last activity starts at creation time.
func (s *WorkerService) CreateWorker(ctx context.Context, actor *domain.Worker, input WorkerInput) (*domain.Worker, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	username := trimmed(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
	}
	password := ""
	if input.Password != nil {
		password = *input.Password
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}
	if err := s.ensureUsernameFree(ctx, username, ""); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, trimmed(input.Email), ""); err != nil {
		return nil, err
	}

	worker := &domain.Worker{
		Username:  username,
		Email:     trimmed(input.Email),
		FirstName: trimmed(input.FirstName),
		LastName:  trimmed(input.LastName),
		Role:      domain.WorkerRoleEmployee,
	}
	if err := s.applyProfile(ctx, worker, input); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	worker.PasswordHash = hash
	now := s.clock.Now()
	worker.LastActiveAt = &now

	if err := s.workers.Create(ctx, worker); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("worker created", zap.String("worker_id", worker.ID), zap.String("role", string(worker.Role)))
	s.publish(ctx, events.EventWorkerCreated, actor, worker)
	return worker, nil
}

// UpdateWorker applies the non-nil fields of input.
func (s *WorkerService) UpdateWorker(ctx context.Context, actor *domain.Worker, id string, input WorkerInput) (*domain.Worker, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	worker, err := s.loadWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyIdentity(ctx, worker, ProfileInput{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}); err != nil {
		return nil, err
	}
	if err := s.applyProfile(ctx, worker, input); err != nil {
		return nil, err
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		worker.PasswordHash = hash
	}
	if err := s.workers.Update(ctx, worker); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventWorkerUpdated, actor, worker)
	return worker, nil
}

// UpdateProfile lets a worker change their own username, email and names. Role,
// department and qualification stay with admins.
func (s *WorkerService) UpdateProfile(ctx context.Context, actor *domain.Worker, input ProfileInput) (*domain.Worker, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	worker, err := s.loadWorker(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyIdentity(ctx, worker, input); err != nil {
		return nil, err
	}
	if err := s.workers.Update(ctx, worker); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventWorkerUpdated, actor, worker)
	return worker, nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *WorkerService) ChangePassword(ctx context.Context, actor *domain.Worker, current, next string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("worker required")
	}
	if next == "" {
		return apperrors.NewValidationError("new password is required", map[string]any{"field": "new_password"})
	}
	worker, err := s.loadWorker(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(worker.PasswordHash, current); err != nil {
		return apperrors.NewValidationError("current password is incorrect", map[string]any{"field": "current_password"})
	}
	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}
	worker.PasswordHash = hash
	if err := s.workers.Update(ctx, worker); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("password changed", zap.String("worker_id", worker.ID))
	return nil
}

// DeleteWorker removes a worker together with the notifications addressed to them.
func (s *WorkerService) DeleteWorker(ctx context.Context, actor *domain.Worker, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	worker, err := s.loadWorker(ctx, id)
	if err != nil {
		return err
	}
	if err := s.notifications.DeleteByRecipient(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.workers.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("worker deleted", zap.String("worker_id", id))
	s.publish(ctx, events.EventWorkerDeleted, actor, worker)
	return nil
}

// GetWorker fetches a worker by id.
func (s *WorkerService) GetWorker(ctx context.Context, id string) (*domain.Worker, error) {
	return s.loadWorker(ctx, id)
}

// ListWorkers lists workers ordered by id.
func (s *WorkerService) ListWorkers(ctx context.Context, filters WorkerListFilters) ([]domain.Worker, error) {
	repoFilter := repository.WorkerFilter{
		DepartmentID: filters.DepartmentID,
		Limit:        filters.Limit,
		Offset:       filters.Offset,
	}
	if filters.Role != nil && *filters.Role != "" {
		role, ok := domain.ParseWorkerRole(*filters.Role)
		if !ok {
			return nil, apperrors.NewInvalidState("unknown role", map[string]any{"role": *filters.Role})
		}
		repoFilter.Role = &role
	}
	list, err := s.workers.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// applyIdentity applies username, email and names, keeping username and email unique.
func (s *WorkerService) applyIdentity(ctx context.Context, worker *domain.Worker, input ProfileInput) error {
	if input.Username != nil {
		username := trimmed(input.Username)
		if username == "" {
			return apperrors.NewValidationError("username cannot be empty", map[string]any{"field": "username"})
		}
		if err := s.ensureUsernameFree(ctx, username, worker.ID); err != nil {
			return err
		}
		worker.Username = username
	}
	if input.Email != nil {
		email := trimmed(input.Email)
		if err := s.ensureEmailFree(ctx, email, worker.ID); err != nil {
			return err
		}
		worker.Email = email
	}
	if input.FirstName != nil {
		worker.FirstName = trimmed(input.FirstName)
	}
	if input.LastName != nil {
		worker.LastName = trimmed(input.LastName)
	}
	return nil
}

// ensureUsernameFree fails with CONFLICT when another worker than selfID holds username.
func (s *WorkerService) ensureUsernameFree(ctx context.Context, username, selfID string) error {
	other, err := s.workers.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if other.ID != selfID {
		return apperrors.NewConflict("username already exists", map[string]any{"username": username})
	}
	return nil
}

// ensureEmailFree is ensureUsernameFree for email. Blank emails are never taken.
func (s *WorkerService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	if email == "" {
		return nil
	}
	other, err := s.workers.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if other.ID != selfID {
		return apperrors.NewConflict("email already exists", map[string]any{"email": email})
	}
	return nil
}

// applyProfile validates role, department and qualification from input onto worker.
func (s *WorkerService) applyProfile(ctx context.Context, worker *domain.Worker, input WorkerInput) error {
	if input.Role != nil && *input.Role != "" {
		role, ok := domain.ParseWorkerRole(*input.Role)
		if !ok {
			return apperrors.NewInvalidState("unknown role", map[string]any{"role": *input.Role})
		}
		worker.Role = role
	}
	if input.DepartmentID != nil {
		deptID := trimmed(input.DepartmentID)
		if deptID == "" {
			worker.DepartmentID = nil
		} else {
			if _, err := s.departments.GetByID(ctx, deptID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewNotFound("department", map[string]any{"department_id": deptID})
				}
				return apperrors.MapError(err)
			}
			worker.DepartmentID = &deptID
		}
	}
	if input.Qualification != nil {
		raw := trimmed(input.Qualification)
		if raw == "" {
			worker.Qualification = nil
		} else {
			q, ok := domain.ParseQualification(raw)
			if !ok {
				return apperrors.NewInvalidState("unknown qualification", map[string]any{"qualification": raw})
			}
			worker.Qualification = &q
		}
	}
	if worker.Role != domain.WorkerRoleAdmin && worker.DepartmentID == nil {
		return apperrors.NewValidationError("department_id is required for non-admin workers", map[string]any{"field": "department_id"})
	}
	return nil
}

func (s *WorkerService) loadWorker(ctx context.Context, id string) (*domain.Worker, error) {
	worker, err := s.workers.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("worker", map[string]any{"worker_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return worker, nil
}

func (s *WorkerService) publish(ctx context.Context, eventType events.EventType, actor, worker *domain.Worker) {
	publishEvent(ctx, s.dispatcher, s.clock, eventType, worker.ID, actor, events.WorkerPayload{
		Username: worker.Username,
		Role:     worker.Role,
	})
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func (s *WorkerService) hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}
