package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// QualificationPolicy reports whether a worker qualification satisfies a task requirement.
type QualificationPolicy func(worker, required domain.Qualification) bool

// ExactQualification accepts only an identical qualification level.
func ExactQualification(worker, required domain.Qualification) bool {
	return worker == required
}

// AtLeastQualification accepts any level at or above the requirement.
func AtLeastQualification(worker, required domain.Qualification) bool {
	return worker.Rank() >= required.Rank()
}

// QualificationPolicyByName resolves "exact" or "at_least". Empty means exact.
func QualificationPolicyByName(name string) (QualificationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exact":
		return ExactQualification, nil
	case "at_least":
		return AtLeastQualification, nil
	default:
		return nil, fmt.Errorf("unknown qualification policy %q", name)
	}
}

// AssignmentService selects assignees for tasks and commits the assignment.
type AssignmentService struct {
	tasks      repository.TaskRepository
	workers    repository.WorkerRepository
	directory  repository.Directory
	dispatcher events.Dispatcher
	policy     QualificationPolicy
	clock      Clock
	logger     *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TaskRepo   repository.TaskRepository
	WorkerRepo repository.WorkerRepository
	Directory  repository.Directory
	Dispatcher events.Dispatcher
	Policy     QualificationPolicy
	Clock      Clock
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := deps.Policy
	if policy == nil {
		policy = ExactQualification
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &AssignmentService{
		tasks:      deps.TaskRepo,
		workers:    deps.WorkerRepo,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		policy:     policy,
		clock:      clock,
		logger:     logger,
	}
}

// candidate is an eligible worker together with its current load.
type candidate struct {
	worker domain.Worker
	load   int
}

// AssignAutomatically picks the least loaded eligible employee of the task's department
// and commits the assignment. Ties go to the lowest worker id. The task must already be
// persisted; on NO_ELIGIBLE_WORKER it is left untouched and unassigned.
func (s *AssignmentService) AssignAutomatically(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, apperrors.NewValidationError("task required", nil)
	}
	if task.AssigneeID != nil {
		return nil, apperrors.NewInvalidState("task already assigned", map[string]any{
			"task_id":     task.ID,
			"assignee_id": *task.AssigneeID,
		})
	}
	task.ApplyDefaults()

	candidates, err := s.eligibleCandidates(ctx, task)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	chosen, ok := leastLoaded(candidates)
	if !ok {
		s.logger.Info("no eligible worker",
			zap.String("task_id", task.ID),
			zap.String("department_id", task.DepartmentID),
			zap.String("required_qualification", string(task.RequiredQualification)))
		return nil, apperrors.NewNoEligibleWorker(map[string]any{
			"task_id":                task.ID,
			"department_id":          task.DepartmentID,
			"required_qualification": task.RequiredQualification,
		})
	}
	s.logger.Debug("assignee selected",
		zap.String("task_id", task.ID),
		zap.String("worker_id", chosen.worker.ID),
		zap.Int("load", chosen.load),
		zap.Int("candidates", len(candidates)))
	return s.commit(ctx, nil, task, chosen.worker.ID, true)
}

// AssignExplicitly commits a caller-chosen assignee after checking the worker exists.
func (s *AssignmentService) AssignExplicitly(ctx context.Context, actor *domain.Worker, task *domain.Task, workerID string) (*domain.Task, error) {
	if task == nil {
		return nil, apperrors.NewValidationError("task required", nil)
	}
	if _, err := s.workers.GetByID(ctx, workerID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("worker", map[string]any{"worker_id": workerID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.commit(ctx, actor, task, workerID, false)
}

// AssignByID loads an unassigned task and runs automatic assignment on it.
func (s *AssignmentService) AssignByID(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.AssignAutomatically(ctx, task)
}

func (s *AssignmentService) eligibleCandidates(ctx context.Context, task *domain.Task) ([]candidate, error) {
	employees, err := s.directory.ListEmployeesInDepartment(ctx, task.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("list employees of %s: %w", task.DepartmentID, err)
	}
	out := make([]candidate, 0, len(employees))
	for _, worker := range employees {
		if !s.eligible(worker, task) {
			continue
		}
		load, err := s.directory.AssignedTaskCount(ctx, worker.ID)
		if err != nil {
			return nil, fmt.Errorf("count tasks of %s: %w", worker.ID, err)
		}
		out = append(out, candidate{worker: worker, load: load})
	}
	return out, nil
}

func (s *AssignmentService) eligible(worker domain.Worker, task *domain.Task) bool {
	if worker.Role != domain.WorkerRoleEmployee {
		return false
	}
	if !worker.InDepartment(task.DepartmentID) {
		return false
	}
	if worker.Qualification == nil {
		return false
	}
	return s.policy(*worker.Qualification, task.RequiredQualification)
}

// leastLoaded returns the candidate with the smallest load, lowest id on ties.
func leastLoaded(candidates []candidate) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.load < best.load || (c.load == best.load && c.worker.ID < best.worker.ID) {
			best = c
		}
	}
	return best, true
}

func (s *AssignmentService) commit(ctx context.Context, actor *domain.Worker, task *domain.Task, workerID string, automatic bool) (*domain.Task, error) {
	previous := task.AssigneeID
	task.AssigneeID = strPtr(workerID)
	if err := s.tasks.Update(ctx, task); err != nil {
		task.AssigneeID = previous
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, s.clock, events.EventTaskAssigned, task.ID, actor, events.TaskAssignedPayload{
		Title:        task.Title,
		DepartmentID: task.DepartmentID,
		AssigneeID:   workerID,
		Automatic:    automatic,
	})
	return task, nil
}
