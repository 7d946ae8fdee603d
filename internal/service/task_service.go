package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// TaskService coordinates task workflows.
type TaskService struct {
	tasks       repository.TaskRepository
	comments    repository.TaskCommentRepository
	departments repository.DepartmentRepository
	workers     repository.WorkerRepository
	assignment  *AssignmentService
	dispatcher  events.Dispatcher
	clock       Clock
	location    *time.Location
	logger      *zap.Logger
}

// TaskDependencies bundles repositories for task service.
type TaskDependencies struct {
	TaskRepo       repository.TaskRepository
	CommentRepo    repository.TaskCommentRepository
	DepartmentRepo repository.DepartmentRepository
	WorkerRepo     repository.WorkerRepository
	Assignment     *AssignmentService
	Dispatcher     events.Dispatcher
	Clock          Clock
	// Location anchors due dates. Defaults to UTC.
	Location *time.Location
}

// TaskCreateInput describes task creation payload. Enum fields are raw strings so
// unknown values can be rejected with INVALID_STATE.
type TaskCreateInput struct {
	Title                 string
	Description           string
	DueDate               *time.Time
	Priority              string
	Status                string
	RequiredQualification string
	DepartmentID          string
	AssigneeID            *string
}

// TaskPatch is a field-level update. Nil fields are left unchanged.
type TaskPatch struct {
	Title                 *string
	Description           *string
	DueDate               *time.Time
	ClearDueDate          bool
	Priority              *string
	Status                *string
	AssigneeID            *string
	ClearAssignee         bool
	DepartmentID          *string
	RequiredQualification *string
	Comments              []string
}

// TaskListFilter describes listing filters.
type TaskListFilter struct {
	DepartmentID *string
	AssigneeID   *string
	Statuses     []string
	Priorities   []string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return &TaskService{
		tasks:       deps.TaskRepo,
		comments:    deps.CommentRepo,
		departments: deps.DepartmentRepo,
		workers:     deps.WorkerRepo,
		assignment:  deps.Assignment,
		dispatcher:  deps.Dispatcher,
		clock:       clock,
		location:    location,
		logger:      logger,
	}
}

// CreateTask persists a task and assigns it. With an explicit assignee the worker is
// validated and assigned directly; otherwise the assignment engine picks one.
//
// When no worker qualifies the persisted, unassigned task is returned together with
// the NO_ELIGIBLE_WORKER error.
func (s *TaskService) CreateTask(ctx context.Context, actor *domain.Worker, input TaskCreateInput) (*domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	task := &domain.Task{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		DueDate:      s.normalizeDate(input.DueDate),
		DepartmentID: strings.TrimSpace(input.DepartmentID),
		CreatedByID:  strPtr(actor.ID),
	}
	if err := s.applyEnums(task, &input.Priority, &input.Status, &input.RequiredQualification); err != nil {
		return nil, err
	}
	task.ApplyDefaults()

	if task.DepartmentID == "" {
		return nil, apperrors.NewValidationError("department_id is required", map[string]any{"field": "department_id"})
	}
	if err := s.ensureDepartment(ctx, task.DepartmentID); err != nil {
		return nil, err
	}
	var explicit string
	if input.AssigneeID != nil && strings.TrimSpace(*input.AssigneeID) != "" {
		explicit = strings.TrimSpace(*input.AssigneeID)
		if err := s.ensureWorker(ctx, explicit); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("department_id", task.DepartmentID),
		zap.String("created_by", actor.ID))

	if explicit != "" {
		return s.assignment.AssignExplicitly(ctx, actor, task, explicit)
	}
	assigned, err := s.assignment.AssignAutomatically(ctx, task)
	if err != nil {
		return task, err
	}
	return assigned, nil
}

// UpdateTask applies patch to the task and notifies department supervisors. Only
// supervisors and admins may change the description. Enum fields are reported as
// changed only when their value differs.
func (s *TaskService) UpdateTask(ctx context.Context, actor *domain.Worker, id string, patch TaskPatch) (*domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := task.Status
	var changed []string
	for _, body := range patch.Comments {
		if strings.TrimSpace(body) == "" {
			return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "comments"})
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
		}
		task.Title = title
		changed = append(changed, "title")
	}
	if patch.Description != nil {
		if !actor.ManagesTasks() {
			return nil, apperrors.NewForbidden("only supervisors and admins can change the description")
		}
		task.Description = strings.TrimSpace(*patch.Description)
		changed = append(changed, "description")
	}
	if patch.ClearDueDate {
		task.DueDate = nil
		changed = append(changed, "due_date")
	} else if patch.DueDate != nil {
		task.DueDate = s.normalizeDate(patch.DueDate)
		changed = append(changed, "due_date")
	}
	if err := rejectBlankEnums(patch); err != nil {
		return nil, err
	}
	oldPriority, oldQualification := task.Priority, task.RequiredQualification
	if err := s.applyEnums(task, patch.Priority, patch.Status, patch.RequiredQualification); err != nil {
		return nil, err
	}
	if task.Priority != oldPriority {
		changed = append(changed, "priority")
	}
	if task.Status != oldStatus {
		changed = append(changed, "status")
	}
	if task.RequiredQualification != oldQualification {
		changed = append(changed, "required_qualification")
	}
	if patch.DepartmentID != nil {
		deptID := strings.TrimSpace(*patch.DepartmentID)
		if err := s.ensureDepartment(ctx, deptID); err != nil {
			return nil, err
		}
		task.DepartmentID = deptID
		changed = append(changed, "department_id")
	}
	if patch.ClearAssignee {
		task.AssigneeID = nil
		changed = append(changed, "assignee_id")
	} else if patch.AssigneeID != nil {
		assigneeID := strings.TrimSpace(*patch.AssigneeID)
		if err := s.ensureWorker(ctx, assigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = strPtr(assigneeID)
		changed = append(changed, "assignee_id")
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	// the row is committed at this point, so supervisors hear about it even when a
	// comment insert fails
	var commentErr error
	added := 0
	for _, body := range patch.Comments {
		if _, commentErr = s.addComment(ctx, actor, task, body); commentErr != nil {
			break
		}
		added++
	}
	if added > 0 {
		changed = append(changed, "comments")
	}

	publishEvent(ctx, s.dispatcher, s.clock, events.EventTaskUpdated, task.ID, actor, events.TaskUpdatedPayload{
		Title:         task.Title,
		DepartmentID:  task.DepartmentID,
		OldStatus:     oldStatus,
		NewStatus:     task.Status,
		ChangedFields: changed,
	})
	if commentErr != nil {
		return nil, commentErr
	}
	return task, nil
}

// DeleteTask removes a task and notifies department supervisors.
func (s *TaskService) DeleteTask(ctx context.Context, actor *domain.Worker, id string) error {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("task deleted", zap.String("task_id", id))
	publishEvent(ctx, s.dispatcher, s.clock, events.EventTaskDeleted, id, actor, events.TaskDeletedPayload{
		Title:        task.Title,
		DepartmentID: task.DepartmentID,
	})
	return nil
}

// GetTask returns a task by id.
func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.loadTask(ctx, id)
}

// ListTasks lists tasks matching filter within what actor may see: admins see every
// task, supervisors their department's, employees the tasks assigned to them.
func (s *TaskService) ListTasks(ctx context.Context, actor *domain.Worker, filter TaskListFilter) ([]domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	switch actor.Role {
	case domain.WorkerRoleAdmin:
	case domain.WorkerRoleSupervisor:
		if actor.DepartmentID == nil {
			return []domain.Task{}, nil
		}
		filter.DepartmentID = strPtr(*actor.DepartmentID)
	default:
		filter.AssigneeID = strPtr(actor.ID)
	}
	repoFilter := repository.TaskFilter{
		DepartmentID: filter.DepartmentID,
		AssigneeID:   filter.AssigneeID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	for _, raw := range filter.Statuses {
		status, ok := domain.ParseTaskStatus(raw)
		if !ok {
			return nil, apperrors.NewInvalidState("unknown task status", map[string]any{"status": raw})
		}
		repoFilter.Statuses = append(repoFilter.Statuses, status)
	}
	for _, raw := range filter.Priorities {
		priority, ok := domain.ParseTaskPriority(raw)
		if !ok {
			return nil, apperrors.NewInvalidState("unknown task priority", map[string]any{"priority": raw})
		}
		repoFilter.Priorities = append(repoFilter.Priorities, priority)
	}
	list, err := s.tasks.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// AddComment appends a comment to a task.
func (s *TaskService) AddComment(ctx context.Context, actor *domain.Worker, taskID, body string) (*domain.TaskComment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("worker required")
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.addComment(ctx, actor, task, body)
}

// ListComments lists comments of a task, oldest first.
func (s *TaskService) ListComments(ctx context.Context, taskID string) ([]domain.TaskComment, error) {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return nil, err
	}
	list, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// addComment stores the comment and lets the assignee know.
func (s *TaskService) addComment(ctx context.Context, actor *domain.Worker, task *domain.Task, body string) (*domain.TaskComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}
	comment := &domain.TaskComment{
		TaskID:   task.ID,
		AuthorID: strPtr(actor.ID),
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, s.clock, events.EventTaskCommented, task.ID, actor, events.TaskCommentedPayload{
		Title:      task.Title,
		AssigneeID: task.AssigneeID,
		Body:       body,
	})
	return comment, nil
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func (s *TaskService) ensureDepartment(ctx context.Context, id string) error {
	if _, err := s.departments.GetByID(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TaskService) ensureWorker(ctx context.Context, id string) error {
	if _, err := s.workers.GetByID(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("worker", map[string]any{"worker_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// applyEnums parses the non-empty enum strings onto task. Any valid status is accepted
// regardless of the current one.
func (s *TaskService) applyEnums(task *domain.Task, priority, status, qualification *string) error {
	if priority != nil && *priority != "" {
		p, ok := domain.ParseTaskPriority(*priority)
		if !ok {
			return apperrors.NewInvalidState("unknown task priority", map[string]any{"priority": *priority})
		}
		task.Priority = p
	}
	if status != nil && *status != "" {
		st, ok := domain.ParseTaskStatus(*status)
		if !ok {
			return apperrors.NewInvalidState("unknown task status", map[string]any{"status": *status})
		}
		task.Status = st
	}
	if qualification != nil && *qualification != "" {
		q, ok := domain.ParseQualification(*qualification)
		if !ok {
			return apperrors.NewInvalidState("unknown qualification", map[string]any{"required_qualification": *qualification})
		}
		task.RequiredQualification = q
	}
	return nil
}

// rejectBlankEnums refuses patches that send an empty priority, status or qualification.
func rejectBlankEnums(patch TaskPatch) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"priority", patch.Priority},
		{"status", patch.Status},
		{"required_qualification", patch.RequiredQualification},
	}
	for _, f := range fields {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return apperrors.NewInvalidState(f.name+" cannot be empty", map[string]any{"field": f.name})
		}
	}
	return nil
}

// normalizeDate truncates to midnight in the service location.
func (s *TaskService) normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(s.location)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return &d
}
