package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// Notification message templates.
const (
	msgTaskAssigned  = "You have been assigned a new task: %s"
	msgTaskCreated   = "A new task has been created: %s"
	msgTaskUpdated   = "Task updated: %s"
	msgTaskDeleted   = "Task deleted: %s"
	msgTaskComment   = "New comment on task: %s - %s"
	msgWorkerCreated = "New user registered: %s"
	msgWorkerUpdated = "User updated: %s"
	msgWorkerDeleted = "User deleted: %s"
)

// NotificationService creates notifications and fans them out by role.
type NotificationService struct {
	notifications repository.NotificationRepository
	workers       repository.WorkerRepository
	directory     repository.Directory
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NotificationDependencies bundles repositories.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	WorkerRepo       repository.WorkerRepository
	Directory        repository.Directory
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		workers:       deps.WorkerRepo,
		directory:     deps.Directory,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	n.dispatcher.Subscribe(events.EventTaskUpdated, n.handleTaskUpdated)
	n.dispatcher.Subscribe(events.EventTaskDeleted, n.handleTaskDeleted)
	n.dispatcher.Subscribe(events.EventTaskCommented, n.handleTaskCommented)
	n.dispatcher.Subscribe(events.EventWorkerCreated, n.workerHandler(msgWorkerCreated))
	n.dispatcher.Subscribe(events.EventWorkerUpdated, n.workerHandler(msgWorkerUpdated))
	n.dispatcher.Subscribe(events.EventWorkerDeleted, n.workerHandler(msgWorkerDeleted))
}

// Notify persists one notification for recipientID.
func (n *NotificationService) Notify(ctx context.Context, message, recipientID string, kind domain.NotificationKind, referenceID *string) error {
	notification := &domain.Notification{
		RecipientID: recipientID,
		Message:     message,
		Kind:        kind,
		ReferenceID: referenceID,
	}
	err := n.notifications.Create(ctx, notification)
	n.metrics.RecordNotification(string(kind), err == nil)
	if err != nil {
		return fmt.Errorf("notify %s: %w", recipientID, err)
	}
	return nil
}

// NotifyDepartmentSupervisors notifies every supervisor of departmentID. A department
// without supervisors is a no-op. One failed recipient does not stop the others.
func (n *NotificationService) NotifyDepartmentSupervisors(ctx context.Context, message, departmentID string, kind domain.NotificationKind, referenceID *string) error {
	supervisors, err := n.directory.ListSupervisorsInDepartment(ctx, departmentID)
	if err != nil {
		return fmt.Errorf("list supervisors of %s: %w", departmentID, err)
	}
	return n.fanOut(ctx, supervisors, message, kind, referenceID)
}

// NotifyAdmins notifies every administrator.
func (n *NotificationService) NotifyAdmins(ctx context.Context, message string, kind domain.NotificationKind, referenceID *string) error {
	admins, err := n.directory.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	return n.fanOut(ctx, admins, message, kind, referenceID)
}

func (n *NotificationService) fanOut(ctx context.Context, recipients []domain.Worker, message string, kind domain.NotificationKind, referenceID *string) error {
	var errs []error
	for _, recipient := range recipients {
		if err := n.Notify(ctx, message, recipient.ID, kind, referenceID); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("recipient_id", recipient.ID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendNotification addresses a notification by username.
func (n *NotificationService) SendNotification(ctx context.Context, message, recipientUsername string, kind domain.NotificationKind, referenceID *string) error {
	recipient, err := n.workers.GetByUsername(ctx, recipientUsername)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("worker", map[string]any{"username": recipientUsername})
		}
		return apperrors.MapError(err)
	}
	if err := n.Notify(ctx, message, recipient.ID, kind, referenceID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetUnread lists unread notifications for username.
func (n *NotificationService) GetUnread(ctx context.Context, username string) ([]domain.Notification, error) {
	recipient, err := n.workers.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("worker", map[string]any{"username": username})
		}
		return nil, apperrors.MapError(err)
	}
	list, err := n.notifications.ListByRecipient(ctx, recipient.ID, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ListForWorker lists every notification addressed to workerID.
func (n *NotificationService) ListForWorker(ctx context.Context, workerID string) ([]domain.Notification, error) {
	list, err := n.notifications.ListByRecipient(ctx, workerID, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// MarkRead flags a notification as read. Repeated calls succeed while the row exists.
func (n *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := n.notifications.MarkRead(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkReadFor flags a notification as read after checking it belongs to recipient.
func (n *NotificationService) MarkReadFor(ctx context.Context, recipient *domain.Worker, id string) error {
	notification, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
		}
		return apperrors.MapError(err)
	}
	if recipient == nil || (notification.RecipientID != recipient.ID && recipient.Role != domain.WorkerRoleAdmin) {
		return apperrors.NewForbidden("notification belongs to another worker")
	}
	return n.MarkRead(ctx, id)
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TaskAssigned",
		zap.String("task_id", event.SubjectID),
		zap.String("assignee_id", payload.AssigneeID),
		zap.Bool("automatic", payload.Automatic))

	ref := strPtr(event.SubjectID)
	assigneeErr := n.Notify(ctx, fmt.Sprintf(msgTaskAssigned, payload.Title), payload.AssigneeID, domain.NotificationKindTask, ref)
	supervisorErr := n.NotifyDepartmentSupervisors(ctx, fmt.Sprintf(msgTaskCreated, payload.Title), payload.DepartmentID, domain.NotificationKindTask, ref)
	return errors.Join(assigneeErr, supervisorErr)
}

func (n *NotificationService) handleTaskUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TaskUpdated", zap.String("task_id", event.SubjectID), zap.Strings("changed", payload.ChangedFields))
	return n.NotifyDepartmentSupervisors(ctx, fmt.Sprintf(msgTaskUpdated, payload.Title), payload.DepartmentID, domain.NotificationKindTask, strPtr(event.SubjectID))
}

func (n *NotificationService) handleTaskDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TaskDeleted", zap.String("task_id", event.SubjectID))
	return n.NotifyDepartmentSupervisors(ctx, fmt.Sprintf(msgTaskDeleted, payload.Title), payload.DepartmentID, domain.NotificationKindTask, strPtr(event.SubjectID))
}

// handleTaskCommented tells the assignee about a new comment. Unassigned tasks have
// nobody to tell.
func (n *NotificationService) handleTaskCommented(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCommentedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.AssigneeID == nil || *payload.AssigneeID == "" {
		return nil
	}
	return n.Notify(ctx, fmt.Sprintf(msgTaskComment, payload.Title, payload.Body), *payload.AssigneeID, domain.NotificationKindTask, strPtr(event.SubjectID))
}

func (n *NotificationService) workerHandler(template string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.WorkerPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		n.logger.Info(string(event.Type), zap.String("worker_id", event.SubjectID))
		return n.NotifyAdmins(ctx, fmt.Sprintf(template, payload.Username), domain.NotificationKindUser, strPtr(event.SubjectID))
	}
}
