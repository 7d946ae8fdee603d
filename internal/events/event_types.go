package events

import (
	"time"

	"github.com/opsdesk/task-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskAssigned  EventType = "task_assigned"
	EventTaskUpdated   EventType = "task_updated"
	EventTaskDeleted   EventType = "task_deleted"
	EventTaskCommented EventType = "task_commented"
	EventWorkerCreated EventType = "worker_created"
	EventWorkerUpdated EventType = "worker_updated"
	EventWorkerDeleted EventType = "worker_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskAssignedPayload is published after an assignee is committed.
type TaskAssignedPayload struct {
	Title        string `json:"title"`
	DepartmentID string `json:"department_id"`
	AssigneeID   string `json:"assignee_id"`
	Automatic    bool   `json:"automatic"`
}

// TaskUpdatedPayload is published after a patch is persisted.
type TaskUpdatedPayload struct {
	Title         string            `json:"title"`
	DepartmentID  string            `json:"department_id"`
	OldStatus     domain.TaskStatus `json:"old_status"`
	NewStatus     domain.TaskStatus `json:"new_status"`
	ChangedFields []string          `json:"changed_fields"`
}

// TaskDeletedPayload is published after a task row is removed.
type TaskDeletedPayload struct {
	Title        string `json:"title"`
	DepartmentID string `json:"department_id"`
}

// TaskCommentedPayload is published after a comment row is stored.
type TaskCommentedPayload struct {
	Title      string  `json:"title"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Body       string  `json:"body"`
}

// WorkerPayload carries the worker identity for admin notifications.
type WorkerPayload struct {
	Username string            `json:"username"`
	Role     domain.WorkerRole `json:"role"`
}
