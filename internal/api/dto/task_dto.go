package dto

import (
	"time"

	"github.com/opsdesk/task-service/internal/domain"
)

// CreateTaskRequest payload. Enum values are checked by the service so unknown
// strings surface as INVALID_STATE.
type CreateTaskRequest struct {
	Title                 string  `json:"title" validate:"required,max=255"`
	Description           string  `json:"description" validate:"max=10000"`
	DueDate               *string `json:"due_date"`
	Priority              string  `json:"priority"`
	Status                string  `json:"status"`
	RequiredQualification string  `json:"required_qualification"`
	DepartmentID          string  `json:"department_id" validate:"required"`
	AssigneeID            *string `json:"assignee_id"`
}

// UpdateTaskRequest payload. Absent fields stay unchanged; an empty due_date or
// assignee_id clears the value.
type UpdateTaskRequest struct {
	Title                 *string  `json:"title" validate:"omitempty,max=255"`
	Description           *string  `json:"description" validate:"omitempty,max=10000"`
	DueDate               *string  `json:"due_date"`
	Priority              *string  `json:"priority"`
	Status                *string  `json:"status"`
	AssigneeID            *string  `json:"assignee_id"`
	DepartmentID          *string  `json:"department_id"`
	RequiredQualification *string  `json:"required_qualification"`
	Comments              []string `json:"comments" validate:"omitempty,dive,required,max=5000"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// TaskResponse represents a task.
type TaskResponse struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	Description           string               `json:"description"`
	DueDate               *string              `json:"due_date"`
	Priority              domain.TaskPriority  `json:"priority"`
	Status                domain.TaskStatus    `json:"status"`
	RequiredQualification domain.Qualification `json:"required_qualification"`
	DepartmentID          string               `json:"department_id"`
	AssigneeID            *string              `json:"assignee_id"`
	CreatedByID           *string              `json:"created_by_id"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// CommentResponse represents a task comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  *string   `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
