package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusDelayed    TaskStatus = "DELAYED"
)

// ParseTaskStatus validates a status string.
func ParseTaskStatus(v string) (TaskStatus, bool) {
	switch s := TaskStatus(v); s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusDelayed:
		return s, true
	}
	return "", false
}

// TaskPriority is stored with the task but never used to order assignment.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskPriority validates a priority string.
func ParseTaskPriority(v string) (TaskPriority, bool) {
	switch p := TaskPriority(v); p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return p, true
	}
	return "", false
}

// DateLayout is the wire and message format for due dates.
const DateLayout = "2006-01-02"

// Task is a unit of work routed to a department and, eventually, one worker.
type Task struct {
	ID                    string
	Title                 string
	Description           string
	DueDate               *time.Time
	Priority              TaskPriority
	Status                TaskStatus
	RequiredQualification Qualification
	DepartmentID          string
	AssigneeID            *string
	CreatedByID           *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ApplyDefaults fills priority, status and required qualification when unset.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.RequiredQualification == "" {
		t.RequiredQualification = QualificationJunior
	}
}

// DueDateString formats the due date or returns an empty string.
func (t *Task) DueDateString() string {
	if t.DueDate == nil {
		return ""
	}
	return t.DueDate.Format(DateLayout)
}
