package domain

import "time"

// TaskComment is a free-form note attached to a task.
type TaskComment struct {
	ID        string
	TaskID    string
	AuthorID  *string
	Body      string
	CreatedAt time.Time
}
