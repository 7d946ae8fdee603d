package domain

import "time"

// NotificationKind tells the client what ReferenceID points at.
type NotificationKind string

const (
	NotificationKindTask  NotificationKind = "TASK"
	NotificationKindUser  NotificationKind = "USER"
	NotificationKindOther NotificationKind = "OTHER"
)

// ParseNotificationKind validates a kind string.
func ParseNotificationKind(v string) (NotificationKind, bool) {
	switch k := NotificationKind(v); k {
	case NotificationKindTask, NotificationKindUser, NotificationKindOther:
		return k, true
	}
	return "", false
}

// Notification is an in-app message addressed to one worker.
type Notification struct {
	ID          string
	RecipientID string
	Message     string
	Read        bool
	Kind        NotificationKind
	ReferenceID *string
	CreatedAt   time.Time
}
