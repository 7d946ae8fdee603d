package domain

import "time"

// Department groups workers and the tasks routed to them.
type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// MemberCount is filled on reads only.
	MemberCount int
}
