package dto

import (
	"time"

	"github.com/opsdesk/task-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains token info.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateWorkerRequest payload.
type CreateWorkerRequest struct {
	Username      string  `json:"username" validate:"required,max=100"`
	Email         string  `json:"email" validate:"omitempty,email"`
	FirstName     string  `json:"first_name" validate:"max=100"`
	LastName      string  `json:"last_name" validate:"max=100"`
	Password      string  `json:"password" validate:"required,min=8"`
	Role          string  `json:"role"`
	DepartmentID  *string `json:"department_id"`
	Qualification *string `json:"qualification"`
}

// UpdateWorkerRequest payload.
type UpdateWorkerRequest struct {
	Username      *string `json:"username" validate:"omitempty,max=100"`
	Email         *string `json:"email" validate:"omitempty,email"`
	FirstName     *string `json:"first_name" validate:"omitempty,max=100"`
	LastName      *string `json:"last_name" validate:"omitempty,max=100"`
	Password      *string `json:"password" validate:"omitempty,min=8"`
	Role          *string `json:"role"`
	DepartmentID  *string `json:"department_id"`
	Qualification *string `json:"qualification"`
}

// UpdateProfileRequest payload for PUT /api/me.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// WorkerResponse represents a worker. The password hash never leaves the service.
type WorkerResponse struct {
	ID            string                `json:"id"`
	Username      string                `json:"username"`
	Email         string                `json:"email"`
	FirstName     string                `json:"first_name"`
	LastName      string                `json:"last_name"`
	Role          domain.WorkerRole     `json:"role"`
	DepartmentID  *string               `json:"department_id"`
	Qualification *domain.Qualification `json:"qualification"`
	LastActiveAt  *time.Time            `json:"last_active_at"`
	CreatedAt     time.Time             `json:"created_at"`
}

// DepartmentRequest payload.
type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateDepartmentRequest payload.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=150"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// DepartmentResponse represents a department.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
