package domain

import "time"

// WorkerRole enumerates organizational roles.
type WorkerRole string

const (
	WorkerRoleEmployee   WorkerRole = "EMPLOYEE"
	WorkerRoleSupervisor WorkerRole = "DEPARTMENT_SUPERVISOR"
	WorkerRoleAdmin      WorkerRole = "ADMIN"
)

// ParseWorkerRole validates a role string.
func ParseWorkerRole(v string) (WorkerRole, bool) {
	switch r := WorkerRole(v); r {
	case WorkerRoleEmployee, WorkerRoleSupervisor, WorkerRoleAdmin:
		return r, true
	}
	return "", false
}

// Qualification is the single skill tier a worker holds or a task requires.
type Qualification string

const (
	QualificationJunior Qualification = "JUNIOR"
	QualificationMid    Qualification = "MID"
	QualificationSenior Qualification = "SENIOR"
)

// ParseQualification validates a qualification string.
func ParseQualification(v string) (Qualification, bool) {
	switch q := Qualification(v); q {
	case QualificationJunior, QualificationMid, QualificationSenior:
		return q, true
	}
	return "", false
}

// Rank orders qualifications from JUNIOR (1) to SENIOR (3). Unknown values rank 0.
func (q Qualification) Rank() int {
	switch q {
	case QualificationJunior:
		return 1
	case QualificationMid:
		return 2
	case QualificationSenior:
		return 3
	}
	return 0
}

// Worker models a person who can hold tasks or supervise a department.
type Worker struct {
	ID            string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Role          WorkerRole
	DepartmentID  *string
	Qualification *Qualification
	LastActiveAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InDepartment reports whether the worker belongs to departmentID.
func (w *Worker) InDepartment(departmentID string) bool {
	return w.DepartmentID != nil && *w.DepartmentID == departmentID
}

// ManagesTasks reports whether the worker may curate tasks beyond their own.
func (w *Worker) ManagesTasks() bool {
	return w.Role == WorkerRoleAdmin || w.Role == WorkerRoleSupervisor
}
