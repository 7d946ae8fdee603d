package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/task-service/internal/domain"
)

// DepartmentRepository manages departments and resolves their members.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
	// Members returns the workers of a department ordered by username.
	Members(ctx context.Context, departmentID string) ([]domain.Worker, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

// departmentSelect carries a live member count so listings need no second query.
const departmentSelect = `
        SELECT d.id, d.name, d.description, d.created_at, d.updated_at,
               (SELECT COUNT(*) FROM workers w WHERE w.department_id = d.id)
        FROM departments d`

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	dept.MemberCount = 0
	return r.pool.QueryRow(ctx, query, dept.Name, dept.Description).
		Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, dept.Name, dept.Description, dept.ID).Scan(&dept.UpdatedAt)
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	return scanDepartment(r.pool.QueryRow(ctx, departmentSelect+` WHERE d.id=$1`, id))
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.pool.Query(ctx, departmentSelect+` ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Department, error) {
		dept, err := scanDepartment(row)
		if err != nil {
			return domain.Department{}, err
		}
		return *dept, nil
	})
}

func (r *departmentRepository) Members(ctx context.Context, departmentID string) ([]domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE department_id=$1 ORDER BY username`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkers(rows)
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var dept domain.Department
	if err := row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Description,
		&dept.CreatedAt,
		&dept.UpdatedAt,
		&dept.MemberCount,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}
