package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/task-service/internal/domain"
)

// WorkerRepository handles persistence for workers.
type WorkerRepository interface {
	Create(ctx context.Context, worker *domain.Worker) error
	Update(ctx context.Context, worker *domain.Worker) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
	GetByUsername(ctx context.Context, username string) (*domain.Worker, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Worker, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter WorkerFilter) ([]domain.Worker, error)
}

// WorkerFilter defines query params for worker listing.
type WorkerFilter struct {
	Role         *domain.WorkerRole
	DepartmentID *string
	Limit        int
	Offset       int
}

type workerRepository struct {
	pool *pgxpool.Pool
}

// NewWorkerRepository instantiates the repository.
func NewWorkerRepository(pool *pgxpool.Pool) WorkerRepository {
	return &workerRepository{pool: pool}
}

const workerColumns = `id, username, email, first_name, last_name, password_hash, role, department_id,
               qualification, last_active_at, created_at, updated_at`

func (r *workerRepository) Create(ctx context.Context, worker *domain.Worker) error {
	const query = `
        INSERT INTO workers (username, email, first_name, last_name, password_hash, role, department_id, qualification, last_active_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		worker.Username,
		worker.Email,
		worker.FirstName,
		worker.LastName,
		worker.PasswordHash,
		worker.Role,
		worker.DepartmentID,
		worker.Qualification,
		worker.LastActiveAt,
	).Scan(&worker.ID, &worker.CreatedAt, &worker.UpdatedAt)
}

func (r *workerRepository) Update(ctx context.Context, worker *domain.Worker) error {
	const query = `
        UPDATE workers
        SET username=$1, email=$2, first_name=$3, last_name=$4, password_hash=$5, role=$6,
            department_id=$7, qualification=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		worker.Username,
		worker.Email,
		worker.FirstName,
		worker.LastName,
		worker.PasswordHash,
		worker.Role,
		worker.DepartmentID,
		worker.Qualification,
		worker.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM workers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workerRepository) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id=$1`
	return scanWorker(r.pool.QueryRow(ctx, query, id))
}

func (r *workerRepository) GetByUsername(ctx context.Context, username string) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE username=$1`
	return scanWorker(r.pool.QueryRow(ctx, query, username))
}

func (r *workerRepository) GetByEmail(ctx context.Context, email string) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE lower(email)=lower($1)`
	return scanWorker(r.pool.QueryRow(ctx, query, email))
}

func (r *workerRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE workers SET last_active_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workerRepository) List(ctx context.Context, filter WorkerFilter) ([]domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY id"
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkers(rows)
}

func scanWorker(row pgx.Row) (*domain.Worker, error) {
	var w domain.Worker
	if err := row.Scan(
		&w.ID,
		&w.Username,
		&w.Email,
		&w.FirstName,
		&w.LastName,
		&w.PasswordHash,
		&w.Role,
		&w.DepartmentID,
		&w.Qualification,
		&w.LastActiveAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWorkers(rows pgx.Rows) ([]domain.Worker, error) {
	var result []domain.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}
