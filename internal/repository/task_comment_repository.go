package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/task-service/internal/domain"
)

// TaskCommentRepository manages task comments.
type TaskCommentRepository interface {
	Create(ctx context.Context, comment *domain.TaskComment) error
	ListByTask(ctx context.Context, taskID string) ([]domain.TaskComment, error)
}

type taskCommentRepository struct {
	pool *pgxpool.Pool
}

// NewTaskCommentRepository builds repository.
func NewTaskCommentRepository(pool *pgxpool.Pool) TaskCommentRepository {
	return &taskCommentRepository{pool: pool}
}

func (r *taskCommentRepository) Create(ctx context.Context, comment *domain.TaskComment) error {
	const query = `
        INSERT INTO task_comments (task_id, author_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TaskID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *taskCommentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.TaskComment, error) {
	const query = `
        SELECT id, task_id, author_id, body, created_at
        FROM task_comments WHERE task_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskComment
	for rows.Next() {
		var comment domain.TaskComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
