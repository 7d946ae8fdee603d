package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/task-service/internal/domain"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]domain.Notification, error)
	DeleteByRecipient(ctx context.Context, recipientID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, message, read, kind, reference_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.RecipientID,
		n.Message,
		n.Read,
		n.Kind,
		n.ReferenceID,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
        SELECT id, recipient_id, message, read, kind, reference_id, created_at
        FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.RecipientID,
		&n.Message,
		&n.Read,
		&n.Kind,
		&n.ReferenceID,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead is idempotent: re-marking an already read row still affects it.
func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]domain.Notification, error) {
	query := `
        SELECT id, recipient_id, message, read, kind, reference_id, created_at
        FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND read=FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.Read, &n.Kind, &n.ReferenceID, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) DeleteByRecipient(ctx context.Context, recipientID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE recipient_id=$1`, recipientID)
	return err
}
