package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, title, content, link, read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkRead flips the read flag; scoped to the owner so a user cannot touch
// another user's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2
	`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) InsertMany(ctx context.Context, items []domain.Notification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, n := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO notifications (user_id, type, title, content, link)
			VALUES ($1, $2, $3, $4, $5)
		`, n.UserID, n.Type, n.Title, n.Content, n.Link); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
