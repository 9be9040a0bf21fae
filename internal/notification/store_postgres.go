package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// PostgresStore persists notifications in the notifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `
	id, user_id, message, type, related_entity_id, is_read, created_at
`

func (s *PostgresStore) Create(ctx context.Context, n Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, message, type, related_entity_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		n.ID, n.UserID, n.Message, n.Type, n.RelatedEntityID, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return s.list(ctx, `SELECT `+notificationColumns+`
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *PostgresStore) ListUnread(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return s.list(ctx, `SELECT `+notificationColumns+`
		FROM notifications WHERE user_id = $1 AND NOT is_read ORDER BY created_at DESC`, userID)
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead flips is_read for the caller's own notification; the user_id guard
// in the WHERE clause is what collapses foreign rows into NotFound.
func (s *PostgresStore) MarkRead(ctx context.Context, id, userID uuid.UUID) (Notification, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID)

	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.RelatedEntityID, &n.IsRead, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, userID uuid.UUID) ([]Notification, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.RelatedEntityID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
