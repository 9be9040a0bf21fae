package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// PostgresRegistrations is a RegistrationStore over one registration table.
// Event and volunteer registrations share the same row shape, so the store is
// parameterized by table and subject column; both identifiers are constants
// supplied at construction, never caller input.
type PostgresRegistrations struct {
	db         *sql.DB
	table      string
	subjectCol string
}

func NewPostgresRegistrations(db *sql.DB, table, subjectCol string) *PostgresRegistrations {
	return &PostgresRegistrations{db: db, table: table, subjectCol: subjectCol}
}

const uniqueViolation = "23505"

func (s *PostgresRegistrations) Create(ctx context.Context, reg Registration) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, user_id, status, notes, registered_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, s.table, s.subjectCol)

	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		reg.ID, reg.SubjectID, reg.UserID, string(reg.Status), reg.Notes, reg.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresRegistrations) FindActive(ctx context.Context, subjectID, userID uuid.UUID) (Registration, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, user_id, status, COALESCE(notes, ''), registered_at
		FROM %s
		WHERE %s = $1 AND user_id = $2 AND status <> 'CANCELLED'
	`, s.subjectCol, s.table, s.subjectCol)

	return s.scanOne(tx.Q(ctx, s.db).QueryRowContext(ctx, query, subjectID, userID))
}

func (s *PostgresRegistrations) FindByID(ctx context.Context, id uuid.UUID) (Registration, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, user_id, status, COALESCE(notes, ''), registered_at
		FROM %s WHERE id = $1
	`, s.subjectCol, s.table)

	return s.scanOne(tx.Q(ctx, s.db).QueryRowContext(ctx, query, id))
}

func (s *PostgresRegistrations) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) (Registration, error) {
	// Cancelled rows are immutable history: the predicate makes both a
	// double-cancel and a reactivation lose with zero rows, which scanOne
	// maps to sentinel.ErrNotFound.
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, notes = COALESCE($3, notes)
		WHERE id = $1 AND status <> 'CANCELLED'
		RETURNING id, %s, user_id, status, COALESCE(notes, ''), registered_at
	`, s.table, s.subjectCol)

	return s.scanOne(tx.Q(ctx, s.db).QueryRowContext(ctx, query, id, string(status), notes))
}

func (s *PostgresRegistrations) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Registration, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, user_id, status, COALESCE(notes, ''), registered_at
		FROM %s WHERE %s = $1
		ORDER BY registered_at
	`, s.subjectCol, s.table, s.subjectCol)

	return s.list(ctx, query, subjectID)
}

func (s *PostgresRegistrations) ListByUser(ctx context.Context, userID uuid.UUID) ([]Registration, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, user_id, status, COALESCE(notes, ''), registered_at
		FROM %s WHERE user_id = $1
		ORDER BY registered_at DESC
	`, s.subjectCol, s.table)

	return s.list(ctx, query, userID)
}

func (s *PostgresRegistrations) list(ctx context.Context, query string, arg any) ([]Registration, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		var r Registration
		var status string
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.UserID, &status, &r.Notes, &r.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r.Status = Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *PostgresRegistrations) scanOne(row *sql.Row) (Registration, error) {
	var r Registration
	var status string
	err := row.Scan(&r.ID, &r.SubjectID, &r.UserID, &status, &r.Notes, &r.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Registration{}, fmt.Errorf("scan registration: %w", err)
	}
	r.Status = Status(status)
	return r, nil
}
