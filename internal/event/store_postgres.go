package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"communityhub/internal/registry"
	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// PostgresStore persists events in the events table. All statements run
// through tx.Q so they join an ambient transaction when the registration
// engine opens one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `
	id, title, COALESCE(description, ''), event_date, end_date,
	COALESCE(location, ''), max_participants, current_participants, status,
	COALESCE(image_url, ''), registration_required, created_by, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, ev Event) error {
	query := `
		INSERT INTO events (id, title, description, event_date, end_date, location,
			max_participants, current_participants, status, image_url,
			registration_required, created_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9,
			NULLIF($10, ''), $11, $12, $13, $14)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		ev.ID, ev.Title, ev.Description, ev.EventDate, ev.EndDate, ev.Location,
		ev.MaxParticipants, ev.CurrentParticipants, string(ev.Status), ev.ImageURL,
		ev.RegistrationRequired, ev.CreatedBy, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Event, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

// Update rewrites event metadata. current_participants is deliberately
// excluded: only AdmitOne and ReleaseOne touch it.
func (s *PostgresStore) Update(ctx context.Context, ev Event) error {
	query := `
		UPDATE events
		SET title = $2, description = NULLIF($3, ''), event_date = $4, end_date = $5,
		    location = NULLIF($6, ''), max_participants = $7, status = $8,
		    image_url = NULLIF($9, ''), registration_required = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		ev.ID, ev.Title, ev.Description, ev.EventDate, ev.EndDate, ev.Location,
		ev.MaxParticipants, string(ev.Status), ev.ImageURL,
		ev.RegistrationRequired, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Title != "" {
		args = append(args, "%"+filter.Title+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY event_date"

	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindSubject(ctx context.Context, id uuid.UUID) (registry.Subject, error) {
	ev, err := s.FindByID(ctx, id)
	if err != nil {
		return registry.Subject{}, err
	}
	return registry.Subject{
		ID:        ev.ID,
		OwnerID:   ev.CreatedBy,
		Title:     ev.Title,
		Capacity:  ev.MaxParticipants,
		Occupancy: ev.CurrentParticipants,
		Open:      ev.AcceptsRegistrations(),
	}, nil
}

// AdmitOne increments the participant counter only while a slot remains; the
// WHERE clause is the capacity check, so racing transactions serialize on the
// row and at most capacity registrations ever commit.
func (s *PostgresStore) AdmitOne(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE events SET current_participants = current_participants + 1
		WHERE id = $1
		  AND (max_participants IS NULL OR current_participants < max_participants)
	`, id)
	if err != nil {
		return fmt.Errorf("admit participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("admit participant: %w", err)
	}
	if n == 0 {
		return sentinel.ErrCapacityExceeded
	}
	return nil
}

// ReleaseOne decrements with a floor guard; zero rows means the counter is
// already at zero and disagrees with the registration set.
func (s *PostgresStore) ReleaseOne(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE events SET current_participants = current_participants - 1
		WHERE id = $1 AND current_participants > 0
	`, id)
	if err != nil {
		return fmt.Errorf("release participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release participant: %w", err)
	}
	if n == 0 {
		return sentinel.ErrIntegrity
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		ev     Event
		status string
	)
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.EventDate, &ev.EndDate,
		&ev.Location, &ev.MaxParticipants, &ev.CurrentParticipants, &status,
		&ev.ImageURL, &ev.RegistrationRequired, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Status = Status(status)
	return ev, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
