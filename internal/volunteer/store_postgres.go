package volunteer

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

// PostgresStore persists opportunities in the volunteer_opportunities table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const opportunityColumns = `
	id, title, COALESCE(description, ''), COALESCE(requirements, ''),
	COALESCE(location, ''), date_time, duration_hours, max_volunteers,
	current_volunteers, status, created_by, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, op Opportunity) error {
	query := `
		INSERT INTO volunteer_opportunities (id, title, description, requirements,
			location, date_time, duration_hours, max_volunteers, current_volunteers,
			status, created_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8,
			$9, $10, $11, $12, $13)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		op.ID, op.Title, op.Description, op.Requirements, op.Location, op.DateTime,
		op.DurationHours, op.MaxVolunteers, op.CurrentVolunteers, string(op.Status),
		op.CreatedBy, op.CreatedAt, op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Opportunity, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM volunteer_opportunities WHERE id = $1`, id)
	return scanOpportunity(row)
}

// Update rewrites opportunity metadata; current_volunteers is excluded.
func (s *PostgresStore) Update(ctx context.Context, op Opportunity) error {
	query := `
		UPDATE volunteer_opportunities
		SET title = $2, description = NULLIF($3, ''), requirements = NULLIF($4, ''),
		    location = NULLIF($5, ''), date_time = $6, duration_hours = $7,
		    max_volunteers = $8, status = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		op.ID, op.Title, op.Description, op.Requirements, op.Location, op.DateTime,
		op.DurationHours, op.MaxVolunteers, string(op.Status), op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`DELETE FROM volunteer_opportunities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete opportunity: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Opportunity, error) {
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

	query := `SELECT ` + opportunityColumns + ` FROM volunteer_opportunities`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []Opportunity
	for rows.Next() {
		op, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM volunteer_opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count opportunities: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindSubject(ctx context.Context, id uuid.UUID) (registry.Subject, error) {
	op, err := s.FindByID(ctx, id)
	if err != nil {
		return registry.Subject{}, err
	}
	return registry.Subject{
		ID:        op.ID,
		OwnerID:   op.CreatedBy,
		Title:     op.Title,
		Capacity:  op.MaxVolunteers,
		Occupancy: op.CurrentVolunteers,
		Open:      op.AcceptsRegistrations(),
	}, nil
}

// AdmitOne and ReleaseOne are the conditional-update pair the engine relies on.
func (s *PostgresStore) AdmitOne(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE volunteer_opportunities SET current_volunteers = current_volunteers + 1
		WHERE id = $1
		  AND (max_volunteers IS NULL OR current_volunteers < max_volunteers)
	`, id)
	if err != nil {
		return fmt.Errorf("admit volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("admit volunteer: %w", err)
	}
	if n == 0 {
		return sentinel.ErrCapacityExceeded
	}
	return nil
}

func (s *PostgresStore) ReleaseOne(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE volunteer_opportunities SET current_volunteers = current_volunteers - 1
		WHERE id = $1 AND current_volunteers > 0
	`, id)
	if err != nil {
		return fmt.Errorf("release volunteer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release volunteer: %w", err)
	}
	if n == 0 {
		return sentinel.ErrIntegrity
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (Opportunity, error) {
	var (
		op     Opportunity
		status string
	)
	err := row.Scan(&op.ID, &op.Title, &op.Description, &op.Requirements,
		&op.Location, &op.DateTime, &op.DurationHours, &op.MaxVolunteers,
		&op.CurrentVolunteers, &status, &op.CreatedBy, &op.CreatedAt, &op.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Opportunity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Opportunity{}, fmt.Errorf("scan opportunity: %w", err)
	}
	op.Status = Status(status)
	return op, nil
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
