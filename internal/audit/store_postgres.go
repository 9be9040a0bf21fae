package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"communityhub/internal/authz"
)

// PostgresStore persists audit records in the audit_logs table. Rows are
// append-only; nothing in this store updates or deletes them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	query := `
		INSERT INTO audit_logs (id, actor_id, action, entity_kind, entity_id,
			old_values, new_values, ip_address, user_agent, client_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ActorID,
		record.Action,
		string(record.EntityKind),
		nullableID(record.EntityID),
		record.OldValues,
		record.NewValues,
		nullableText(record.IPAddress),
		nullableText(record.UserAgent),
		nullableText(record.ClientInfo),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, actor_id, action, entity_kind, entity_id,
	       old_values, new_values, ip_address, user_agent, client_info, created_at
	FROM audit_logs
`

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListByEntity(ctx context.Context, kind authz.EntityKind, entityID uuid.UUID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE entity_kind = $1 AND entity_id = $2 ORDER BY created_at DESC`,
		string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs by entity: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE actor_id = $1 ORDER BY created_at DESC`, actorID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs by actor: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			r          Record
			kind       string
			entityID   *uuid.UUID
			ip, ua, ci sql.NullString
		)
		err := rows.Scan(&r.ID, &r.ActorID, &r.Action, &kind, &entityID,
			&r.OldValues, &r.NewValues, &ip, &ua, &ci, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		r.EntityKind = authz.EntityKind(kind)
		if entityID != nil {
			r.EntityID = *entityID
		}
		r.IPAddress = ip.String
		r.UserAgent = ua.String
		r.ClientInfo = ci.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return records, nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
