package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// PostgresStore persists settings. The partial unique indexes on the settings
// table let ON CONFLICT target each scope independently.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const settingColumns = `
	id, user_id, setting_key, COALESCE(setting_value, ''), is_global, created_at, updated_at
`

func (st *PostgresStore) UpsertUser(ctx context.Context, s Setting) (Setting, error) {
	query := `
		INSERT INTO settings (id, user_id, setting_key, setting_value, is_global, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		ON CONFLICT (user_id, setting_key) WHERE user_id IS NOT NULL
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = EXCLUDED.updated_at
		RETURNING ` + settingColumns
	row := tx.Q(ctx, st.db).QueryRowContext(ctx, query,
		s.ID, s.UserID, s.Key, s.Value, s.CreatedAt, s.UpdatedAt)
	return scanSetting(row)
}

func (st *PostgresStore) FindUser(ctx context.Context, userID uuid.UUID, key string) (Setting, error) {
	row := tx.Q(ctx, st.db).QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE user_id = $1 AND setting_key = $2`,
		userID, key)
	return scanSetting(row)
}

func (st *PostgresStore) ListUser(ctx context.Context, userID uuid.UUID) ([]Setting, error) {
	return st.list(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE user_id = $1 ORDER BY setting_key`,
		userID)
}

func (st *PostgresStore) DeleteUser(ctx context.Context, userID uuid.UUID, key string) error {
	res, err := tx.Q(ctx, st.db).ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = $1 AND setting_key = $2`, userID, key)
	if err != nil {
		return fmt.Errorf("delete user setting: %w", err)
	}
	return requireRow(res)
}

func (st *PostgresStore) UpsertGlobal(ctx context.Context, s Setting) (Setting, error) {
	query := `
		INSERT INTO settings (id, user_id, setting_key, setting_value, is_global, created_at, updated_at)
		VALUES ($1, NULL, $2, $3, TRUE, $4, $5)
		ON CONFLICT (setting_key) WHERE is_global
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = EXCLUDED.updated_at
		RETURNING ` + settingColumns
	row := tx.Q(ctx, st.db).QueryRowContext(ctx, query,
		s.ID, s.Key, s.Value, s.CreatedAt, s.UpdatedAt)
	return scanSetting(row)
}

func (st *PostgresStore) FindGlobal(ctx context.Context, key string) (Setting, error) {
	row := tx.Q(ctx, st.db).QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE is_global AND setting_key = $1`, key)
	return scanSetting(row)
}

func (st *PostgresStore) ListGlobal(ctx context.Context) ([]Setting, error) {
	return st.list(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE is_global ORDER BY setting_key`)
}

func (st *PostgresStore) DeleteGlobal(ctx context.Context, key string) error {
	res, err := tx.Q(ctx, st.db).ExecContext(ctx,
		`DELETE FROM settings WHERE is_global AND setting_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete global setting: %w", err)
	}
	return requireRow(res)
}

func (st *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Setting, error) {
	rows, err := tx.Q(ctx, st.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (Setting, error) {
	var s Setting
	err := row.Scan(&s.ID, &s.UserID, &s.Key, &s.Value, &s.IsGlobal, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Setting{}, fmt.Errorf("scan setting: %w", err)
	}
	return s, nil
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
