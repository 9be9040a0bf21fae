package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
	"communityhub/pkg/platform/tx"
)

// PostgresStore persists document metadata.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `
	id, title, COALESCE(description, ''), category, access_level,
	COALESCE(file_type, ''), COALESCE(file_size, 0), COALESCE(file_name, ''),
	download_count, uploaded_by, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, d Document) error {
	query := `
		INSERT INTO documents (id, title, description, category, access_level,
			file_type, file_size, file_name, download_count, uploaded_by,
			created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.Title, d.Description, d.Category, d.AccessLevel,
		d.FileType, d.FileSize, d.FileName, d.DownloadCount, d.UploadedBy,
		d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Document, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (s *PostgresStore) Update(ctx context.Context, d Document) error {
	query := `
		UPDATE documents
		SET title = $2, description = NULLIF($3, ''), category = $4,
		    access_level = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.Title, d.Description, d.Category, d.AccessLevel, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Document, error) {
	if len(filter.Levels) == 0 {
		return nil, nil
	}

	levels := make([]string, 0, len(filter.Levels))
	args := []any{}
	for _, l := range filter.Levels {
		args = append(args, string(l))
		levels = append(levels, fmt.Sprintf("$%d", len(args)))
	}
	conds := []string{"access_level IN (" + strings.Join(levels, ", ") + ")"}

	if filter.Title != "" {
		args = append(args, "%"+filter.Title+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category ILIKE $%d", len(args)))
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) RecordDownload(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE documents SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Category, &d.AccessLevel,
		&d.FileType, &d.FileSize, &d.FileName, &d.DownloadCount, &d.UploadedBy,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	return d, nil
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
