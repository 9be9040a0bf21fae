package discussion

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

// PostgresStore persists threads and replies.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const discussionColumns = `
	id, title, content, COALESCE(category, ''), is_pinned, is_locked,
	view_count, reply_count, created_by, created_at, updated_at
`

const replyColumns = `
	id, discussion_id, parent_reply_id, content, created_by, created_at, updated_at
`

func (s *PostgresStore) CreateDiscussion(ctx context.Context, d Discussion) error {
	query := `
		INSERT INTO discussions (id, title, content, category, is_pinned, is_locked,
			view_count, reply_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.Title, d.Content, d.Category, d.IsPinned, d.IsLocked,
		d.ViewCount, d.ReplyCount, d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert discussion: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDiscussion(ctx context.Context, id uuid.UUID) (Discussion, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+discussionColumns+` FROM discussions WHERE id = $1`, id)
	return scanDiscussion(row)
}

// FindAndView increments the view counter and returns the updated row in one
// statement, so concurrent readers never lose counts.
func (s *PostgresStore) FindAndView(ctx context.Context, id uuid.UUID) (Discussion, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `
		UPDATE discussions SET view_count = view_count + 1
		WHERE id = $1
		RETURNING `+discussionColumns, id)
	return scanDiscussion(row)
}

func (s *PostgresStore) UpdateDiscussion(ctx context.Context, d Discussion) error {
	query := `
		UPDATE discussions
		SET title = $2, content = $3, category = NULLIF($4, ''),
		    is_pinned = $5, is_locked = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.Title, d.Content, d.Category, d.IsPinned, d.IsLocked, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update discussion: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteDiscussion(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM discussions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discussion: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListDiscussions(ctx context.Context, filter Filter) ([]Discussion, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Title != "" {
		args = append(args, "%"+filter.Title+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category ILIKE $%d", len(args)))
	}

	query := `SELECT ` + discussionColumns + ` FROM discussions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY is_pinned DESC, created_at DESC"

	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query discussions: %w", err)
	}
	defer rows.Close()

	var out []Discussion
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discussions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountDiscussions(ctx context.Context) (int, error) {
	var n int
	if err := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM discussions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count discussions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CreateReply(ctx context.Context, r Reply) error {
	if r.ParentReplyID != nil {
		var parentDiscussion uuid.UUID
		err := tx.Q(ctx, s.db).QueryRowContext(ctx,
			`SELECT discussion_id FROM discussion_replies WHERE id = $1`, r.ParentReplyID).
			Scan(&parentDiscussion)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && parentDiscussion != r.DiscussionID) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check parent reply: %w", err)
		}
	}

	query := `
		INSERT INTO discussion_replies (id, discussion_id, parent_reply_id, content,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, query,
		r.ID, r.DiscussionID, r.ParentReplyID, r.Content, r.CreatedBy, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}

	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE discussions SET reply_count = reply_count + 1 WHERE id = $1`, r.DiscussionID)
	if err != nil {
		return fmt.Errorf("bump reply count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump reply count: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindReply(ctx context.Context, id uuid.UUID) (Reply, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+replyColumns+` FROM discussion_replies WHERE id = $1`, id)
	return scanReply(row)
}

func (s *PostgresStore) UpdateReply(ctx context.Context, r Reply) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE discussion_replies SET content = $2, updated_at = $3 WHERE id = $1`,
		r.ID, r.Content, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reply: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteReply(ctx context.Context, id uuid.UUID) error {
	var discussionID uuid.UUID
	err := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`DELETE FROM discussion_replies WHERE id = $1 RETURNING discussion_id`, id).
		Scan(&discussionID)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}

	_, err = tx.Q(ctx, s.db).ExecContext(ctx,
		`UPDATE discussions SET reply_count = reply_count - 1 WHERE id = $1 AND reply_count > 0`,
		discussionID)
	if err != nil {
		return fmt.Errorf("drop reply count: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReplies(ctx context.Context, discussionID uuid.UUID) ([]Reply, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx,
		`SELECT `+replyColumns+` FROM discussion_replies WHERE discussion_id = $1 ORDER BY created_at`,
		discussionID)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer rows.Close()

	var out []Reply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscussion(row rowScanner) (Discussion, error) {
	var d Discussion
	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Category, &d.IsPinned, &d.IsLocked,
		&d.ViewCount, &d.ReplyCount, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Discussion{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Discussion{}, fmt.Errorf("scan discussion: %w", err)
	}
	return d, nil
}

func scanReply(row rowScanner) (Reply, error) {
	var r Reply
	err := row.Scan(&r.ID, &r.DiscussionID, &r.ParentReplyID, &r.Content,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Reply{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Reply{}, fmt.Errorf("scan reply: %w", err)
	}
	return r, nil
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
