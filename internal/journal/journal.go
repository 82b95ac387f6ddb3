// Package journal records the operations a management server performed on
// the registry (writes, executes, creates and deletes) in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so that created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Entry is one journal row.
type Entry struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	Operation string    `json:"operation"`
	Path      string    `json:"path"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter selects entries for List. Empty fields match everything.
type Filter struct {
	Operation string
	Path      string // exact path, or a prefix ending in "/"
	Outcome   string
	Limit     int // default 50, max 200
	Offset    int
}

// ListResult is a page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository is the journal store.
type Repository interface {
	Record(ctx context.Context, operation, path, outcome, detail string) error
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the operation_journal table.
type SQLiteRepository struct {
	db       *sql.DB
	endpoint string
	now      func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository that stamps entries with
// endpoint.
func NewSQLiteRepository(db *sql.DB, endpoint string) *SQLiteRepository {
	return &SQLiteRepository{db: db, endpoint: endpoint, now: time.Now}
}

// Record stores one operation outcome.
func (r *SQLiteRepository) Record(ctx context.Context, operation, path, outcome, detail string) error {
	return r.Create(ctx, &Entry{Operation: operation, Path: path, Outcome: outcome, Detail: detail})
}

// Create inserts e, filling in ID, Endpoint and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "jnl-" + uuid.NewString()[:8]
	}
	if e.Endpoint == "" {
		e.Endpoint = r.endpoint
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operation_journal (id, endpoint, operation, path, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Endpoint, e.Operation, e.Path, e.Outcome,
		nullableString(e.Detail), e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)
	filter.Offset = max(filter.Offset, 0)

	var conditions []string
	var args []any
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if p := filter.Path; p != "" {
		if strings.HasSuffix(p, "/") {
			conditions = append(conditions, "substr(path, 1, ?) = ?")
			args = append(args, len(p), p)
		} else {
			conditions = append(conditions, "path = ?")
			args = append(args, p)
		}
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM operation_journal " + where //nolint:gosec // WHERE holds placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, endpoint, operation, path, outcome, detail, created_at FROM operation_journal " + //nolint:gosec // WHERE holds placeholders only
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Endpoint, &e.Operation, &e.Path, &e.Outcome, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Detail = detail.String
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Prune deletes entries older than before and returns how many went.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM operation_journal WHERE created_at < ?", before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return n, nil
}
