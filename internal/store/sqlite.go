package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	tier        TEXT NOT NULL,
	progress    INTEGER NOT NULL DEFAULT 0,
	context     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// SQLiteStore keeps each context as a JSON blob alongside its tier and
// progress so sessions can be listed without decoding.
type SQLiteStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

type sessionRow struct {
	ID        string `db:"session_id"`
	Tier      string `db:"tier"`
	Progress  int    `db:"progress"`
	Context   string `db:"context"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// SessionSummary is one row of List.
type SessionSummary struct {
	ID        string    `json:"id"`
	Tier      string    `json:"tier"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, c assessment.Context) (string, error) {
	c = ensureID(c)
	body, err := encode(c)
	if err != nil {
		return "", err
	}
	now := s.clock().UTC().Format(time.RFC3339Nano)
	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO sessions (session_id, tier, progress, context, created_at, updated_at)
VALUES (:session_id, :tier, :progress, :context, :created_at, :updated_at)
ON CONFLICT(session_id) DO UPDATE SET
	tier = excluded.tier,
	progress = excluded.progress,
	context = excluded.context,
	updated_at = excluded.updated_at`, sessionRow{
		ID:        c.ID,
		Tier:      c.CurrentTier.Label(),
		Progress:  c.ProgressPercentage,
		Context:   string(body),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("save session %s: %w", c.ID, err)
	}
	return c.ID, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (assessment.Context, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, "SELECT session_id, tier, progress, context, created_at, updated_at FROM sessions WHERE session_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Context{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return assessment.Context{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return decode([]byte(row.Context))
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns the most recently updated sessions first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT session_id, tier, progress, context, created_at, updated_at FROM sessions ORDER BY updated_at DESC, session_id LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]SessionSummary, 0, len(rows))
	for _, r := range rows {
		updated, _ := time.Parse(time.RFC3339Nano, r.UpdatedAt)
		out = append(out, SessionSummary{ID: r.ID, Tier: r.Tier, Progress: r.Progress, UpdatedAt: updated})
	}
	return out, nil
}
