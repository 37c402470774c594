package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id     TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	status     TEXT NOT NULL,
	cursor     TEXT NOT NULL,
	state      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists checkpoints in a single SQLite table, one row per run.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the checkpoint database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	if _, err := db.ExecContext(ctx, checkpointSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint, expected int64) (Checkpoint, error) {
	cursor, err := json.Marshal(cp.Cursor)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("encode cursor: %w", err)
	}
	state, err := json.Marshal(cp.State)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("encode state: %w", err)
	}
	next := expected + 1
	updated := cp.UpdatedAt.UnixNano()

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO checkpoints (run_id, version, status, cursor, state, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(run_id) DO NOTHING`,
			cp.RunID, next, string(cp.Status), string(cursor), string(state), updated)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE checkpoints SET version = ?, status = ?, cursor = ?, state = ?, updated_at = ?
			 WHERE run_id = ? AND version = ?`,
			next, string(cp.Status), string(cursor), string(state), updated, cp.RunID, expected)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("save checkpoint %s: %w", cp.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("save checkpoint %s: %w", cp.RunID, err)
	}
	if n == 0 {
		return Checkpoint{}, fmt.Errorf("%w: run %s changed since version %d", ErrConflict, cp.RunID, expected)
	}
	cp.Version = next
	return cp, nil
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, version, status, cursor, state, updated_at FROM checkpoints WHERE run_id = ?`, runID)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return cp, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, version, status, cursor, state, updated_at FROM checkpoints ORDER BY updated_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()
	var out []Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (Checkpoint, error) {
	var (
		cp      Checkpoint
		status  string
		cursor  string
		state   string
		updated int64
	)
	if err := row.Scan(&cp.RunID, &cp.Version, &status, &cursor, &state, &updated); err != nil {
		return Checkpoint{}, err
	}
	cp.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(cursor), &cp.Cursor); err != nil {
		return Checkpoint{}, fmt.Errorf("decode cursor of %s: %w", cp.RunID, err)
	}
	if err := json.Unmarshal([]byte(state), &cp.State); err != nil {
		return Checkpoint{}, fmt.Errorf("decode state of %s: %w", cp.RunID, err)
	}
	cp.UpdatedAt = time.Unix(0, updated).UTC()
	return cp, nil
}
