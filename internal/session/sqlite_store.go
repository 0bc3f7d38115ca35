package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/sitefocus/internal/sample"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a session log at dbPath.
func NewSQLiteStore(dbPath string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps inserts and trims serialized.
	db.SetMaxOpenConns(1)
	s := &sqliteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL,
  hostname TEXT NOT NULL,
  url TEXT NOT NULL,
  start_time TEXT NOT NULL,
  end_time TEXT NOT NULL,
  duration REAL NOT NULL,
  focus_score INTEGER NOT NULL,
  samples TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *sqliteStore) Append(ctx context.Context, fs FinalizedSession) error {
	samples, err := json.Marshal(fs.FocusSamples)
	if err != nil {
		return fmt.Errorf("marshal samples: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	const insert = `
INSERT INTO sessions (id, hostname, url, start_time, end_time, duration, focus_score, samples)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
	if _, err := tx.ExecContext(ctx, insert,
		fs.ID,
		fs.Hostname,
		fs.URL,
		fs.StartTime.Format(time.RFC3339Nano),
		fs.EndTime.Format(time.RFC3339Nano),
		fs.Duration,
		fs.FocusScore,
		string(samples),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	const trim = `
DELETE FROM sessions WHERE seq NOT IN (
  SELECT seq FROM sessions ORDER BY seq DESC LIMIT ?
);
`
	if _, err := tx.ExecContext(ctx, trim, MaxStoredSessions); err != nil {
		return fmt.Errorf("trim sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context) ([]FinalizedSession, error) {
	const query = `
SELECT id, hostname, url, start_time, end_time, duration, focus_score, samples
FROM sessions ORDER BY seq ASC;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []FinalizedSession{}
	for rows.Next() {
		var (
			fs         FinalizedSession
			start, end string
			samples    string
		)
		if err := rows.Scan(&fs.ID, &fs.Hostname, &fs.URL, &start, &end, &fs.Duration, &fs.FocusScore, &samples); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if fs.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("parse start_time: %w", err)
		}
		if fs.EndTime, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
		fs.FocusSamples = []sample.Sample{}
		if err := json.Unmarshal([]byte(samples), &fs.FocusSamples); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *sqliteStore) Close() error { return s.db.Close() }
