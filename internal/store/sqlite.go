package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite stores sessions in a SQLite database, one row per session with the
// snapshot encoded as JSON.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and migrates) the database at dbPath. ":memory:" gives a
// private in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	if dbPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		job_role TEXT NOT NULL,
		experience_years INTEGER NOT NULL,
		current_index INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_interview_sessions_expires_at
		ON interview_sessions(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a session.
func (s *SQLite) Create(ctx context.Context, sess model.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// An expired row under the same id is dead; let the new session replace it.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM interview_sessions WHERE id = ? AND expires_at > 0 AND expires_at < ?`,
		sess.ID, s.now().UnixNano(),
	)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interview_sessions (id, job_role, experience_years, current_index, state, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.JobRole, sess.ExperienceYears, sess.CurrentIndex, string(state),
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(), unixNano(sess.ExpiresAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return model.ErrSessionExists
	}
	return err
}

// Get returns a session by ID.
func (s *SQLite) Get(ctx context.Context, id string) (model.Session, error) {
	var state string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state, expires_at FROM interview_sessions WHERE id = ?`, id,
	).Scan(&state, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if expiresAt > 0 && s.now().UnixNano() > expiresAt {
		return model.Session{}, model.ErrSessionNotFound
	}
	return decodeSession(state)
}

// Update replaces the stored snapshot.
func (s *SQLite) Update(ctx context.Context, sess model.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE interview_sessions
		 SET current_index = ?, state = ?, updated_at = ?, expires_at = ?
		 WHERE id = ? AND (expires_at = 0 OR expires_at >= ?)`,
		sess.CurrentIndex, string(state), sess.UpdatedAt.UnixNano(), unixNano(sess.ExpiresAt),
		sess.ID, s.now().UnixNano(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// List returns all live sessions ordered by creation time.
func (s *SQLite) List(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM interview_sessions
		 WHERE expires_at = 0 OR expires_at >= ?
		 ORDER BY created_at, id`, s.now().UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		sess, err := decodeSession(state)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CleanupExpired removes all expired sessions.
func (s *SQLite) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM interview_sessions WHERE expires_at > 0 AND expires_at < ?`, s.now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func decodeSession(state string) (model.Session, error) {
	var sess model.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return model.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
