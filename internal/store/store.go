// Package store persists shipped event-log records in SQLite so sessions can
// be audited and exported after the subject has left.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// ErrSessionNotFound is returned when a session id has no stored rows.
var ErrSessionNotFound = errors.New("session not found")

// Session summarizes one stream of records.
type Session struct {
	ID          uuid.UUID `json:"id"`
	SubjectID   string    `json:"subject_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	RecordCount int64     `json:"record_count"`
}

// Record is one log record as handed to the store.
type Record struct {
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
	LoggedAt    time.Time       `json:"timestamp"`
}

// StoredRecord is a Record with its storage metadata.
type StoredRecord struct {
	Record
	ID         int64     `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Seq        int64     `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
}

// Store wraps the SQLite handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens or creates the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			logged_at TEXT NOT NULL,
			received_at TEXT NOT NULL,
			UNIQUE(session_id, seq),
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_session_seq ON records(session_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}

// EnsureSession creates the session row if it does not exist yet. A non-empty
// subject fills in a previously blank subject id.
func (s *Store) EnsureSession(ctx context.Context, id uuid.UUID, subjectID string) error {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, subject_id, created_at, last_seen_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			subject_id = CASE WHEN sessions.subject_id = '' THEN excluded.subject_id ELSE sessions.subject_id END`,
		id.String(), subjectID, now, now)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// AppendRecord stores rec as the next record of the session and returns its
// sequence number. Sequence numbers start at 1 and follow arrival order.
func (s *Store) AppendRecord(ctx context.Context, sessionID uuid.UUID, rec Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx, `SELECT record_count FROM sessions WHERE id = ?`, sessionID.String()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("append record: %w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("read record count: %w", err)
	}

	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	loggedAt := rec.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}
	now := formatTime(s.now())
	seq := count + 1

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (session_id, seq, message_type, payload, logged_at, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID.String(), seq, rec.MessageType, string(payload), formatTime(loggedAt), now); err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET record_count = ?, last_seen_at = ? WHERE id = ?`,
		seq, now, sessionID.String()); err != nil {
		return 0, fmt.Errorf("update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return seq, nil
}

// ListSessions returns sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, created_at, last_seen_at, record_count
		 FROM sessions ORDER BY last_seen_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess              Session
			id, created, seen string
		)
		if err := rows.Scan(&id, &sess.SubjectID, &created, &seen, &sess.RecordCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		sess.CreatedAt = parseTime(created)
		sess.LastSeenAt = parseTime(seen)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSession returns one session summary.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	var (
		sess          Session
		created, seen string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT subject_id, created_at, last_seen_at, record_count FROM sessions WHERE id = ?`,
		id.String()).Scan(&sess.SubjectID, &created, &seen, &sess.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session: %w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.ID = id
	sess.CreatedAt = parseTime(created)
	sess.LastSeenAt = parseTime(seen)
	return sess, nil
}

// Records returns up to limit records of a session with seq > afterSeq, in
// sequence order. A non-positive limit means no limit.
func (s *Store) Records(ctx context.Context, sessionID uuid.UUID, afterSeq int64, limit int) ([]StoredRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, message_type, payload, logged_at, received_at
		 FROM records WHERE session_id = ? AND seq > ? ORDER BY seq LIMIT ?`,
		sessionID.String(), afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			r                StoredRecord
			payload          string
			logged, received string
		)
		if err := rows.Scan(&r.ID, &r.Seq, &r.MessageType, &payload, &logged, &received); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.SessionID = sessionID
		r.Payload = json.RawMessage(payload)
		r.LoggedAt = parseTime(logged)
		r.ReceivedAt = parseTime(received)
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
