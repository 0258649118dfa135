// Package tape keeps recorded sessions ("tapes") in a SQLite database so they
// can be listed, searched and turned back into playback scripts.
package tape

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "tapes.db"

// Session status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("tape session not found")

// Session is one recording or playback run.
type Session struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	StartTime  int64             `json:"startTime"` // unix ms
	EndTime    int64             `json:"endTime,omitempty"`
	Status     string            `json:"status"`
	EventCount int               `json:"eventCount"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// StoredRecord is a record as kept in a session, in recording order.
type StoredRecord struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"sessionId"`
	Seq        int                `json:"seq"`
	Type       string             `json:"type,omitempty"`
	ObjectPath string             `json:"objectPath,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`
	Node       *record.RecordNode `json:"record"`
}

// ========================================
// TapeStore - SQLite tape storage
// ========================================

type TapeStore struct {
	db     *sql.DB
	dbPath string

	stmtInsertSession *sql.Stmt
	stmtEndSession    *sql.Stmt
	stmtBumpCount     *sql.Stmt
	stmtInsertEvent   *sql.Stmt
}

const schemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active',
    event_count INTEGER DEFAULT 0,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time DESC);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    type TEXT,
    object_path TEXT,
    timestamp TEXT,
    data TEXT NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_session_seq ON events(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(session_id, type);
`

// NewTapeStore opens (creating when needed) the tape database in dataDir.
func NewTapeStore(dataDir string) (*TapeStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; the sequence numbering in AppendRecord
	// relies on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &TapeStore{db: db, dbPath: dbPath}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logging.LogDebug("tape").Str("path", dbPath).Msg("Tape store opened")
	return store, nil
}

func (s *TapeStore) prepareStatements() error {
	var err error

	s.stmtInsertSession, err = s.db.Prepare(`
		INSERT INTO sessions (id, name, start_time, status, event_count, metadata)
		VALUES (?, ?, ?, ?, 0, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert session: %w", err)
	}

	s.stmtEndSession, err = s.db.Prepare(`
		UPDATE sessions SET end_time = ?, status = ? WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare end session: %w", err)
	}

	s.stmtBumpCount, err = s.db.Prepare(`
		UPDATE sessions SET event_count = event_count + 1 WHERE id = ?
		RETURNING event_count
	`)
	if err != nil {
		return fmt.Errorf("prepare bump count: %w", err)
	}

	s.stmtInsertEvent, err = s.db.Prepare(`
		INSERT INTO events (id, session_id, seq, name, type, object_path, timestamp, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert event: %w", err)
	}

	return nil
}

// Path returns the database file path.
func (s *TapeStore) Path() string { return s.dbPath }

// Close closes the statements and the database.
func (s *TapeStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtInsertSession, s.stmtEndSession, s.stmtBumpCount, s.stmtInsertEvent} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ========================================
// Session operations
// ========================================

// CreateSession starts a new active session.
func (s *TapeStore) CreateSession(name string, metadata map[string]string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		StartTime: time.Now().UnixMilli(),
		Status:    StatusActive,
		Metadata:  metadata,
	}

	var meta sql.NullString
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode session metadata: %w", err)
		}
		meta = sql.NullString{String: string(data), Valid: true}
	}

	if _, err := s.stmtInsertSession.Exec(session.ID, session.Name, session.StartTime, session.Status, meta); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	logging.LogInfo("tape").Str("session", session.ID).Str("name", name).Msg("Session created")
	return session, nil
}

// EndSession closes a session with the given status.
func (s *TapeStore) EndSession(id, status string) error {
	res, err := s.stmtEndSession.Exec(time.Now().UnixMilli(), status, id)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// GetSession returns one session or ErrSessionNotFound.
func (s *TapeStore) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, name, start_time, end_time, status, event_count, metadata
		FROM sessions WHERE id = ?
	`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	return session, err
}

// ListSessions returns the newest sessions first. A limit <= 0 returns all.
func (s *TapeStore) ListSessions(limit int) ([]Session, error) {
	query := `
		SELECT id, name, start_time, end_time, status, event_count, metadata
		FROM sessions
		ORDER BY start_time DESC, rowid DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its records.
func (s *TapeStore) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var session Session
	var metadata sql.NullString

	err := row.Scan(
		&session.ID, &session.Name, &session.StartTime, &session.EndTime,
		&session.Status, &session.EventCount, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if metadata.Valid && metadata.String != "" {
		json.Unmarshal([]byte(metadata.String), &session.Metadata)
	}
	return &session, nil
}

// ========================================
// Record operations
// ========================================

// AppendRecord stores node as the next record of the session and returns its
// sequence number, starting at 1.
func (s *TapeStore) AppendRecord(sessionID string, node *record.RecordNode) (int, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.Stmt(s.stmtBumpCount).QueryRow(sessionID).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("append record to %s: %w", sessionID, ErrSessionNotFound)
		}
		return 0, fmt.Errorf("append record to %s: %w", sessionID, err)
	}

	_, err = tx.Stmt(s.stmtInsertEvent).Exec(
		uuid.New().String(), sessionID, seq, node.Name(),
		nullString(node.Attribute(record.AttrType)),
		nullString(node.Attribute(record.AttrObjectPath)),
		nullString(node.Attribute(record.AttrTimestamp)),
		string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record %d: %w", seq, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// Records returns every record of a session in order.
func (s *TapeStore) Records(sessionID string) ([]StoredRecord, error) {
	return s.queryRecords(`WHERE session_id = ?`, sessionID)
}

// RecordsOfType returns the records of a session with the given type attribute.
func (s *TapeStore) RecordsOfType(sessionID, eventType string) ([]StoredRecord, error) {
	return s.queryRecords(`WHERE session_id = ? AND type = ?`, sessionID, eventType)
}

func (s *TapeStore) queryRecords(where string, args ...any) ([]StoredRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, seq, type, object_path, timestamp, data
		FROM events `+where+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		rec, raw, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if err := decodeNode(rec, raw); err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRecord(rows scanner) (*StoredRecord, string, error) {
	var rec StoredRecord
	var typ, path, ts sql.NullString
	var raw string
	if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &typ, &path, &ts, &raw); err != nil {
		return nil, "", err
	}
	rec.Type = typ.String
	rec.ObjectPath = path.String
	rec.Timestamp = ts.String
	return &rec, raw, nil
}

func decodeNode(rec *StoredRecord, raw string) error {
	node := new(record.RecordNode)
	if err := json.Unmarshal([]byte(raw), node); err != nil {
		return fmt.Errorf("decode record %s#%d: %w", rec.SessionID, rec.Seq, err)
	}
	rec.Node = node
	return nil
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
