package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store defines the interface for capture-run persistence
type Store interface {
	BeginRun(ctx context.Context, endpoint, queueName string) (int64, error)
	EndRun(ctx context.Context, runID int64) error
	ListRecentRuns(ctx context.Context, limit int64) ([]Run, error)
	InsertMessage(ctx context.Context, msg *MessageRecord) (int64, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	ListMessagesByRun(ctx context.Context, runID, limit, offset int64) ([]Message, error)
	SearchMessages(ctx context.Context, query string, limit, offset int64) ([]Message, error)
	Close() error
}

// Run is one stored peek run.
type Run struct {
	ID        int64
	Endpoint  string
	QueueName string
	StartedAt time.Time
	EndedAt   sql.NullTime
}

// MessageRecord represents a peeked message to be inserted
type MessageRecord struct {
	RunID            int64
	SubQueue         string
	Position         int
	SequenceNumber   *int64
	MessageID        string
	Subject          string
	ContentType      string
	EnqueuedAt       time.Time
	DeadLetterReason string
	Properties       string // rendered JSON property object
	BodyText         string // rendered body
}

// Message is a stored message as read back from the database.
type Message struct {
	ID               int64
	RunID            int64
	SubQueue         string
	Position         int64
	SequenceNumber   sql.NullInt64
	MessageID        sql.NullString
	Subject          sql.NullString
	ContentType      sql.NullString
	EnqueuedAt       sql.NullTime
	DeadLetterReason sql.NullString
	Properties       sql.NullString
	BodyText         string
	CapturedAt       time.Time
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the default or custom path
func NewStore(customPath string) (*SQLiteStore, error) {
	dbPath := customPath
	if dbPath == "" {
		dataDir, err := DefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "sbpeek.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better performance
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to set pragmas: %w", err), db.Close())
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize schema: %w", err), db.Close())
	}

	return &SQLiteStore{db: db}, nil
}

// DefaultDataDir returns the application data directory following XDG spec.
func DefaultDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "sbpeek"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "sbpeek"), nil
}

func (s *SQLiteStore) BeginRun(ctx context.Context, endpoint, queueName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (endpoint, queue_name) VALUES (?, ?)`,
		endpoint, queueName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) EndRun(ctx context.Context, runID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = CURRENT_TIMESTAMP WHERE id = ?`, runID)
	return err
}

func (s *SQLiteStore) ListRecentRuns(ctx context.Context, limit int64) (_ []Run, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, queue_name, started_at, ended_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Endpoint, &r.QueueName, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *MessageRecord) (int64, error) {
	var seq sql.NullInt64
	if msg.SequenceNumber != nil {
		seq = sql.NullInt64{Int64: *msg.SequenceNumber, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (run_id, sub_queue, position, sequence_number, message_id,
		                       subject, content_type, enqueued_at, dead_letter_reason,
		                       properties, body_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.RunID, msg.SubQueue, msg.Position, seq,
		toNullString(msg.MessageID), toNullString(msg.Subject),
		toNullString(msg.ContentType), toNullTime(msg.EnqueuedAt),
		toNullString(msg.DeadLetterReason), toNullString(msg.Properties),
		msg.BodyText)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const messageColumns = `m.id, m.run_id, m.sub_queue, m.position, m.sequence_number,
       m.message_id, m.subject, m.content_type, m.enqueued_at,
       m.dead_letter_reason, m.properties, m.body_text, m.captured_at`

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id)
	var m Message
	if err := scanMessage(row, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) ListMessagesByRun(ctx context.Context, runID, limit, offset int64) ([]Message, error) {
	query := `SELECT ` + messageColumns + `
	          FROM messages m WHERE m.run_id = ?
	          ORDER BY m.id ASC LIMIT ? OFFSET ?`
	return s.scanMessages(ctx, query, runID, limit, offset)
}

func (s *SQLiteStore) SearchMessages(ctx context.Context, query string, limit, offset int64) ([]Message, error) {
	const searchQuery = `
SELECT ` + messageColumns + `
FROM messages m
JOIN messages_fts fts ON m.id = fts.rowid
WHERE messages_fts MATCH ?
ORDER BY m.captured_at DESC
LIMIT ? OFFSET ?
`
	return s.scanMessages(ctx, searchQuery, query, limit, offset)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner, m *Message) error {
	return row.Scan(
		&m.ID, &m.RunID, &m.SubQueue, &m.Position, &m.SequenceNumber,
		&m.MessageID, &m.Subject, &m.ContentType, &m.EnqueuedAt,
		&m.DeadLetterReason, &m.Properties, &m.BodyText, &m.CapturedAt,
	)
}

func (s *SQLiteStore) scanMessages(ctx context.Context, query string, args ...any) (_ []Message, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
