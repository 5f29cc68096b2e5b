// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

// Compile-time check to ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    model      TEXT NOT NULL,
    message    TEXT NOT NULL,
    response   TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_records_model_idx ON chat_records (model, id);

CREATE TABLE IF NOT EXISTS shared_chats (
    id         TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    created_at TEXT NOT NULL
);
`

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AppendChatRecord(ctx context.Context, model string, rec models.ChatRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_records (model, message, response, created_at) VALUES (?, ?, ?, ?)`,
		model, rec.Message, rec.Response, rec.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("database error appending chat record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListChatRecords(ctx context.Context, model string) (models.RecordsByModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, message, response, created_at FROM chat_records
		 WHERE (? = '' OR model = ?) ORDER BY id`, model, model)
	if err != nil {
		return nil, fmt.Errorf("database error listing chat records: %w", err)
	}
	defer rows.Close()

	out := models.RecordsByModel{}
	for rows.Next() {
		var m, created string
		var rec models.ChatRecord
		if err := rows.Scan(&m, &rec.Message, &rec.Response, &created); err != nil {
			return nil, fmt.Errorf("error scanning chat record: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.Timestamp = ts
		}
		out[m] = append(out[m], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat records: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveSharedChat(ctx context.Context, id string, payload []byte) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid share id %q: %w", id, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shared_chats (id, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		id, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("database error saving shared chat: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSharedChat(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM shared_chats WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching shared chat: %w", err)
	}
	return payload, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
