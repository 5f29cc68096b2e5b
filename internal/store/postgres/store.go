package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_records (
    id         BIGSERIAL PRIMARY KEY,
    model      TEXT        NOT NULL,
    message    TEXT        NOT NULL,
    response   TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_records_model_idx ON chat_records (model, id);

CREATE TABLE IF NOT EXISTS shared_chats (
    id         UUID        PRIMARY KEY,
    payload    BYTEA       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the tables used by the store if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error creating schema: %w", err)
	}
	return nil
}

const appendChatRecord = `-- name: AppendChatRecord :exec
INSERT INTO chat_records (model, message, response, created_at)
VALUES ($1, $2, $3, $4);
`

// AppendChatRecord inserts one record for model.
func (s *PostgresStore) AppendChatRecord(ctx context.Context, model string, rec models.ChatRecord) error {
	_, err := s.db.Exec(ctx, appendChatRecord, model, rec.Message, rec.Response, rec.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			slog.Error("[PostgresStore] AppendChatRecord: PostgreSQL error", "model", model, "code", pgErr.Code, "message", pgErr.Message)
		}
		return fmt.Errorf("database error appending chat record: %w", err)
	}
	return nil
}

const listChatRecords = `-- name: ListChatRecords :many
SELECT model, message, response, created_at
FROM chat_records
WHERE ($1 = '' OR model = $1)
ORDER BY id;
`

// ListChatRecords returns records grouped by model in insertion order.
func (s *PostgresStore) ListChatRecords(ctx context.Context, model string) (models.RecordsByModel, error) {
	rows, err := s.db.Query(ctx, listChatRecords, model)
	if err != nil {
		return nil, fmt.Errorf("database error listing chat records: %w", err)
	}
	defer rows.Close()

	out := models.RecordsByModel{}
	for rows.Next() {
		var m string
		var rec models.ChatRecord
		if err := rows.Scan(&m, &rec.Message, &rec.Response, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning chat record: %w", err)
		}
		out[m] = append(out[m], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat records: %w", err)
	}
	return out, nil
}

const saveSharedChat = `-- name: SaveSharedChat :exec
INSERT INTO shared_chats (id, payload)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload;
`

func (s *PostgresStore) SaveSharedChat(ctx context.Context, id string, payload []byte) error {
	if _, err := s.db.Exec(ctx, saveSharedChat, id, payload); err != nil {
		return fmt.Errorf("database error saving shared chat: %w", err)
	}
	slog.Debug("[PostgresStore] SaveSharedChat: stored", "id", id, "bytes", len(payload))
	return nil
}

const getSharedChat = `-- name: GetSharedChat :one
SELECT payload FROM shared_chats WHERE id = $1;
`

func (s *PostgresStore) GetSharedChat(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, getSharedChat, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		var pgErr *pgconn.PgError
		// 22P02: invalid_text_representation (malformed uuid)
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching shared chat: %w", err)
	}
	return payload, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
