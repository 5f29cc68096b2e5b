package store

import (
	"context"
	"errors"

	"vortextau-chat/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for persistence operations.
// This allows for mocking in tests and switching between file, SQLite and Postgres backends.
type Store interface {
	// Chat record operations. Records are append-only and grouped by model.
	AppendChatRecord(ctx context.Context, model string, rec models.ChatRecord) error
	// ListChatRecords returns records for model, or for every model when model is empty.
	ListChatRecords(ctx context.Context, model string) (models.RecordsByModel, error)

	// Shared chat operations. Payloads are opaque bytes (possibly encrypted).
	SaveSharedChat(ctx context.Context, id string, payload []byte) error
	// GetSharedChat returns ErrNotFound when no chat was shared under id.
	GetSharedChat(ctx context.Context, id string) ([]byte, error)

	Close() error
}
