// Package filestore keeps chat records and shared chats as plain files under a data directory.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

const (
	recordsFile  = "chat-records.jsonl"
	sharedDir    = "shared-chats"
	maxLineBytes = 4 << 20
)

// Compile-time check to ensure FileStore implements store.Store
var _ store.Store = (*FileStore)(nil)

// FileStore appends one JSON line per chat record and writes one file per shared chat.
type FileStore struct {
	dir string
	mu  sync.Mutex // serializes appends to the record log
}

type recordLine struct {
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
}

// New creates the data directory layout under dir.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, sharedDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) AppendChatRecord(_ context.Context, model string, rec models.ChatRecord) error {
	line, err := json.Marshal(recordLine{
		Model:     model,
		Timestamp: rec.Timestamp,
		Message:   rec.Message,
		Response:  rec.Response,
	})
	if err != nil {
		return fmt.Errorf("encoding chat record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, recordsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening record log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("appending chat record: %w", err)
	}
	return f.Close()
}

// ListChatRecords reads the record log. Malformed lines (for example a
// partially written tail) are skipped.
func (s *FileStore) ListChatRecords(_ context.Context, model string) (models.RecordsByModel, error) {
	out := models.RecordsByModel{}

	f, err := os.Open(filepath.Join(s.dir, recordsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("opening record log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line recordLine
		if err := json.Unmarshal(raw, &line); err != nil {
			slog.Warn("[FileStore] skipping malformed record", "line", lineNo, "error", err)
			continue
		}
		if model != "" && line.Model != model {
			continue
		}
		out[line.Model] = append(out[line.Model], models.ChatRecord{
			Timestamp: line.Timestamp,
			Message:   line.Message,
			Response:  line.Response,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading record log: %w", err)
	}
	return out, nil
}

// SaveSharedChat writes payload atomically to shared-chats/<id>.json.
func (s *FileStore) SaveSharedChat(_ context.Context, id string, payload []byte) error {
	path, err := s.sharedPath(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".share-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing shared chat: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing shared chat: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming shared chat: %w", err)
	}
	return nil
}

func (s *FileStore) GetSharedChat(_ context.Context, id string) ([]byte, error) {
	path, err := s.sharedPath(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading shared chat: %w", err)
	}
	return data, nil
}

func (s *FileStore) Close() error { return nil }

// sharedPath only accepts canonical UUIDs so ids can never escape the directory.
func (s *FileStore) sharedPath(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return "", fmt.Errorf("invalid share id %q", id)
	}
	return filepath.Join(s.dir, sharedDir, id+".json"), nil
}
