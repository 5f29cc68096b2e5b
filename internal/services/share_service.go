package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vortextau-chat/internal/crypto"
	"vortextau-chat/internal/store"
)

// ErrSealedWithoutKey is returned when a stored chat is encrypted but no key is configured.
var ErrSealedWithoutKey = errors.New("shared chat is encrypted and no key is configured")

// ShareService stores chat snapshots under random ids.
type ShareService struct {
	store  store.Store
	sealer *crypto.Sealer // nil stores payloads in the clear
}

// NewShareService creates a ShareService. sealer may be nil.
func NewShareService(store store.Store, sealer *crypto.Sealer) *ShareService {
	return &ShareService{store: store, sealer: sealer}
}

// ShareChat stores payload (a JSON object) and returns its new share id.
func (s *ShareService) ShareChat(ctx context.Context, payload []byte) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return "", fmt.Errorf("%w: chat must be a JSON object", ErrValidation)
	}

	id := uuid.NewString()
	data := trimmed
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(id, trimmed)
		if err != nil {
			return "", fmt.Errorf("failed to seal shared chat: %w", err)
		}
		data = sealed
	}

	if err := s.store.SaveSharedChat(ctx, id, data); err != nil {
		return "", fmt.Errorf("failed to save shared chat: %w", err)
	}
	slog.Info("chat shared", "share_id", id, "encrypted", s.sealer != nil)
	return id, nil
}

// GetSharedChat returns the JSON stored under id, or store.ErrNotFound for
// unknown and malformed ids.
func (s *ShareService) GetSharedChat(ctx context.Context, id string) (json.RawMessage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	data, err := s.store.GetSharedChat(ctx, id)
	if err != nil {
		return nil, err
	}

	if crypto.IsSealed(data) {
		if s.sealer == nil {
			return nil, ErrSealedWithoutKey
		}
		data, err = s.sealer.Open(id, data)
		if err != nil {
			return nil, fmt.Errorf("failed to open shared chat: %w", err)
		}
	}
	return json.RawMessage(data), nil
}
