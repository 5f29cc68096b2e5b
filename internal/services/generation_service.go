package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vortextau-chat/internal/llm"
	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

const (
	DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear and concise responses to user queries."

	// GenerationErrorMessage is the only failure text clients ever see.
	GenerationErrorMessage = "Failed to get response from model"
)

// EventSink receives the serialized stream. pkg/httputil.EventWriter implements it.
type EventSink interface {
	WriteEvent(v interface{}) error
	WriteDone() error
}

// StreamState tracks one generation stream.
type StreamState int

const (
	StateIdle StreamState = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// StreamResult summarizes a finished stream.
type StreamResult struct {
	// Outcome is StateCompleted or StateFailed; the stream itself always ends Closed.
	Outcome   StreamState
	Response  string
	Fragments int
	// Dropped counts fragments that could not be written to the sink (client gone).
	Dropped int
}

// GenerationService relays chat completions from the backend to a client stream
// and keeps the per-model record log.
type GenerationService struct {
	backend llm.Backend
	store   store.Store
	now     func() time.Time

	pending sync.WaitGroup
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(backend llm.Backend, store store.Store) *GenerationService {
	return &GenerationService{
		backend: backend,
		store:   store,
		now:     time.Now,
	}
}

// ValidateChatRequest checks the fields POST /chat requires. Message length is
// not capped here: clients send augmented and classifier prompts that are
// longer than the user's own text, and the body size limit bounds the rest.
func ValidateChatRequest(req models.ChatRequest) error {
	if strings.TrimSpace(req.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	for i, m := range req.History {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: history[%d] has unknown role %q", ErrValidation, i, m.Role)
		}
	}
	return nil
}

// BuildMessages assembles [system, ...history, user] for the backend.
func BuildMessages(req models.ChatRequest) []models.Message {
	system := req.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	msgs := make([]models.Message, 0, len(req.History)+2)
	msgs = append(msgs, models.NewSystemMessage(system))
	msgs = append(msgs, req.History...)
	msgs = append(msgs, models.NewUserMessage(req.Message))
	return msgs
}

// Stream relays the backend response for req into sink, one event per fragment.
// The terminator is written on every path. The backend call is detached from
// ctx cancellation so a departed client does not abort generation; events that
// can no longer be delivered are dropped.
func (s *GenerationService) Stream(ctx context.Context, req models.ChatRequest, sink EventSink) (StreamResult, error) {
	state := StateIdle
	result := StreamResult{}
	logger := slog.With("model", req.Model)

	defer func() {
		if err := sink.WriteDone(); err != nil {
			logger.Debug("terminator not delivered", "error", err)
		}
		logger.Debug("stream state", "from", state, "to", StateClosed)
		state = StateClosed
	}()

	state = StateStreaming
	var full strings.Builder
	backendCtx := context.WithoutCancel(ctx)

	err := s.backend.ChatStream(backendCtx, req.Model, BuildMessages(req), func(fragment string) error {
		full.WriteString(fragment)
		result.Fragments++
		if err := sink.WriteEvent(models.StreamEvent{Role: models.RoleAssistant, Content: fragment}); err != nil {
			result.Dropped++
		}
		return nil
	})
	result.Response = full.String()

	if err != nil {
		state = StateFailed
		result.Outcome = StateFailed
		logger.Error("error in chat stream", "error", err, "fragments", result.Fragments)
		if werr := sink.WriteEvent(models.StreamEvent{Error: GenerationErrorMessage}); werr != nil {
			logger.Debug("error event not delivered", "error", werr)
		}
		return result, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	state = StateCompleted
	result.Outcome = StateCompleted
	if result.Dropped > 0 {
		logger.Info("client disconnected before stream end", "dropped", result.Dropped)
	}

	s.persistRecord(req.Model, models.ChatRecord{
		Timestamp: s.now(),
		Message:   req.Message,
		Response:  result.Response,
	})
	return result, nil
}

// persistRecord appends rec in the background; failures are only logged.
func (s *GenerationService) persistRecord(model string, rec models.ChatRecord) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.AppendChatRecord(ctx, model, rec); err != nil {
			slog.Error("error saving chat record", "model", model, "error", err)
		}
	}()
}

// Wait blocks until every pending record write has finished.
func (s *GenerationService) Wait() {
	s.pending.Wait()
}

// ListRecords returns the record log, optionally limited to one model.
func (s *GenerationService) ListRecords(ctx context.Context, model string) (models.RecordsByModel, error) {
	records, err := s.store.ListChatRecords(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat records: %w", err)
	}
	return records, nil
}
