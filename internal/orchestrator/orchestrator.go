// Package orchestrator runs one user turn: classify, optionally retrieve,
// generate, and commit the result to the chat store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"vortextau-chat/internal/models"
)

// MaxInputLength is the longest accepted user message, in code points.
const MaxInputLength = 5000

// FailureNotice is shown when a turn could not be completed.
const FailureNotice = "Failed to process the message. Please try again."

var (
	// ErrValidation means the input was rejected before any network call.
	ErrValidation = errors.New("invalid input")
	// ErrGeneration means the turn failed while generating the answer.
	ErrGeneration = errors.New("turn failed")
)

// Generator streams a completion. internal/client.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req models.ChatRequest, onFragment func(string)) (string, error)
}

// Searcher returns web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Classifier decides whether a query needs retrieval.
type Classifier interface {
	Classify(ctx context.Context, query string) bool
}

// ChatStore is the part of chatstore.Store a turn needs.
type ChatStore interface {
	Create() models.Chat
	Get(id string) (models.Chat, bool)
	Active() (models.Chat, bool)
	SetActive(id string) error
	Append(id string, msg models.Message) (models.Chat, error)
	PersistAll() error
}

// Config wires an Orchestrator. Classifier and Searcher may be nil, which
// disables retrieval.
type Config struct {
	Generator    Generator
	Searcher     Searcher
	Classifier   Classifier
	Chats        ChatStore
	Model        string
	SystemPrompt string
	// OnProgress receives the accumulated, uncommitted answer after every
	// fragment and "" once the turn ends.
	OnProgress func(partial string)
}

// TurnResult is the state after a turn.
type TurnResult struct {
	Chat      models.Chat
	Augmented bool
	Notice    string
}

type Orchestrator struct {
	cfg Config
}

func New(cfg Config) *Orchestrator {
	if cfg.OnProgress == nil {
		cfg.OnProgress = func(string) {}
	}
	return &Orchestrator{cfg: cfg}
}

// SetModel changes the model used for subsequent turns.
func (o *Orchestrator) SetModel(model string) {
	o.cfg.Model = model
}

// Model returns the model turns are sent to.
func (o *Orchestrator) Model() string {
	return o.cfg.Model
}

// HandleTurn runs a single turn for chatID. An empty chatID uses the active
// chat, creating one when there is none; an unknown chatID also gets a new
// chat. The user message is committed before any network call. On a
// generation failure the returned result carries FailureNotice, the user
// message is kept and no assistant message is added.
func (o *Orchestrator) HandleTurn(ctx context.Context, chatID, text string) (TurnResult, error) {
	if err := validate(text); err != nil {
		return TurnResult{}, err
	}

	chat := o.resolveChat(chatID)
	history := chat.Messages

	chat, err := o.cfg.Chats.Append(chat.ID, models.NewUserMessage(text))
	if err != nil {
		return TurnResult{}, fmt.Errorf("appending user message: %w", err)
	}
	o.persist()

	prompt, augmented := o.buildPrompt(ctx, text)

	var acc strings.Builder
	_, err = o.cfg.Generator.Generate(ctx, models.ChatRequest{
		Model:        o.cfg.Model,
		Message:      prompt,
		History:      history,
		SystemPrompt: o.cfg.SystemPrompt,
	}, func(fragment string) {
		acc.WriteString(fragment)
		o.cfg.OnProgress(acc.String())
	})
	o.cfg.OnProgress("")

	if err != nil {
		slog.Error("turn failed", "chat_id", chat.ID, "error", err)
		return TurnResult{Chat: chat, Augmented: augmented, Notice: FailureNotice},
			fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	chat, err = o.cfg.Chats.Append(chat.ID, models.NewAssistantMessage(acc.String()))
	if err != nil {
		return TurnResult{Chat: chat, Augmented: augmented, Notice: FailureNotice},
			fmt.Errorf("appending assistant message: %w", err)
	}
	o.persist()

	return TurnResult{Chat: chat, Augmented: augmented}, nil
}

func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > MaxInputLength {
		return fmt.Errorf("%w: message is %d characters, limit is %d", ErrValidation, n, MaxInputLength)
	}
	return nil
}

func (o *Orchestrator) resolveChat(chatID string) models.Chat {
	if chatID == "" {
		if chat, ok := o.cfg.Chats.Active(); ok {
			return chat
		}
		return o.cfg.Chats.Create()
	}
	if chat, ok := o.cfg.Chats.Get(chatID); ok {
		_ = o.cfg.Chats.SetActive(chatID)
		return chat
	}
	return o.cfg.Chats.Create()
}

// buildPrompt returns the text to send and whether it carries search results.
// Classification and retrieval failures fall back to the raw text.
func (o *Orchestrator) buildPrompt(ctx context.Context, text string) (string, bool) {
	if o.cfg.Classifier == nil || o.cfg.Searcher == nil {
		return text, false
	}
	if !o.cfg.Classifier.Classify(ctx, text) {
		return text, false
	}

	results, err := o.cfg.Searcher.Search(ctx, text)
	if err != nil {
		slog.Warn("search failed, answering without results", "error", err)
		return text, false
	}
	if len(results) == 0 {
		slog.Debug("search returned no results")
		return text, false
	}
	return AugmentPrompt(text, results), true
}

func (o *Orchestrator) persist() {
	if err := o.cfg.Chats.PersistAll(); err != nil {
		slog.Warn("saving chats", "error", err)
	}
}

// AugmentPrompt embeds results ahead of the question and asks the model to
// answer from them alone.
func AugmentPrompt(text string, results []models.SearchResult) string {
	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = "Source: " + r.Title + "\n" + r.Snippet + "\n"
	}
	return "Here is some current information about the topic:\n\n" +
		strings.Join(sources, "\n") +
		"\n\nBased ONLY on the information provided above (not your existing knowledge), provide a clear and concise answer to this question: " +
		text +
		". Format the response as a direct answer without mentioning the sources or that you're using provided information."
}
