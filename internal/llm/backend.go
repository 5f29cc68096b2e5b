// Package llm adapts inference backends to a single streaming chat contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"vortextau-chat/internal/config"
	"vortextau-chat/internal/models"
)

// ErrNoModel is returned when a request names no model and the backend has no default.
var ErrNoModel = errors.New("no model specified")

// FragmentFunc receives one generated text fragment. Returning an error aborts the stream.
type FragmentFunc func(fragment string) error

// Backend is an inference server that can stream a chat completion.
type Backend interface {
	// ChatStream sends messages to model and invokes onFragment for each
	// non-empty fragment in order. It returns once the backend signals the
	// end of the response or fails.
	ChatStream(ctx context.Context, model string, messages []models.Message, onFragment FragmentFunc) error

	// ListModels returns the models the backend can serve.
	ListModels(ctx context.Context) ([]models.ModelInfo, error)
}

// New builds the Backend selected by cfg.LLMProvider.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		host, err := url.Parse(cfg.OllamaHost)
		if err != nil {
			return nil, fmt.Errorf("parse OLLAMA_HOST: %w", err)
		}
		return NewOllamaBackend(host, nil), nil
	case config.ProviderOpenAI, config.ProviderAnthropic:
		return NewHostedBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
