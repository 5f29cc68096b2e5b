package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"vortextau-chat/internal/models"
)

// OllamaBackend streams chats from a local Ollama server.
type OllamaBackend struct {
	client *api.Client
}

// Compile-time check that OllamaBackend implements Backend.
var _ Backend = (*OllamaBackend)(nil)

// NewOllamaBackend creates a backend for the Ollama server at host.
// A nil httpClient uses http.DefaultClient.
func NewOllamaBackend(host *url.URL, httpClient *http.Client) *OllamaBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaBackend{client: api.NewClient(host, httpClient)}
}

// ChatStream implements Backend.
func (b *OllamaBackend) ChatStream(ctx context.Context, model string, messages []models.Message, onFragment FragmentFunc) error {
	if model == "" {
		return ErrNoModel
	}

	stream := true
	req := &api.ChatRequest{
		Model:    model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}

	err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return onFragment(resp.Message.Content)
	})
	if err != nil {
		return fmt.Errorf("ollama chat %s: %w", model, err)
	}
	return nil
}

// ListModels implements Backend.
func (b *OllamaBackend) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	resp, err := b.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list: %w", err)
	}

	out := make([]models.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, models.ModelInfo{
			Name:       m.Name,
			Model:      m.Model,
			ModifiedAt: m.ModifiedAt,
			Size:       m.Size,
			Digest:     m.Digest,
			Details: models.ModelDetails{
				Format:            m.Details.Format,
				Family:            m.Details.Family,
				ParameterSize:     m.Details.ParameterSize,
				QuantizationLevel: m.Details.QuantizationLevel,
			},
		})
	}
	return out, nil
}

func toOllamaMessages(messages []models.Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
