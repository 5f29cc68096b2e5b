package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"vortextau-chat/internal/config"
	"vortextau-chat/internal/models"
)

// HostedBackend streams chats from a hosted provider through langchaingo.
type HostedBackend struct {
	llm       llms.Model
	modelName string
	provider  string
}

// Compile-time check that HostedBackend implements Backend.
var _ Backend = (*HostedBackend)(nil)

// NewHostedBackend creates a langchaingo model for cfg.LLMProvider.
func NewHostedBackend(cfg *config.Config) (*HostedBackend, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported hosted provider: %s", cfg.LLMProvider)
	}

	return NewHostedBackendWithModel(model, cfg.LLMProvider, cfg.LLMModel), nil
}

// NewHostedBackendWithModel wraps an existing langchaingo model.
func NewHostedBackendWithModel(model llms.Model, provider, modelName string) *HostedBackend {
	return &HostedBackend{llm: model, provider: provider, modelName: modelName}
}

// ChatStream implements Backend. Providers that answer without streaming
// deliver their whole completion as a single fragment.
func (b *HostedBackend) ChatStream(ctx context.Context, model string, messages []models.Message, onFragment FragmentFunc) error {
	if model == "" {
		model = b.modelName
	}
	if model == "" {
		return ErrNoModel
	}

	streamed := false
	resp, err := b.llm.GenerateContent(ctx, toMessageContent(messages),
		llms.WithModel(model),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			return onFragment(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("%s generate %s: %w", b.provider, model, err)
	}

	if !streamed && len(resp.Choices) > 0 && resp.Choices[0].Content != "" {
		return onFragment(resp.Choices[0].Content)
	}
	return nil
}

// ListModels implements Backend. Hosted providers expose only the configured model.
func (b *HostedBackend) ListModels(_ context.Context) ([]models.ModelInfo, error) {
	if b.modelName == "" {
		return []models.ModelInfo{}, nil
	}
	return []models.ModelInfo{{
		Name:    b.modelName,
		Model:   b.modelName,
		Details: models.ModelDetails{Family: b.provider},
	}}, nil
}

func toMessageContent(messages []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
