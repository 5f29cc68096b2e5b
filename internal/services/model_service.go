package services

import (
	"context"
	"fmt"
	"strings"

	"vortextau-chat/internal/llm"
	"vortextau-chat/internal/models"
)

// ModelService lists the backend models offered to clients.
type ModelService struct {
	backend   llm.Backend
	namespace string
}

// NewModelService creates a ModelService. Only model names starting with
// namespace are listed; an empty namespace lists everything.
func NewModelService(backend llm.Backend, namespace string) *ModelService {
	return &ModelService{backend: backend, namespace: namespace}
}

func (s *ModelService) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	all, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	filtered := make([]models.ModelInfo, 0, len(all))
	for _, m := range all {
		if strings.HasPrefix(m.Name, s.namespace) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}
