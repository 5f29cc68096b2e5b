package models

import (
	"time"
)

// --- Request Structs ---

// ChatRequest defines the body for POST /chat.
type ChatRequest struct {
	Model        string    `json:"model"`
	Message      string    `json:"message"`
	History      []Message `json:"history"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
}

// SearchRequest defines the body for POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// --- Response Structs ---

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamEvent is one SSE payload on the /chat stream: either a fragment
// (Role + Content) or an error marker.
type StreamEvent struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SearchResult is a single organic search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// SearchResponse defines the body returned by POST /search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ShareResponse defines the body returned by POST /share-chat.
type ShareResponse struct {
	ShareID string `json:"shareId"`
}

// ModelDetails carries the size/quantization metadata shown next to a model name.
type ModelDetails struct {
	Format            string `json:"format,omitempty"`
	Family            string `json:"family,omitempty"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ModelInfo describes an installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	ModifiedAt time.Time    `json:"modified_at,omitempty"`
	Size       int64        `json:"size,omitempty"`
	Digest     string       `json:"digest,omitempty"`
	Details    ModelDetails `json:"details"`
}
