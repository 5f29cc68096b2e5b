package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vortextau-chat/internal/models"
)

// MaxSearchResults caps how many organic results are returned.
const MaxSearchResults = 3

// SearchService queries SerpAPI for current web results.
type SearchService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewSearchService creates a SearchService. An empty apiKey is allowed; every
// Search then fails with ErrSearchNotConfigured.
func NewSearchService(apiKey, endpoint string, httpClient *http.Client) *SearchService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SearchService{apiKey: apiKey, endpoint: endpoint, httpClient: httpClient}
}

type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search returns at most MaxSearchResults organic results for query.
// There is no retry, pagination or caching.
func (s *SearchService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if s.apiKey == "" {
		return nil, ErrSearchNotConfigured
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %v", ErrSearchFailed, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", s.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("search request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("search provider returned error status", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	var decoded serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSearchFailed, err)
	}

	n := len(decoded.OrganicResults)
	if n > MaxSearchResults {
		n = MaxSearchResults
	}
	results := make([]models.SearchResult, 0, n)
	for _, r := range decoded.OrganicResults[:n] {
		results = append(results, models.SearchResult{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	return results, nil
}
