// Package client talks to the vortextau chat server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vortextau-chat/internal/models"
	"vortextau-chat/pkg/httputil"
)

var (
	// ErrGeneration is returned when the stream reports an error or ends without its terminator.
	ErrGeneration = errors.New("generation failed")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a thin API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for baseURL. token, when set, is sent as a bearer token.
// A nil httpClient gets a client without an overall timeout so streams are not cut.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Generate posts req to /chat and calls onFragment for every streamed fragment.
// It returns the concatenated response once the terminator arrives.
func (c *Client) Generate(ctx context.Context, req models.ChatRequest, onFragment func(string)) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var full strings.Builder
	reader := httputil.NewEventReader(resp.Body)
	for {
		data, done, err := reader.Next()
		if done {
			return full.String(), nil
		}
		if errors.Is(err, io.EOF) {
			return full.String(), fmt.Errorf("%w: stream ended before completion", ErrGeneration)
		}
		if err != nil {
			return full.String(), fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		var ev models.StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return full.String(), fmt.Errorf("%w: malformed event: %v", ErrGeneration, err)
		}
		if ev.Error != "" {
			return full.String(), fmt.Errorf("%w: %s", ErrGeneration, ev.Error)
		}
		if ev.Content == "" {
			continue
		}
		full.WriteString(ev.Content)
		if onFragment != nil {
			onFragment(ev.Content)
		}
	}
}

// Search posts query to /search.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var out models.SearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/search", models.SearchRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListModels fetches /models.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	var out []models.ModelInfo
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecords fetches the server's record log, optionally for one model.
func (c *Client) ListRecords(ctx context.Context, model string) (models.RecordsByModel, error) {
	path := "/chat"
	if model != "" {
		path += "?model=" + url.QueryEscape(model)
	}
	out := models.RecordsByModel{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShareChat uploads chat and returns its share id.
func (c *Client) ShareChat(ctx context.Context, chat models.Chat) (string, error) {
	var out models.ShareResponse
	if err := c.doJSON(ctx, http.MethodPost, "/share-chat", chat, &out); err != nil {
		return "", err
	}
	return out.ShareID, nil
}

// GetSharedChat downloads a shared chat. Unknown ids return ErrNotFound.
func (c *Client) GetSharedChat(ctx context.Context, shareID string) (models.Chat, error) {
	var out models.Chat
	err := c.doJSON(ctx, http.MethodGet, "/shared-chat/"+url.PathEscape(shareID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}
