// Package classifier decides whether a user query needs fresh web results.
package classifier

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"vortextau-chat/internal/models"
)

// DefaultTTL is how long a classification decision is reused.
const DefaultTTL = 5 * time.Minute

const systemPrompt = "You are a query classifier. Reply with exactly one word: YES or NO."

const promptTemplate = `Decide whether answering the following query requires current, real-time information from the web.

Answer YES for queries about:
- prices, rates or market values
- news or recent events
- weather or forecasts
- the current status, holder or result of something that changes over time

Answer NO for queries about:
- definitions or explanations of concepts
- history or settled facts
- theory, science or how things work
- math, code or writing help

Reply with exactly YES or NO and nothing else.

Query: `

// Classifier reports whether a query should be answered with retrieval.
type Classifier interface {
	Classify(ctx context.Context, query string) bool
}

// Generator runs a single prompt against the backend and returns the full answer.
// internal/client.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req models.ChatRequest, onFragment func(string)) (string, error)
}

type cacheEntry struct {
	decision bool
	at       time.Time
}

// LLMClassifier asks the model for a YES/NO decision and caches it per query.
type LLMClassifier struct {
	gen   Generator
	model string
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option configures an LLMClassifier.
type Option func(*LLMClassifier)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *LLMClassifier) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *LLMClassifier) { c.now = now }
}

// NewLLMClassifier creates a classifier that asks model through gen.
func NewLLMClassifier(gen Generator, model string, opts ...Option) *LLMClassifier {
	c := &LLMClassifier{
		gen:   gen,
		model: model,
		ttl:   DefaultTTL,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns true only when the model answers exactly YES. Any other
// answer or any failure means false. Every decision, failures included, is
// cached; a cached decision younger than the TTL is returned without calling
// the backend.
func (c *LLMClassifier) Classify(ctx context.Context, query string) bool {
	key := normalize(query)

	c.mu.Lock()
	if e, ok := c.cache[key]; ok && c.now().Sub(e.at) < c.ttl {
		c.mu.Unlock()
		return e.decision
	}
	c.mu.Unlock()

	answer, err := c.gen.Generate(ctx, models.ChatRequest{
		Model:        c.model,
		Message:      promptTemplate + query,
		History:      []models.Message{},
		SystemPrompt: systemPrompt,
	}, nil)
	decision := false
	if err != nil {
		slog.Warn("classification failed, skipping retrieval", "error", err)
	} else {
		decision = strings.ToUpper(strings.TrimSpace(answer)) == "YES"
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{decision: decision, at: c.now()}
	c.mu.Unlock()

	slog.Debug("query classified", "needs_search", decision)
	return decision
}

func normalize(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}

// keywords is the fixed list used by KeywordClassifier.
var keywords = []string{"president", "weather", "news", "current", "latest", "today"}

// KeywordClassifier flags queries that mention a time-sensitive keyword.
// It never calls the backend.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, query string) bool {
	q := strings.ToLower(query)
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
