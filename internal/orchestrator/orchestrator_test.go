package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortextau-chat/internal/chatstore"
	"vortextau-chat/internal/models"
)

type fakeGenerator struct {
	fragments []string
	err       error
	calls     []models.ChatRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req models.ChatRequest, onFragment func(string)) (string, error) {
	g.calls = append(g.calls, req)
	var full strings.Builder
	for _, f := range g.fragments {
		full.WriteString(f)
		onFragment(f)
	}
	return full.String(), g.err
}

type fakeSearcher struct {
	results []models.SearchResult
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, q string) ([]models.SearchResult, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

type fixedClassifier struct {
	answer bool
	calls  int
}

func (c *fixedClassifier) Classify(context.Context, string) bool {
	c.calls++
	return c.answer
}

type harness struct {
	gen      *fakeGenerator
	search   *fakeSearcher
	classify *fixedClassifier
	chats    *chatstore.Store
	progress []string
	orch     *Orchestrator
}

func newHarness(fragments []string) *harness {
	h := &harness{
		gen:      &fakeGenerator{fragments: fragments},
		search:   &fakeSearcher{},
		classify: &fixedClassifier{},
		chats:    chatstore.New(chatstore.NewMemoryKV(), chatstore.NewMemoryKV()),
	}
	h.orch = New(Config{
		Generator:  h.gen,
		Searcher:   h.search,
		Classifier: h.classify,
		Chats:      h.chats,
		Model:      "0xroyce/plutus",
		OnProgress: func(p string) { h.progress = append(h.progress, p) },
	})
	return h
}

func TestHandleTurnRejectsInvalidInput(t *testing.T) {
	for name, text := range map[string]string{
		"blank":    "   \n",
		"too long": strings.Repeat("a", MaxInputLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness([]string{"x"})
			_, err := h.orch.HandleTurn(context.Background(), "", text)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, h.gen.calls)
			assert.Zero(t, h.classify.calls)
			assert.Empty(t, h.chats.Chats())
		})
	}
}

func TestHandleTurnAcceptsLimit(t *testing.T) {
	h := newHarness([]string{"ok"})
	_, err := h.orch.HandleTurn(context.Background(), "", strings.Repeat("é", MaxInputLength))
	require.NoError(t, err)
}

func TestHandleTurnConcatenatesFragments(t *testing.T) {
	h := newHarness([]string{"The capital", " of France", " is Paris."})

	res, err := h.orch.HandleTurn(context.Background(), "", "What is the capital of France?")
	require.NoError(t, err)

	assert.False(t, res.Augmented)
	assert.Empty(t, res.Notice)
	require.Len(t, res.Chat.Messages, 2)
	assert.Equal(t, models.NewUserMessage("What is the capital of France?"), res.Chat.Messages[0])
	assert.Equal(t, models.NewAssistantMessage("The capital of France is Paris."), res.Chat.Messages[1])

	assert.Equal(t, []string{"The capital", "The capital of France", "The capital of France is Paris.", ""}, h.progress)
	assert.Empty(t, h.search.queries)

	require.Len(t, h.gen.calls, 1)
	assert.Equal(t, "What is the capital of France?", h.gen.calls[0].Message)
	assert.Empty(t, h.gen.calls[0].History)
	assert.Equal(t, "0xroyce/plutus", h.gen.calls[0].Model)
}

func TestHandleTurnSendsPriorHistoryOnly(t *testing.T) {
	h := newHarness([]string{"first answer"})
	res, err := h.orch.HandleTurn(context.Background(), "", "first")
	require.NoError(t, err)

	h.gen.fragments = []string{"second answer"}
	res, err = h.orch.HandleTurn(context.Background(), res.Chat.ID, "second")
	require.NoError(t, err)

	require.Len(t, h.gen.calls, 2)
	assert.Equal(t, []models.Message{
		models.NewUserMessage("first"),
		models.NewAssistantMessage("first answer"),
	}, h.gen.calls[1].History)
	assert.Len(t, res.Chat.Messages, 4)
}

func TestHandleTurnAugmentsWithSearchResults(t *testing.T) {
	h := newHarness([]string{"Sunny, 22°C."})
	h.classify.answer = true
	h.search.results = []models.SearchResult{
		{Title: "Tokyo Weather", Snippet: "Sunny with highs of 22°C.", Link: "https://example.com/a"},
		{Title: "JMA", Snippet: "Clear skies expected.", Link: "https://example.com/b"},
	}
	question := "What's the weather in Tokyo today?"

	res, err := h.orch.HandleTurn(context.Background(), "", question)
	require.NoError(t, err)

	assert.True(t, res.Augmented)
	assert.Equal(t, []string{question}, h.search.queries)

	want := "Here is some current information about the topic:\n\n" +
		"Source: Tokyo Weather\nSunny with highs of 22°C.\n\nSource: JMA\nClear skies expected.\n" +
		"\n\nBased ONLY on the information provided above (not your existing knowledge), provide a clear and concise answer to this question: " +
		question +
		". Format the response as a direct answer without mentioning the sources or that you're using provided information."
	require.Len(t, h.gen.calls, 1)
	assert.Equal(t, want, h.gen.calls[0].Message)

	require.Len(t, res.Chat.Messages, 2)
	assert.Equal(t, question, res.Chat.Messages[0].Content)
	assert.Equal(t, "Sunny, 22°C.", res.Chat.Messages[1].Content)
}

func TestHandleTurnFallsBackWhenSearchIsEmptyOrFails(t *testing.T) {
	for name, search := range map[string]*fakeSearcher{
		"zero results": {},
		"search error": {err: errors.New("serp down")},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness([]string{"answer"})
			h.classify.answer = true
			h.search = search
			h.orch.cfg.Searcher = search

			res, err := h.orch.HandleTurn(context.Background(), "", "latest news")
			require.NoError(t, err)
			assert.False(t, res.Augmented)
			assert.Empty(t, res.Notice)
			assert.Equal(t, "latest news", h.gen.calls[0].Message)
			assert.Len(t, res.Chat.Messages, 2)
		})
	}
}

func TestHandleTurnMidStreamFailure(t *testing.T) {
	h := newHarness([]string{"partial"})
	h.gen.err = errors.New("stream broke")

	res, err := h.orch.HandleTurn(context.Background(), "", "hello there")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, FailureNotice, res.Notice)

	chat, ok := h.chats.Get(res.Chat.ID)
	require.True(t, ok)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, models.RoleUser, chat.Messages[0].Role)
	assert.Equal(t, "", h.progress[len(h.progress)-1])
}

func TestHandleTurnCreatesChatForUnknownID(t *testing.T) {
	h := newHarness([]string{"hi"})
	res, err := h.orch.HandleTurn(context.Background(), "does-not-exist", "hello")
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", res.Chat.ID)
	assert.Equal(t, chatstore.DefaultTitle, res.Chat.Title)
}

func TestHandleTurnPersistsCommittedState(t *testing.T) {
	durable := chatstore.NewMemoryKV()
	h := newHarness([]string{"saved"})
	h.chats = chatstore.New(durable, nil)
	h.orch.cfg.Chats = h.chats

	_, err := h.orch.HandleTurn(context.Background(), "", "persist me")
	require.NoError(t, err)

	reloaded := chatstore.New(durable, nil)
	require.NoError(t, reloaded.Load())
	chats := reloaded.Chats()
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Messages, 2)
}
