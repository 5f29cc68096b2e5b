package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortextau-chat/internal/models"
)

func newGeneration(b *fakeBackend, st *memStore) *GenerationService {
	svc := NewGenerationService(b, st)
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestStream_RelaysFragmentsInOrder(t *testing.T) {
	b := &fakeBackend{fragments: []string{"Hel", "lo", "!"}, failAfter: -1}
	st := newMemStore()
	svc := newGeneration(b, st)
	sink := &recordingSink{failAfter: -1}

	res, err := svc.Stream(context.Background(), models.ChatRequest{Model: "m", Message: "hi"}, sink)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, StateCompleted, res.Outcome)
	assert.Equal(t, "Hello!", res.Response)
	assert.Equal(t, 3, res.Fragments)
	require.Len(t, sink.events, 3)
	for i, frag := range []string{"Hel", "lo", "!"} {
		assert.Equal(t, models.RoleAssistant, sink.events[i].Role)
		assert.Equal(t, frag, sink.events[i].Content)
	}
	assert.Equal(t, 1, sink.done)

	records, err := svc.ListRecords(context.Background(), "m")
	require.NoError(t, err)
	require.Len(t, records["m"], 1)
	assert.Equal(t, "hi", records["m"][0].Message)
	assert.Equal(t, "Hello!", records["m"][0].Response)
	assert.Equal(t, 2025, records["m"][0].Timestamp.Year())
}

func TestStream_BuildsMessages(t *testing.T) {
	b := &fakeBackend{failAfter: -1}
	svc := newGeneration(b, newMemStore())

	history := []models.Message{models.NewUserMessage("q1"), models.NewAssistantMessage("a1")}
	_, err := svc.Stream(context.Background(), models.ChatRequest{Model: "m", Message: "q2", History: history}, &recordingSink{failAfter: -1})
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, b.gotMsgs, 4)
	assert.Equal(t, models.NewSystemMessage(DefaultSystemPrompt), b.gotMsgs[0])
	assert.Equal(t, history[0], b.gotMsgs[1])
	assert.Equal(t, history[1], b.gotMsgs[2])
	assert.Equal(t, models.NewUserMessage("q2"), b.gotMsgs[3])

	custom := BuildMessages(models.ChatRequest{Message: "x", SystemPrompt: "be terse"})
	assert.Equal(t, "be terse", custom[0].Content)
}

func TestStream_ErrorAfterTwoFragments(t *testing.T) {
	b := &fakeBackend{fragments: []string{"a", "b", "c"}, failAfter: 2, err: errors.New("connection reset by llama")}
	st := newMemStore()
	svc := newGeneration(b, st)
	sink := &recordingSink{failAfter: -1}

	res, err := svc.Stream(context.Background(), models.ChatRequest{Model: "m", Message: "hi"}, sink)
	require.ErrorIs(t, err, ErrGeneration)
	svc.Wait()

	assert.Equal(t, StateFailed, res.Outcome)
	require.Len(t, sink.events, 3)
	assert.Equal(t, "a", sink.events[0].Content)
	assert.Equal(t, "b", sink.events[1].Content)
	assert.Equal(t, GenerationErrorMessage, sink.events[2].Error)
	assert.NotContains(t, sink.events[2].Error, "llama")
	assert.Equal(t, 1, sink.done)
	assert.Empty(t, st.records, "failed streams are not recorded")
}

func TestStream_ZeroFragments(t *testing.T) {
	svc := newGeneration(&fakeBackend{failAfter: -1}, newMemStore())
	sink := &recordingSink{failAfter: -1}

	res, err := svc.Stream(context.Background(), models.ChatRequest{Model: "m", Message: "hi"}, sink)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, StateCompleted, res.Outcome)
	assert.Empty(t, sink.events)
	assert.Equal(t, 1, sink.done)
}

func TestStream_ClientDisconnectKeepsGenerating(t *testing.T) {
	b := &fakeBackend{fragments: []string{"one ", "two ", "three"}, failAfter: -1}
	st := newMemStore()
	svc := newGeneration(b, st)
	sink := &recordingSink{failAfter: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Stream(ctx, models.ChatRequest{Model: "m", Message: "count"}, sink)
	require.NoError(t, err)
	svc.Wait()

	assert.NoError(t, b.ctxErr, "backend context must not inherit client cancellation")
	assert.Equal(t, 3, res.Fragments)
	assert.Equal(t, 2, res.Dropped)
	assert.Len(t, sink.events, 1)
	assert.Equal(t, 1, sink.done)
	assert.Equal(t, "one two three", st.records["m"][0].Response)
}

func TestStream_RecordFailureDoesNotFailStream(t *testing.T) {
	st := newMemStore()
	st.appendErr = errors.New("disk full")
	svc := newGeneration(&fakeBackend{fragments: []string{"ok"}, failAfter: -1}, st)

	res, err := svc.Stream(context.Background(), models.ChatRequest{Model: "m", Message: "hi"}, &recordingSink{failAfter: -1})
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, StateCompleted, res.Outcome)
}

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.ChatRequest
		wantErr bool
	}{
		{"valid", models.ChatRequest{Model: "m", Message: "hi"}, false},
		{"missing model", models.ChatRequest{Message: "hi"}, true},
		{"blank message", models.ChatRequest{Model: "m", Message: "  \n"}, true},
		{"augmented prompt longer than user limit", models.ChatRequest{Model: "m", Message: strings.Repeat("é", 6000)}, false},
		{"bad history role", models.ChatRequest{Model: "m", Message: "hi", History: []models.Message{{Role: "tool", Content: "x"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatRequest(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStreamState_String(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "StreamState(42)", StreamState(42).String())
}
