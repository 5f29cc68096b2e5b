package services

import (
	"context"
	"errors"
	"sync"

	"vortextau-chat/internal/llm"
	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

type fakeBackend struct {
	fragments []string
	failAfter int // fail once this many fragments were emitted; <0 never fails
	err       error
	models    []models.ModelInfo
	listErr   error

	mu       sync.Mutex
	gotModel string
	gotMsgs  []models.Message
	ctxErr   error
}

func (f *fakeBackend) ChatStream(ctx context.Context, model string, msgs []models.Message, onFragment llm.FragmentFunc) error {
	f.mu.Lock()
	f.gotModel = model
	f.gotMsgs = msgs
	f.mu.Unlock()

	for i, frag := range f.fragments {
		if f.failAfter >= 0 && i == f.failAfter {
			return f.err
		}
		if err := onFragment(frag); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if f.failAfter >= len(f.fragments) {
		return f.err
	}
	return nil
}

func (f *fakeBackend) ListModels(context.Context) ([]models.ModelInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.models, nil
}

type memStore struct {
	mu        sync.Mutex
	records   models.RecordsByModel
	shared    map[string][]byte
	appendErr error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{records: models.RecordsByModel{}, shared: map[string][]byte{}}
}

func (m *memStore) AppendChatRecord(_ context.Context, model string, rec models.ChatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records[model] = append(m.records[model], rec)
	return nil
}

func (m *memStore) ListChatRecords(_ context.Context, model string) (models.RecordsByModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := models.RecordsByModel{}
	for k, v := range m.records {
		if model == "" || k == model {
			out[k] = append([]models.ChatRecord(nil), v...)
		}
	}
	return out, nil
}

func (m *memStore) SaveSharedChat(_ context.Context, id string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared[id] = append([]byte(nil), payload...)
	return nil
}

func (m *memStore) GetSharedChat(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.shared[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) Close() error { return nil }

// recordingSink captures events; writes fail once failAfter events were accepted.
type recordingSink struct {
	events    []models.StreamEvent
	done      int
	failAfter int // <0 never fails
}

var errClientGone = errors.New("client gone")

func (s *recordingSink) WriteEvent(v interface{}) error {
	if s.failAfter >= 0 && len(s.events) >= s.failAfter {
		return errClientGone
	}
	s.events = append(s.events, v.(models.StreamEvent))
	return nil
}

func (s *recordingSink) WriteDone() error {
	s.done++
	if s.failAfter >= 0 && len(s.events) >= s.failAfter {
		return errClientGone
	}
	return nil
}
