// Package chatstore holds the client's chat collection and persists it to a
// durable and a session key-value scope under one key.
package chatstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"vortextau-chat/internal/models"
)

const (
	// StorageKey is the key both scopes store the collection under.
	StorageKey = "vortextau-chats"
	// DefaultTitle is given to every new chat.
	DefaultTitle = "New Chat"
)

var (
	// ErrParse means stored data could not be decoded; the store starts empty.
	ErrParse = errors.New("stored chats could not be parsed")
	// ErrPersistence means at least one scope could not be written.
	ErrPersistence = errors.New("chats could not be persisted")
	// ErrChatNotFound is returned for unknown chat ids.
	ErrChatNotFound = errors.New("chat not found")
)

// Store is the ordered chat collection (most recent first) plus the active chat pointer.
type Store struct {
	durable KV
	session KV
	newID   func() string

	mu          sync.Mutex
	chats       []models.Chat
	activeID    string
	lastWritten []byte
}

// New creates an empty Store. Call Load to read persisted chats.
func New(durable, session KV) *Store {
	return &Store{
		durable: durable,
		session: session,
		newID:   uuid.NewString,
	}
}

// Load replaces the in-memory collection with the persisted one. The durable
// scope is tried first; if it is unreadable or undecodable the session scope is
// used instead, and the returned error (wrapping ErrPersistence or ErrParse)
// reports what was skipped. When neither scope holds a usable copy the
// in-memory collection is left as it is, so a bad file never erases chats
// this process still has. The active chat survives a reload if it is still
// present.
func (s *Store) Load() error {
	chats, found, err := s.read()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		if err == nil {
			s.chats = nil
			s.activeID = ""
		}
		return err
	}

	s.chats = chats
	if s.indexLocked(s.activeID) < 0 {
		s.activeID = ""
	}
	return err
}

// read returns the first decodable copy, durable before session, together
// with the errors of any scope skipped on the way.
func (s *Store) read() ([]models.Chat, bool, error) {
	scopes := []struct {
		name string
		kv   KV
	}{
		{"durable", s.durable},
		{"session", s.session},
	}

	var errs []error
	for _, scope := range scopes {
		if scope.kv == nil {
			continue
		}
		data, found, err := scope.kv.Get(StorageKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: reading %s scope: %w", ErrPersistence, scope.name, err))
			continue
		}
		if !found || len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var chats []models.Chat
		if err := json.Unmarshal(data, &chats); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s scope: %v", ErrParse, scope.name, err))
			continue
		}
		return chats, true, errors.Join(errs...)
	}
	return nil, false, errors.Join(errs...)
}

// PersistAll writes the whole collection to both scopes. A failure in one
// scope does not prevent writing the other; the result wraps ErrPersistence.
func (s *Store) PersistAll() error {
	s.mu.Lock()
	data, err := json.Marshal(s.chatsLocked())
	if err == nil {
		s.lastWritten = data
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var errs []error
	if s.durable != nil {
		if err := s.durable.Set(StorageKey, data); err != nil {
			errs = append(errs, fmt.Errorf("durable: %w", err))
		}
	}
	if s.session != nil {
		if err := s.session.Set(StorageKey, data); err != nil {
			errs = append(errs, fmt.Errorf("session: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
	}
	return nil
}

// Create prepends a new empty chat and makes it active.
func (s *Store) Create() models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := models.Chat{ID: s.newID(), Title: DefaultTitle, Messages: []models.Message{}}
	s.chats = append([]models.Chat{chat}, s.chats...)
	s.activeID = chat.ID
	return cloneChat(chat)
}

// Import adds a chat received from elsewhere (a shared link), prepending it
// and making it active. A chat whose id already exists is only activated.
func (s *Store) Import(chat models.Chat) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(chat.ID); i >= 0 {
		s.activeID = chat.ID
		return cloneChat(s.chats[i]), false
	}
	if chat.ID == "" {
		chat.ID = s.newID()
	}
	if chat.Title == "" {
		chat.Title = DefaultTitle
	}
	chat = cloneChat(chat)
	s.chats = append([]models.Chat{chat}, s.chats...)
	s.activeID = chat.ID
	return cloneChat(chat), true
}

// Rename changes a chat's title.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrChatNotFound
	}
	s.chats[i].Title = title
	return nil
}

// Delete removes a chat and clears the active pointer if it pointed there.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrChatNotFound
	}
	s.chats = append(s.chats[:i], s.chats[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	return nil
}

// Append adds msg to the end of a chat's log.
func (s *Store) Append(id string, msg models.Message) (models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Chat{}, ErrChatNotFound
	}
	s.chats[i].Messages = append(s.chats[i].Messages, msg)
	return cloneChat(s.chats[i]), nil
}

// Get returns a copy of the chat with id.
func (s *Store) Get(id string) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Chat{}, false
	}
	return cloneChat(s.chats[i]), true
}

// Chats returns a copy of the collection, most recent first.
func (s *Store) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatsLocked()
}

// Active returns the active chat, if any.
func (s *Store) Active() (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(s.activeID)
	if i < 0 {
		return models.Chat{}, false
	}
	return cloneChat(s.chats[i]), true
}

// SetActive points the active chat at id.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return ErrChatNotFound
	}
	s.activeID = id
	return nil
}

// Watch reloads the collection whenever the durable file is changed by
// another process, calling onReload with the Load result. It blocks until ctx
// is done. The durable scope must be a *FileKV.
func (s *Store) Watch(ctx context.Context, onReload func(error)) error {
	fkv, ok := s.durable.(*FileKV)
	if !ok {
		return errors.New("watch requires a file-backed durable scope")
	}
	path := fkv.Path(StorageKey)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic replacement swaps the file's inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	const debounce = 100 * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if s.ownWrite() {
				continue
			}
			err := s.Load()
			if err != nil {
				slog.Warn("reloading chats after external change", "error", err)
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("chat file watcher error", "error", err)
		}
	}
}

// ownWrite reports whether the durable file still holds exactly what this
// store last wrote.
func (s *Store) ownWrite() bool {
	data, found, err := s.durable.Get(StorageKey)
	if err != nil || !found {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWritten != nil && bytes.Equal(data, s.lastWritten)
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) chatsLocked() []models.Chat {
	out := make([]models.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = cloneChat(c)
	}
	return out
}

func cloneChat(c models.Chat) models.Chat {
	msgs := make([]models.Message, len(c.Messages))
	copy(msgs, c.Messages)
	c.Messages = msgs
	return c
}
