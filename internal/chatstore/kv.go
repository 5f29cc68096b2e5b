package chatstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is a flat string-keyed byte store. Get reports found=false for missing keys.
type KV interface {
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
}

// FileKV keeps each key in <dir>/<key>.json. It survives restarts.
type FileKV struct {
	dir string
}

// NewFileKV creates dir if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

// Path returns the file backing key.
func (f *FileKV) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set replaces the value atomically (temp file + rename).
func (f *FileKV) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+key+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// MemoryKV lives for the lifetime of the process.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = append([]byte(nil), value...)
	return nil
}
