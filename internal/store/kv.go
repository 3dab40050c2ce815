package store

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"sync"

	"popclient/internal/domain"
	"popclient/internal/poperr"
)

// FileKV stores one JSON file per key under dir. Errors follow readJSON and
// writeJSON.
type FileKV struct {
	dir string
	mu  sync.Mutex
}

// NewFileKV returns a FileKV rooted at dir. The directory is created on the
// first write.
func NewFileKV(dir string) *FileKV { return &FileKV{dir: dir} }

var _ domain.KV = (*FileKV)(nil)

func (s *FileKV) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileKV) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSON(s.path(key), out)
}

func (s *FileKV) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path(key), v, 0o600)
}

func (s *FileKV) Update(key string, out any, fn func(exists bool) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(key)
	exists, err := readJSON(path, out)
	if err != nil {
		return err
	}
	write, err := fn(exists)
	if err != nil || !write {
		return err
	}
	return writeJSON(path, out, 0o600)
}

// MemoryKV keeps values in memory as encoded JSON, so callers never share
// state with the store.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV { return &MemoryKV{data: make(map[string][]byte)} }

var _ domain.KV = (*MemoryKV)(nil)

func (s *MemoryKV) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key, out)
}

func (s *MemoryKV) get(key string, out any) (bool, error) {
	b, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return true, poperr.WrapDecode(err, "%s", key)
	}
	return true, nil
}

func (s *MemoryKV) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, v)
}

func (s *MemoryKV) set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return poperr.WrapSchema(err, "encode %s", key)
	}
	s.data[key] = b
	return nil
}

func (s *MemoryKV) Update(key string, out any, fn func(exists bool) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.get(key, out)
	if err != nil {
		return err
	}
	write, err := fn(exists)
	if err != nil || !write {
		return err
	}
	return s.set(key, out)
}
