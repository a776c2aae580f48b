package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
)

const fileName = store.Key + ".json"

var _ store.Store = (*FileStore)(nil)

// FileStore keeps the token pair in a single JSON file under a data folder.
// Writes go through a temp file and rename so a crash never leaves a partial pair.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// New creates a file store rooted at folder. The folder is created on first Save.
func New(folder string) *FileStore {
	return &FileStore{path: filepath.Join(folder, fileName)}
}

// Path returns the file the pair is written to
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (*token.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore Load] read %s: %w", s.path, err)
	}

	var pair token.Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("[FileStore Load] decode %s: %w", s.path, err)
	}
	return &pair, nil
}

func (s *FileStore) Save(_ context.Context, pair *token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("[FileStore Save] encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileStore Save] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("[FileStore Save] create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore Save] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore Save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("[FileStore Save] rename: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[FileStore Clear] remove %s: %w", s.path, err)
	}
	return nil
}
