package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend is the persistence seam under the session store. The store always
// reads and writes the entire serialized collection: Load returns the whole
// blob (nil when nothing has been written yet) and Save replaces it. There
// is no partial update at this layer, so a write from another process wins
// or loses wholesale (last write wins, no merge).
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// FileBackend stores the blob in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file-backed blob store at the given path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file the backend writes to.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the whole blob. A missing file means an empty store.
func (b *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

// Save replaces the blob atomically: write to a temp file in the same
// directory, fsync, then rename over the target. A crash leaves either the
// old blob or the new complete one, never a partial write.
func (b *FileBackend) Save(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync sessions: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// MemoryBackend keeps the blob in memory. It backs tests and throwaway
// sessions.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the current blob, nil if nothing was saved yet.
func (b *MemoryBackend) Load() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Save replaces the blob.
func (b *MemoryBackend) Save(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}
