package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileBackend_LoadMissingFile(t *testing.T) {
	backend := NewFileBackend(filepath.Join(t.TempDir(), "sessions.json"))

	data, err := backend.Load()
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil for missing file, got %d bytes", len(data))
	}
}

func TestFileBackend_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	backend := NewFileBackend(path)

	want := []byte(`[{"id":"abc"}]`)
	if err := backend.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Load = %q, want %q", got, want)
	}
}

func TestFileBackend_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.json")
	backend := NewFileBackend(path)

	if err := backend.Save([]byte("[]")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("session file was not created: %v", err)
	}
}

func TestFileBackend_SaveReplacesWholeBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	backend := NewFileBackend(path)

	backend.Save([]byte(`["a very long first payload that should vanish"]`))
	if err := backend.Save([]byte(`[]`)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, _ := backend.Load()
	if string(got) != "[]" {
		t.Errorf("Load = %q, want %q", got, "[]")
	}
}

func TestFileBackend_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(filepath.Join(dir, "sessions.json"))

	for i := 0; i < 3; i++ {
		if err := backend.Save([]byte("[]")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestFileBackend_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	backend := NewFileBackend(path)

	if err := backend.Save([]byte("[]")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()

	data, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Error("fresh memory backend should load nil")
	}

	if err := backend.Save([]byte("hello")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, _ := backend.Load()
	if string(got) != "hello" {
		t.Errorf("Load = %q, want %q", got, "hello")
	}

	// The returned slice is a copy; mutating it does not corrupt the blob.
	got[0] = 'X'
	again, _ := backend.Load()
	if string(again) != "hello" {
		t.Errorf("blob mutated through returned slice: %q", again)
	}
}
