package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileKV stores each key as a JSON file inside a directory.
type FileKV struct {
	dir   string
	mutex sync.Mutex
	// written holds the hash of the last content this process wrote per
	// file. A nil entry records a delete.
	written map[string]*[sha256.Size]byte
}

// NewFileKV opens (or creates) the data directory
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileKV{dir: dir, written: make(map[string]*[sha256.Size]byte)}, nil
}

// Dir returns the data directory
func (f *FileKV) Dir() string {
	return f.dir
}

// PathFor returns the file backing key
func (f *FileKV) PathFor(key string) string {
	name := strings.NewReplacer(":", ".", "/", "_", `\`, "_").Replace(key)
	return filepath.Join(f.dir, name+".json")
}

// Get reads the file for key
func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	data, err := os.ReadFile(f.PathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set replaces the file for key. The write goes to a temp file first and is
// renamed into place so readers never see a half-written collection.
func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".songshelf-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	path := f.PathFor(key)
	previous, hadPrevious := f.written[path]
	sum := sha256.Sum256([]byte(value))
	f.written[path] = &sum

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		if hadPrevious {
			f.written[path] = previous
		} else {
			delete(f.written, path)
		}
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key
func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	path := f.PathFor(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	f.written[path] = nil
	return nil
}

// WroteLast reports whether the file at path still holds what this FileKV
// last wrote there, or is still absent after this FileKV deleted it.
func (f *FileKV) WroteLast(path string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	want, ok := f.written[filepath.Clean(path)]
	if !ok {
		return false
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return want == nil
	}
	if err != nil || want == nil {
		return false
	}
	return sha256.Sum256(data) == *want
}

// Close is a no-op; files are closed after every call.
func (f *FileKV) Close() error {
	return nil
}
