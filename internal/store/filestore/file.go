// Package filestore keeps application data in JSON files under one
// directory. It suits a single server process; writes are serialized per
// file and replace the file atomically.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	SubscribersFile = "subscribers.json"
	SubmissionsFile = "submissions.json"
	UsersFile       = "users.json"
	StatsFile       = "stats.json"
	DispatchFile    = "dispatch_log.json"
)

type jsonFile[T any] struct {
	mu   sync.Mutex
	path string
}

func newJSONFile[T any](dir, name string) *jsonFile[T] {
	return &jsonFile[T]{path: filepath.Join(dir, name)}
}

// load returns the zero value when the file does not exist yet.
func (f *jsonFile[T]) load() (T, error) {
	var v T
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return v, fmt.Errorf("read %s: %w", filepath.Base(f.path), err)
	}
	if len(b) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", filepath.Base(f.path), err)
	}
	return v, nil
}

func (f *jsonFile[T]) save(v T) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(f.path), err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// update runs fn on the current contents under the file lock and saves the
// result unless fn returns an error.
func (f *jsonFile[T]) update(fn func(T) (T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.load()
	if err != nil {
		return err
	}
	v, err = fn(v)
	if err != nil {
		return err
	}
	return f.save(v)
}

func (f *jsonFile[T]) read() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}
