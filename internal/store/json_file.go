package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
)

// jsonFile is a JSON array of T persisted in a single file.
// Every access reads the file again; writes replace it completely.
type jsonFile[T any] struct {
	mu   sync.RWMutex
	path string
}

func newJSONFile[T any](path string) *jsonFile[T] {
	return &jsonFile[T]{path: path}
}

// view loads the records under a read lock and hands them to fn.
func (f *jsonFile[T]) view(fn func([]T) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	items, err := f.load()
	if err != nil {
		return err
	}
	return fn(items)
}

// modify runs a read-modify-write cycle under the file's write lock.
// Nothing is written when fn returns an error.
func (f *jsonFile[T]) modify(fn func([]T) ([]T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.load()
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return f.save(updated)
}

// load reads the file. A missing or empty file is an empty collection.
func (f *jsonFile[T]) load() ([]T, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", catalogerrors.ErrStorage, f.path, err)
	}
	if len(b) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%w: malformed %s: %w", catalogerrors.ErrStorage, f.path, err)
	}
	return items, nil
}

// save writes to a temporary file in the same directory, syncs it and renames it over the original.
func (f *jsonFile[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", catalogerrors.ErrStorage, f.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", catalogerrors.ErrStorage, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(b); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %w", catalogerrors.ErrStorage, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", catalogerrors.ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %w", catalogerrors.ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %w", catalogerrors.ErrStorage, f.path, err)
	}
	return nil
}
