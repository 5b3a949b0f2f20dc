package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dmitrijs2005/studycircle/internal/filex"
)

// FileRepository stores all keys in a single JSON object of string values,
// the closest analogue to browser local storage. Each write rewrites the
// whole file atomically.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", r.path, key, err)
	}
	v, ok := values[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (r *FileRepository) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return fmt.Errorf("failed to set %s[%s]: %w", r.path, key, err)
	}
	values[key] = string(value)

	if err := r.store(values); err != nil {
		return fmt.Errorf("failed to set %s[%s]: %w", r.path, key, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", r.path, key, err)
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)

	if err := r.store(values); err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", r.path, key, err)
	}
	return nil
}

// load reads the whole file; a missing file is an empty store.
func (r *FileRepository) load() (map[string]string, error) {
	values := make(map[string]string)

	b, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("corrupt store file: %w", err)
	}
	return values, nil
}

func (r *FileRepository) store(values map[string]string) error {
	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(r.path, b, 0o600)
}
