package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per Ref under Dir.
type FileStore[T any] struct {
	Dir string
}

type fileRecord[T any] struct {
	Meta     Meta `json:"meta"`
	Snapshot T    `json:"snapshot"`
}

func NewFileStore[T any](dir string) *FileStore[T] {
	return &FileStore[T]{Dir: dir}
}

func (s *FileStore[T]) path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, filepath.FromSlash(key)+".json"), nil
}

func (s *FileStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	path, err := s.path(ref)
	if err != nil {
		return zero, Meta{}, false, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("session: read %s: %w", path, err)
	}
	var record fileRecord[T]
	if err := json.Unmarshal(raw, &record); err != nil {
		return zero, Meta{}, false, fmt.Errorf("session: decode %s: %w", path, err)
	}
	return record.Snapshot, record.Meta, true, nil
}

func (s *FileStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}
	raw, err := json.MarshalIndent(fileRecord[T]{Meta: meta, Snapshot: snapshot}, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("session: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("session: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return Meta{}, fmt.Errorf("session: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Meta{}, fmt.Errorf("session: write %s: %w", path, err)
	}
	return cloneMeta(meta), nil
}
