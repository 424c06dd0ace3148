package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository keeps the snapshot as a pretty-printed JSON document. Saves go
// through a temp file and rename so a crash mid-write leaves the previous
// snapshot intact.
type FileRepository struct {
	Path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{Path: path}
}

func (f *FileRepository) Load() (*State, error) {
	b, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st := &State{}
	if err := json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return st, nil
}

func (f *FileRepository) Save(st *State) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileRepository) Close() error { return nil }
