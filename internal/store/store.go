package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Repository is the swappable persistence backend. Both implementations treat
// the state as one opaque snapshot; there is no partial update.
type Repository interface {
	Load() (*State, error)
	Save(*State) error
	Close() error
}

// ErrNotFound is returned by Load when no snapshot has ever been saved.
var ErrNotFound = errors.New("store: no snapshot")

// Store guards the in-memory state and persists a full snapshot after every
// successful Update. All reads and writes go through the mutex, so callbacks
// may freely mutate the state they are handed.
type Store struct {
	mu   sync.Mutex
	repo Repository
	st   *State
}

func Open(repo Repository) (*Store, error) {
	st, err := repo.Load()
	if errors.Is(err, ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		st = Seed()
		if err := repo.Save(st); err != nil {
			return nil, fmt.Errorf("store: seed: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	return &Store{repo: repo, st: st}, nil
}

// View runs fn with read access to the state.
func (s *Store) View(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// Update runs fn and, if it returns nil, rewrites the whole snapshot. An error
// from fn leaves the persisted snapshot untouched, but in-memory mutations made
// before the error are not rolled back; mutators should validate first.
func (s *Store) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.st); err != nil {
		return err
	}
	return s.repo.Save(s.st)
}

func (s *Store) Close() error {
	return s.repo.Close()
}
