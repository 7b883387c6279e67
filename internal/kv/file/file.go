// Package file stores every key of the cashbook in one JSON snapshot file.
//
// Writes go to path+".tmp" and are renamed over the real file, so a crash
// mid-write leaves the previous snapshot intact.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cashbook/internal/kv"
)

// Snapshot is the on-disk layout.
type Snapshot struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Values    map[string]string `json:"values"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

var _ kv.Store = (*Store)(nil)

// New returns a store backed by path. The parent directory is created on
// first write.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) (*kv.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	v, ok := snap.Values[key]
	if !ok {
		return nil, nil
	}
	return &kv.Record{Value: v}, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	snap.Values[key] = value
	snap.UpdatedAt = time.Now().UTC()
	return s.save(snap)
}

// load returns an empty snapshot when the file does not exist yet.
func (s *Store) load() (Snapshot, error) {
	snap := Snapshot{Values: map[string]string{}}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if snap.Values == nil {
		snap.Values = map[string]string{}
	}
	return snap, nil
}

func (s *Store) save(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
