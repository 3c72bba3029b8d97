package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	"log/slog"
)

// FileStore keeps all records in memory and mirrors every mutation to a
// single JSON snapshot file: a mapping from user ID to record. Writes go
// through a temp file and an atomic rename so a crash mid-write cannot
// leave a torn snapshot.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records map[string]profile.Profile
	closed  bool
}

// NewFileStore constructs a store backed by the given snapshot path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		records: make(map[string]profile.Profile),
	}
}

// Load reads the snapshot into memory. A missing file initializes an
// empty store and is not an error.
func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = make(map[string]profile.Profile)
			if logger.Store != nil {
				logger.Store.Info("snapshot missing, starting empty",
					slog.String("event", "store.load"),
					slog.String("backend", "file"),
					slog.String("path", s.path),
				)
			}
			return nil
		}
		return fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	raw := make(map[string]profile.Profile)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	records := make(map[string]profile.Profile, len(raw))
	for id, p := range raw {
		p.UserID = id
		records[id] = p.Clamp()
	}
	s.records = records
	if logger.Store != nil {
		logger.Store.Info("snapshot loaded",
			slog.String("event", "store.load"),
			slog.String("backend", "file"),
			slog.String("path", s.path),
			slog.Int("count", len(records)),
		)
	}
	return nil
}

// Get returns the record for the user without mutating the store.
func (s *FileStore) Get(_ context.Context, userID string) (profile.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return profile.Profile{}, false, ErrClosed
	}
	p, ok := s.records[userID]
	return p, ok, nil
}

// Upsert replaces the record wholesale and persists the full snapshot.
func (s *FileStore) Upsert(_ context.Context, p profile.Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("storage: empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, existed := s.records[p.UserID]
	s.records[p.UserID] = p.Clamp()
	if err := s.persistLocked(); err != nil {
		// Roll the in-memory state back so memory and disk stay in step.
		if existed {
			s.records[p.UserID] = prev
		} else {
			delete(s.records, p.UserID)
		}
		return fmt.Errorf("persist after upsert: %w", err)
	}
	return nil
}

// Delete removes the record if present and persists; absent is a no-op.
func (s *FileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, existed := s.records[userID]
	if !existed {
		return nil
	}
	delete(s.records, userID)
	if err := s.persistLocked(); err != nil {
		s.records[userID] = prev
		return fmt.Errorf("persist after delete: %w", err)
	}
	return nil
}

// All returns a copy of every record.
func (s *FileStore) All(_ context.Context) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]profile.Profile, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p)
	}
	return out, nil
}

// Close flushes nothing (writes are synchronous) and marks the store closed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// persistLocked writes the full snapshot via temp file + rename.
// Callers must hold the write lock.
func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	if logger.Store != nil {
		logger.Store.Debug("snapshot persisted",
			slog.String("event", "store.persist"),
			slog.String("backend", "file"),
			slog.String("path", s.path),
			slog.Int("count", len(s.records)),
		)
	}
	return nil
}
