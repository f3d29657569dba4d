package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dmsharma/researcher/internal/research"
)

type entry struct {
	run       research.Run
	expiresAt time.Time
}

// Store is a mutex-guarded in-process run store with per-entry TTL.
type Store struct {
	ttl  time.Duration
	mu   sync.RWMutex
	runs map[string]entry
	now  func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, runs: make(map[string]entry), now: time.Now}
}

func (s *Store) Save(ctx context.Context, run research.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = entry{run: run, expiresAt: s.now().Add(s.ttl)}
	s.sweepLocked()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (research.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[id]
	if !ok || s.now().After(e.expiresAt) {
		return research.Run{}, false, nil
	}
	return e.run, true, nil
}

// sweepLocked drops expired entries. Called with the write lock held.
func (s *Store) sweepLocked() {
	now := s.now()
	for id, e := range s.runs {
		if now.After(e.expiresAt) {
			delete(s.runs, id)
		}
	}
}
