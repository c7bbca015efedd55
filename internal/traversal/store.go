package traversal

import (
	"context"
	"sync"
	"time"

	"NYCU-SDC/survey-backend/internal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minSweepInterval = time.Second

type entry struct {
	mu       sync.Mutex
	session  *Session
	engine   *Engine
	lastSeen time.Time
	removed  bool
}

// Store keeps live sessions in memory. Sessions are never persisted; a
// restart drops every unfinished traversal.
type Store struct {
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func NewStore(logger *zap.Logger, ttl time.Duration) *Store {
	return &Store{
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]*entry),
	}
}

// Put registers a new session together with the engine that drives it.
func (s *Store) Put(session *Session, engine *Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[session.ID] = &entry{
		session:  session,
		engine:   engine,
		lastSeen: s.now(),
	}
}

// With runs fn while holding the session's lock, so requests of the same
// respondent are applied one at a time. Returning discard=true removes the
// session afterwards.
func (s *Store) With(id uuid.UUID, fn func(session *Session, engine *Engine) (discard bool, err error)) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return internal.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Lost a race with Delete or the janitor.
	if e.removed {
		return internal.ErrSessionNotFound
	}

	e.lastSeen = s.now()
	discard, err := fn(e.session, e.engine)
	if discard {
		s.remove(id, e)
	}
	return err
}

func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return internal.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return internal.ErrSessionNotFound
	}
	s.remove(id, e)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions currently in use are skipped.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	candidates := make(map[uuid.UUID]*entry, len(s.entries))
	for id, e := range s.entries {
		candidates[id] = e
	}
	s.mu.Unlock()

	removed := 0
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		if !e.removed && e.lastSeen.Before(cutoff) {
			s.remove(id, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Run sweeps expired sessions until ctx is done.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Session janitor started", zap.Duration("ttl", s.ttl), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session janitor stopped", zap.Int("remaining_sessions", s.Len()))
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// remove must be called with e.mu held.
func (s *Store) remove(id uuid.UUID, e *entry) {
	e.removed = true
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}
