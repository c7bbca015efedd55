package traversal

import (
	"context"
	"sync"
	"testing"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewStore(zap.NewNop(), ttl)
	store.now = clock.Now
	return store, clock
}

func putSession(t *testing.T, store *Store) *Session {
	t.Helper()
	engine := mustEngine(t, newDefinition(text("Q1"), text("Q2")))
	session := engine.Start(survey.RespondentClassGeneral, time.Now())
	store.Put(session, engine)
	return session
}

func TestStore_WithAndDelete(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	session := putSession(t, store)

	err := store.With(session.ID, func(s *Session, e *Engine) (bool, error) {
		_, err := e.SubmitAnswer(s, "x", "")
		return false, err
	})
	require.NoError(t, err)

	err = store.With(session.ID, func(s *Session, e *Engine) (bool, error) {
		require.Equal(t, "Q2", s.CurrentQuestionID)
		return false, nil
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(session.ID))
	require.ErrorIs(t, store.Delete(session.ID), internal.ErrSessionNotFound)
	require.ErrorIs(t, store.With(session.ID, func(*Session, *Engine) (bool, error) { return false, nil }), internal.ErrSessionNotFound)
}

func TestStore_WithDiscard(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	session := putSession(t, store)

	err := store.With(session.ID, func(*Session, *Engine) (bool, error) { return true, nil })
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())
}

func TestStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	err := store.With(uuid.New(), func(*Session, *Engine) (bool, error) {
		t.Fatal("callback must not run for unknown sessions")
		return false, nil
	})
	require.ErrorIs(t, err, internal.ErrSessionNotFound)
}

func TestStore_Sweep(t *testing.T) {
	store, clock := newTestStore(10 * time.Minute)
	idle := putSession(t, store)

	clock.Advance(6 * time.Minute)
	active := putSession(t, store)

	clock.Advance(5 * time.Minute)
	require.Equal(t, 1, store.Sweep())
	require.ErrorIs(t, store.With(idle.ID, func(*Session, *Engine) (bool, error) { return false, nil }), internal.ErrSessionNotFound)

	// Touching a session postpones its expiry.
	require.NoError(t, store.With(active.ID, func(*Session, *Engine) (bool, error) { return false, nil }))
	clock.Advance(9 * time.Minute)
	require.Equal(t, 0, store.Sweep())
	require.Equal(t, 1, store.Len())
}

func TestStore_SerializesSessionAccess(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	session := putSession(t, store)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.With(session.ID, func(s *Session, _ *Engine) (bool, error) {
				s.History = append(s.History, "Q1")
				return false, nil
			})
		}()
	}
	wg.Wait()

	err := store.With(session.ID, func(s *Session, _ *Engine) (bool, error) {
		require.Len(t, s.History, workers)
		return false, nil
	})
	require.NoError(t, err)
}

func TestStore_RunStopsWithContext(t *testing.T) {
	store := NewStore(zap.NewNop(), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}
