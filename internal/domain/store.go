package domain

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps live sessions in memory, keyed by ID. Sessions are deliberately
// never persisted; abandoned ones are evicted after a TTL so the map does not
// grow without bound.
type Store struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{ttl: ttl, sessions: make(map[string]*entry)}
}

// Create registers a fresh idle session under a random ID.
func (st *Store) Create() *Session {
	sess := NewSession(uuid.NewString())
	st.mu.Lock()
	st.sessions[sess.ID()] = &entry{session: sess, lastSeen: time.Now()}
	st.mu.Unlock()
	return sess
}

// Get returns the session for id and refreshes its eviction deadline.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = time.Now()
	return e.session, nil
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// EvictExpired drops sessions idle for longer than the TTL and returns how
// many were removed. Sessions with a generation in flight are kept so a
// completing attempt still has somewhere to land.
func (st *Store) EvictExpired(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	evicted := 0
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) < st.ttl {
			continue
		}
		if e.session.Snapshot().Phase == PhaseProcessing {
			continue
		}
		delete(st.sessions, id)
		evicted++
	}
	return evicted
}

// Sweep runs EvictExpired on a ticker until ctx is cancelled.
func (st *Store) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.EvictExpired(now)
		}
	}
}
