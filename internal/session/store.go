// Package session holds the in-memory session store. Sessions live for the
// process lifetime unless a TTL is configured; there is no persistence.
package session

import (
	"sync"
	"time"

	"github.com/graphcare/backend/internal/domain"
)

type entry struct {
	mu sync.Mutex
	s  *domain.Session
}

// Store maps session ids to accumulated session state. Mutations go through
// Update, which holds a per-session lock so the append-note + recompute
// sequence is atomic (single writer per session).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

const sweepInterval = time.Minute

// NewStore creates a Store. ttl == 0 disables expiry; otherwise sessions
// idle longer than ttl are evicted lazily on access and by a background
// sweep.
func NewStore(ttl time.Duration) *Store {
	st := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go st.sweeper()
	}
	return st
}

// Close stops the background sweeper.
func (st *Store) Close() {
	st.once.Do(func() { close(st.done) })
}

// Create inserts a new session. Intake generates globally unique ids, so an
// existing entry is never overwritten silently by accident; the newest state
// wins.
func (st *Store) Create(s *domain.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = &entry{s: s}
}

// Get returns a snapshot copy of the session, or false if the id is unknown
// or expired. The notes slice is cloned so callers cannot alias live state.
func (st *Store) Get(id string) (*domain.Session, bool) {
	e := st.lookup(id)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := *e.s
	snap.Notes = append([]string(nil), e.s.Notes...)
	return &snap, true
}

// Update mutates the session under its per-session lock. The mutation
// applies directly to the live state; an error from fn propagates but does
// not roll back changes fn already made.
func (st *Store) Update(id string, fn func(*domain.Session) error) error {
	e := st.lookup(id)
	if e == nil {
		return &domain.NotFoundError{Resource: "session", ID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.s)
	e.s.UpdatedAt = time.Now()
	return err
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// lookup fetches the entry, evicting it first if expired.
func (st *Store) lookup(id string) *entry {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil
	}
	if st.expired(e) {
		st.mu.Lock()
		if cur, ok := st.sessions[id]; ok && st.expired(cur) {
			delete(st.sessions, id)
		}
		st.mu.Unlock()
		return nil
	}
	return e
}

func (st *Store) expired(e *entry) bool {
	if st.ttl <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.s.UpdatedAt
	if last.IsZero() {
		last = e.s.CreatedAt
	}
	return time.Since(last) > st.ttl
}

func (st *Store) sweeper() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-st.done:
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Sweep evicts all expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, e := range st.sessions {
		if st.expired(e) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
