// internal/store/memory.go
//
// In-memory store of live game sessions.
// Sessions are never persisted: they live for as long as the process does, or
// until they are replaced, evicted or the store is closed.
//
// Characteristics:
//   - Stores *Entry values keyed by game ID, with an owner → game ID index.
//   - Putting a session for an owner tears down the owner's previous session,
//     so a new game always cancels the old game's timers.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get returns ErrNotFound for missing game IDs.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/journal"
)

// ErrNotFound is returned for unknown game IDs.
var ErrNotFound = errors.New("not found")

// Entry bundles a live session with its journal and bookkeeping.
type Entry struct {
	Session *game.Session
	Journal *journal.Journal
	Owner   string
	Mode    string
	Date    string // set for daily games

	lastSeen time.Time
}

// Store defines the session registry.
type Store interface {
	// Put registers e, closing and removing any earlier session of the same owner.
	Put(ctx context.Context, e *Entry) error

	// Get retrieves a session by game ID and marks it as recently used.
	Get(ctx context.Context, id string) (*Entry, error)

	// Evict closes and removes sessions not used since before.
	Evict(before time.Time) int

	// Len reports the number of live sessions.
	Len() int

	// Close tears down every session.
	Close()
}

type memory struct {
	mu      sync.RWMutex
	now     func() time.Time
	games   map[string]*Entry // keyed by Session.ID()
	byOwner map[string]string // owner → game ID
}

// NewMemoryStore constructs a new in-memory Store. now stamps usage; nil uses time.Now.
func NewMemoryStore(now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memory{
		now:     now,
		games:   make(map[string]*Entry),
		byOwner: make(map[string]string),
	}
}

func (m *memory) Put(ctx context.Context, e *Entry) error {
	if e == nil || e.Session == nil {
		return errors.New("store: nil session")
	}
	m.mu.Lock()
	var old *Entry
	if e.Owner != "" {
		if prevID, ok := m.byOwner[e.Owner]; ok && prevID != e.Session.ID() {
			old = m.games[prevID]
			delete(m.games, prevID)
		}
		m.byOwner[e.Owner] = e.Session.ID()
	}
	e.lastSeen = m.now()
	m.games[e.Session.ID()] = e
	m.mu.Unlock()

	if old != nil {
		old.Session.Close()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e, nil
}

func (m *memory) Evict(before time.Time) int {
	m.mu.Lock()
	var stale []*Entry
	for id, e := range m.games {
		if e.lastSeen.Before(before) {
			stale = append(stale, e)
			delete(m.games, id)
			if m.byOwner[e.Owner] == id {
				delete(m.byOwner, e.Owner)
			}
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.Session.Close()
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *memory) Close() {
	m.mu.Lock()
	all := make([]*Entry, 0, len(m.games))
	for _, e := range m.games {
		all = append(all, e)
	}
	m.games = make(map[string]*Entry)
	m.byOwner = make(map[string]string)
	m.mu.Unlock()

	for _, e := range all {
		e.Session.Close()
	}
}
