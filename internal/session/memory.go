package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"storefront-gateway/internal/model"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(id).clone(), nil
}

func (m *MemoryStore) Lookup(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, model.NewNotFoundError("cart session")
	}
	return s.clone(), nil
}

func (m *MemoryStore) MergeCookies(ctx context.Context, id string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreateLocked(id)
	now := m.now()
	mergeInto(s.Cookies, cookies, now)
	s.UpdatedAt = now
	return nil
}

func (m *MemoryStore) BindOrder(ctx context.Context, id string, orderID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return 0, model.NewNotFoundError("cart session")
	}
	if s.OrderID == 0 {
		s.OrderID = orderID
		s.UpdatedAt = m.now()
	}
	return s.OrderID, nil
}

func (m *MemoryStore) Unbind(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.OrderID = 0
		s.UpdatedAt = m.now()
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) ExpireOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) getOrCreateLocked(id string) *Session {
	s, ok := m.sessions[id]
	if !ok {
		now := m.now()
		s = &Session{ID: id, Cookies: map[string]string{}, CreatedAt: now, UpdatedAt: now}
		m.sessions[id] = s
	}
	return s
}
