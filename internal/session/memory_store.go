// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests and local iteration.
// Not durable; not suitable for production.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	cp := cloneSession(s)
	m.mu.Lock()
	m.sessions[s.ID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneSession(s)
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.sessions[id] = cp
	return cloneSession(cp), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// cloneSession deep-copies a session so callers never share mutable state
// with the store.
func cloneSession(s *Session) *Session {
	cp := *s
	if s.Questions != nil {
		cp.Questions = append([]Question(nil), s.Questions...)
	}
	if s.Transcript != nil {
		cp.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	}
	if s.Analysis != nil {
		a := *s.Analysis
		if s.Analysis.KeySkills != nil {
			a.KeySkills = append([]string(nil), s.Analysis.KeySkills...)
		}
		if s.Analysis.Gaps != nil {
			a.Gaps = append([]string(nil), s.Analysis.Gaps...)
		}
		cp.Analysis = &a
	}
	return &cp
}
