// Package climatechat assembles the multilingual climate-education chat
// backend and serves its HTTP API.
package climatechat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdantiq/climatechat/schema"
)

// ChatMessage is a single stored chat turn.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds one conversation's history.
type Session struct {
	ID        string        `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages"`
}

// Turns converts stored messages into classifier history turns.
func (s *Session) Turns() []schema.Turn {
	out := make([]schema.Turn, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, schema.Turn{Role: m.Role, Content: m.Content})
	}
	return out
}

// SessionStore persists conversations.
type SessionStore interface {
	Create() *Session
	// Get returns a snapshot of the session; mutating it does not affect
	// the stored conversation.
	Get(id string) (*Session, bool)
	Delete(id string) bool
	AddMessage(id string, msg ChatMessage) bool
	// ListRange returns sessions from offset with limit, newest first.
	ListRange(offset, limit int) []*Session
	// Clean keeps at most max sessions by recency.
	Clean(max int) error
}

// MemSessionStore keeps sessions in process memory.
type MemSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*Session)}
}

func (m *MemSessionStore) Create() *Session {
	s := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Messages: []ChatMessage{}}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *MemSessionStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snap := &Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Messages:  append([]ChatMessage{}, s.Messages...),
	}
	return snap, true
}

func (m *MemSessionStore) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) AddMessage(id string, msg ChatMessage) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.Messages = append(s.Messages, msg)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) list() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemSessionStore) ListRange(offset, limit int) []*Session {
	list := m.list()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(list) {
		return []*Session{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func (m *MemSessionStore) Clean(max int) error {
	if max <= 0 {
		return nil
	}
	list := m.list()
	if len(list) <= max {
		return nil
	}
	m.mu.Lock()
	for _, s := range list[max:] {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()
	return nil
}
