package session

import (
	"sync"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleAgent     Role = "agent"
)

// Message is a single conversation turn. Messages are append-only:
// once added to a session they are never mutated or reordered.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp float64        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Turn is the reduced message form passed to LLM providers and agents.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a uniquely-identified conversation thread with history and
// scratch state. All mutation goes through its methods; concurrent turns
// from the voice loop and a foreground caller are serialized by the
// session's own lock.
type Session struct {
	SessionID   string         `json:"session_id"`
	Messages    []Message      `json:"messages"`
	State       map[string]any `json:"state"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   float64        `json:"created_at"`
	LastUpdated float64        `json:"last_updated"`

	mu sync.Mutex
}

// NewSession creates an empty session with the given id and metadata.
func NewSession(id string, metadata map[string]any) *Session {
	now := unixNow()
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Session{
		SessionID:   id,
		State:       map[string]any{},
		Metadata:    metadata,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// AddMessage appends a message and returns it.
func (s *Session) AddMessage(role Role, content string, metadata map[string]any) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: unixNow(),
		Metadata:  metadata,
	}
	s.Messages = append(s.Messages, msg)
	s.LastUpdated = unixNow()
	return msg
}

// UpdateState merges the given updates into the session's scratch state.
func (s *Session) UpdateState(updates map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range updates {
		s.State[k] = v
	}
	s.LastUpdated = unixNow()
}

// GetState returns a state value, or nil if the key is absent.
func (s *Session) GetState(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State[key]
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// History returns the conversation as reduced turns, most recent last.
// If max > 0, only the last max messages are returned.
func (s *Session) History(max int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.Messages
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	turns := make([]Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = Turn{Role: string(m.Role), Content: m.Content}
	}
	return turns
}

// Snapshot returns a consistent deep-enough copy for serialization.
func (s *Session) Snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &Session{
		SessionID:   s.SessionID,
		Messages:    make([]Message, len(s.Messages)),
		State:       make(map[string]any, len(s.State)),
		Metadata:    make(map[string]any, len(s.Metadata)),
		CreatedAt:   s.CreatedAt,
		LastUpdated: s.LastUpdated,
	}
	copy(cp.Messages, s.Messages)
	for k, v := range s.State {
		cp.State[k] = v
	}
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
