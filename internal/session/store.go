package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when a session exists neither in memory
// nor in the backend.
var ErrSessionNotFound = errors.New("session not found")

// Backend is the durable side of the store. Implementations must be safe
// for concurrent use.
type Backend interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// Store manages sessions: an in-memory index backed by durable storage.
// The index is shared between the foreground turn loop and the voice
// conversation goroutine, so all access goes through the store's lock.
type Store struct {
	backend  Backend
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewStore creates a session store over the given backend.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend:  backend,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Create registers a new session. If sessionID is empty, a time-based id
// with a random disambiguator is generated.
func (st *Store) Create(sessionID string, metadata map[string]any) *Session {
	if sessionID == "" {
		sessionID = generateID()
	}
	s := NewSession(sessionID, metadata)

	st.mu.Lock()
	st.sessions[sessionID] = s
	st.mu.Unlock()

	st.logger.Info("created session", zap.String("session", sessionID))
	return s
}

// Get returns a session by id, loading it from the backend on an
// in-memory miss.
func (st *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if ok {
		return s, nil
	}

	if st.backend != nil {
		loaded, err := st.backend.Load(ctx, sessionID)
		if err == nil {
			st.mu.Lock()
			// Another goroutine may have loaded it concurrently.
			if existing, ok := st.sessions[sessionID]; ok {
				st.mu.Unlock()
				return existing, nil
			}
			st.sessions[sessionID] = loaded
			st.mu.Unlock()
			st.logger.Info("loaded session from storage", zap.String("session", sessionID))
			return loaded, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			st.logger.Error("load session failed", zap.String("session", sessionID), zap.Error(err))
		}
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate resolves a session id to a session, creating one when the
// id is empty or unknown. It never fails.
func (st *Store) GetOrCreate(ctx context.Context, sessionID string, metadata map[string]any) *Session {
	if sessionID == "" {
		return st.Create("", metadata)
	}
	if s, err := st.Get(ctx, sessionID); err == nil {
		return s
	}
	return st.Create(sessionID, metadata)
}

// Save writes the session to durable storage. Failure is logged and
// returned; callers are free to continue the turn.
func (st *Store) Save(ctx context.Context, sessionID string) error {
	st.mu.RLock()
	s, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if !ok {
		st.logger.Warn("cannot save unknown session", zap.String("session", sessionID))
		return fmt.Errorf("save session %s: %w", sessionID, ErrSessionNotFound)
	}
	if st.backend == nil {
		return nil
	}
	if err := st.backend.Save(ctx, s.Snapshot()); err != nil {
		st.logger.Error("save session failed", zap.String("session", sessionID), zap.Error(err))
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes the session from memory and durable storage. Deleting a
// session that was never persisted is a no-op success.
func (st *Store) Delete(ctx context.Context, sessionID string) error {
	st.mu.Lock()
	delete(st.sessions, sessionID)
	st.mu.Unlock()

	if st.backend == nil {
		return nil
	}
	if err := st.backend.Delete(ctx, sessionID); err != nil {
		st.logger.Error("delete session failed", zap.String("session", sessionID), zap.Error(err))
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	st.logger.Info("deleted session", zap.String("session", sessionID))
	return nil
}

// Evict drops a session from the in-memory index without touching
// durable storage. The next Get reloads it from the backend.
func (st *Store) Evict(sessionID string) {
	st.mu.Lock()
	delete(st.sessions, sessionID)
	st.mu.Unlock()
}

func generateID() string {
	short := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("session_%d_%s", time.Now().Unix(), short)
}
