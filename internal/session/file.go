package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileBackend persists one JSON file per session, named by session id,
// under a configurable directory created on demand.
type FileBackend struct {
	dir    string
	logger *zap.Logger
}

// NewFileBackend creates the session directory if needed.
func NewFileBackend(dir string, logger *zap.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir %s: %w", dir, err)
	}
	logger.Info("session file storage ready", zap.String("dir", dir))
	return &FileBackend{dir: dir, logger: logger}, nil
}

func (fb *FileBackend) path(sessionID string) string {
	return filepath.Join(fb.dir, sessionID+".json")
}

// Load reads and decodes a session file.
func (fb *FileBackend) Load(_ context.Context, sessionID string) (*Session, error) {
	data, err := os.ReadFile(fb.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", sessionID, err)
	}
	if s.State == nil {
		s.State = map[string]any{}
	}
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	return &s, nil
}

// Save writes the session atomically: a temp file in the same directory
// renamed over the target, so a crash mid-write never leaves a truncated
// session on disk.
func (fb *FileBackend) Save(_ context.Context, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp, err := os.CreateTemp(fb.dir, s.SessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fb.path(s.SessionID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Delete removes the session file. A missing file is a success.
func (fb *FileBackend) Delete(_ context.Context, sessionID string) error {
	if err := os.Remove(fb.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
