package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

// Sessions implements ports.SessionStore using the local filesystem.
// It stores one JSON file per user, so a terminal chat can resume after a restart.
type Sessions struct {
	BasePath string
}

// NewSessions creates a session store in basePath.
// If basePath is empty, it defaults to ".youvisa/sessions".
func NewSessions(basePath string) *Sessions {
	if basePath == "" {
		basePath = filepath.Join(".youvisa", "sessions")
	}
	return &Sessions{BasePath: basePath}
}

func (s *Sessions) file(userID string) (string, error) {
	id, err := safeSegment(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, id+".json"), nil
}

// Save persists the session atomically.
func (s *Sessions) Save(ctx context.Context, userID string, session *domain.Session) error {
	path, err := s.file(userID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return writeAtomic(path, data, 0o600)
}

// Load retrieves the session from its JSON file.
func (s *Sessions) Load(ctx context.Context, userID string) (*domain.Session, error) {
	path, err := s.file(userID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes the session file.
func (s *Sessions) Delete(ctx context.Context, userID string) error {
	path, err := s.file(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the users with a session file.
func (s *Sessions) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var users []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".tmp-") || filepath.Ext(name) != ".json" {
			continue
		}
		users = append(users, strings.TrimSuffix(name, ".json"))
	}
	return users, nil
}

var _ ports.SessionStore = (*Sessions)(nil)
