package ports

import (
	"context"

	"github.com/aretw0/youvisa/pkg/domain"
)

// SessionStore persists the ephemeral conversation state of each user.
type SessionStore interface {
	// Save persists the session for a given user id.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Load retrieves the session for a given user id.
	// Returns domain.ErrSessionNotFound if there is none.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the user ids with a live session.
	List(ctx context.Context) ([]string, error)
}
