package ports

import (
	"context"

	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
)

// SessionStore persists sessions so that a run can be resumed by a later request or process.
type SessionStore interface {
	// Save creates or replaces the session stored under session.ID.
	// IDs rejected by domain.ValidateID yield domain.ErrInvalidSessionID.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of stored sessions in ascending order.
	List(ctx context.Context) ([]string, error)
}
