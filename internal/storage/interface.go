package storage

import (
	"context"
	"errors"
	"time"

	"github.com/eatbalance/web/internal"
)

// ErrNotFound is returned for unknown or expired records.
var ErrNotFound = errors.New("storage: not found")

type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*internal.Session, error)
	SaveSession(ctx context.Context, s *internal.Session) error
	DeleteSession(ctx context.Context, id string) error
	// PurgeSessions drops sessions expired at now and reports how many went.
	PurgeSessions(ctx context.Context, now time.Time) (int, error)
}

// HandoffRepository holds at most one handoff slot per session. Writing a
// slot replaces the previous one wholesale.
type HandoffRepository interface {
	PutHandoff(ctx context.Context, h *internal.Handoff) error
	GetHandoff(ctx context.Context, sessionID string, now time.Time) (*internal.Handoff, error)
	PurgeHandoffs(ctx context.Context, now time.Time) (int, error)
}

// Store is implemented by every backend.
type Store interface {
	SessionRepository
	HandoffRepository
	Close() error
}
