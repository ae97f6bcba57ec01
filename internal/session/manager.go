// Package session owns the per-visitor state: credential, current user and
// the results of the plan and menu flows. Handlers receive the session
// explicitly; nothing reads it from ambient state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/storage"
)

// UserLookup resolves a credential into its user.
type UserLookup interface {
	CurrentUser(ctx context.Context, token string) (*internal.User, error)
}

type Manager struct {
	repo    storage.SessionRepository
	users   UserLookup
	flights *Flights
	ttl     time.Duration
	logger  internal.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(repo storage.SessionRepository, users UserLookup, ttl time.Duration, logger internal.Logger) *Manager {
	return &Manager{
		repo:    repo,
		users:   users,
		flights: NewFlights(),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*sessionLock),
	}
}

func (m *Manager) Flights() *Flights { return m.flights }

// Create starts an anonymous session.
func (m *Manager) Create(ctx context.Context) (*internal.Session, error) {
	now := m.now().UTC()
	s := &internal.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		return nil, internal.InternalError(err)
	}
	return s, nil
}

// Load returns the stored session, or storage.ErrNotFound when it is unknown
// or expired.
func (m *Manager) Load(ctx context.Context, id string) (*internal.Session, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}
	s, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		return nil, storage.ErrNotFound
	}
	return s, nil
}

// LoadOrCreate is the load-on-start half of the lifecycle. created reports
// whether a fresh session replaced a missing one.
func (m *Manager) LoadOrCreate(ctx context.Context, id string) (s *internal.Session, created bool, err error) {
	s, err = m.Load(ctx, id)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Errorf("session: failed to load %s: %v", id, err)
		return nil, false, internal.InternalError(err)
	}
	s, err = m.Create(ctx)
	return s, err == nil, err
}

// Update applies fn to the freshest copy of the session and stores it.
// Calls for the same session run one at a time. If fn fails nothing is saved.
func (m *Manager) Update(ctx context.Context, id string, fn func(s *internal.Session) error) (*internal.Session, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.Load(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, internal.UnauthorizedError("Session expired")
		}
		return nil, internal.InternalError(err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(m.ttl)
	if err := m.repo.SaveSession(ctx, s); err != nil {
		m.logger.Errorf("session: failed to save %s: %v", id, err)
		return nil, internal.InternalError(err)
	}
	return s, nil
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// SignIn replaces the credential and user wholesale.
func (m *Manager) SignIn(ctx context.Context, id, token string, user *internal.User) (*internal.Session, error) {
	return m.Update(ctx, id, func(s *internal.Session) error {
		s.Token = token
		s.User = user
		return nil
	})
}

// Logout is the clear-on-logout half of the lifecycle. Plan and menu results
// stay, as they did in the browser.
func (m *Manager) Logout(ctx context.Context, id string) (*internal.Session, error) {
	return m.Update(ctx, id, func(s *internal.Session) error {
		s.Token = ""
		s.User = nil
		return nil
	})
}

// Boot checks a stored credential against the auth service and refreshes the
// user. A rejected credential is cleared; an unreachable service leaves it in
// place and reports the network error.
func (m *Manager) Boot(ctx context.Context, id string) (*internal.Session, error) {
	s, err := m.Load(ctx, id)
	if err != nil {
		return nil, internal.UnauthorizedError("Session expired")
	}
	if !s.Authenticated() {
		return s, nil
	}
	user, err := m.users.CurrentUser(ctx, s.Token)
	if err != nil {
		if internal.IsKind(err, internal.KindNetwork) || errors.Is(err, context.Canceled) {
			return s, err
		}
		m.logger.Infof("session: clearing rejected credential of %s: %v", id, err)
		return m.Logout(ctx, id)
	}
	return m.Update(ctx, id, func(s *internal.Session) error {
		s.User = user
		return nil
	})
}

// Destroy removes the session and cancels its in-flight requests.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.flights.Forget(id)
	return m.repo.DeleteSession(ctx, id)
}

// Purge drops expired sessions and the request tracking of every session
// that no longer loads; called by the janitor. Stores that expire keys on
// their own report zero purged sessions but still get their flights dropped.
func (m *Manager) Purge(ctx context.Context) (int, error) {
	n, err := m.repo.PurgeSessions(ctx, m.now())
	if err != nil {
		return n, err
	}
	for _, id := range m.flights.SessionIDs() {
		if _, err := m.Load(ctx, id); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return n, err
			}
			m.flights.Forget(id)
		}
	}
	return n, nil
}
