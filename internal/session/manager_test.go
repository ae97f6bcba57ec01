package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/storage"
)

type fakeUsers struct {
	user *internal.User
	err  error
}

func (f *fakeUsers) CurrentUser(ctx context.Context, token string) (*internal.User, error) {
	return f.user, f.err
}

func setupManager(t *testing.T, users UserLookup) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStorage(filepath.Join(dir, "s.json"), filepath.Join(dir, "h.json"), internal.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(store, users, time.Hour, internal.NopLogger())
}

func TestLoadOrCreate(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()

	s, created, err := m.LoadOrCreate(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.Authenticated())

	again, created, err := m.LoadOrCreate(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)
}

func TestLoad_ExpiredSessionIsGone(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignInAndLogout(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)

	_, err = m.Update(ctx, s.ID, func(s *internal.Session) error {
		s.LastPlan = &internal.PlanResult{BMR: 1, TDEE: 2}
		return nil
	})
	require.NoError(t, err)

	s, err = m.SignIn(ctx, s.ID, "tok", &internal.User{ID: 1, Email: "a@b.c"})
	require.NoError(t, err)
	assert.True(t, s.Authenticated())

	s, err = m.Logout(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, s.Token)
	assert.Nil(t, s.User)
	assert.NotNil(t, s.LastPlan)
}

func TestUpdate_FailingFuncSavesNothing(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = m.Update(ctx, s.ID, func(s *internal.Session) error {
		s.Token = "leaked"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
}

func TestUpdate_UnknownSession(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	_, err := m.Update(context.Background(), "nope", func(*internal.Session) error { return nil })
	assert.True(t, internal.IsKind(err, internal.KindUnauthorized))
}

func TestUpdate_Serialised(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, s.ID, func(s *internal.Session) error {
				if s.LastPlan == nil {
					s.LastPlan = &internal.PlanResult{}
				}
				s.LastPlan.BMR++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.LastPlan.BMR)
}

func TestBoot(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes user", func(t *testing.T) {
		m := setupManager(t, &fakeUsers{user: &internal.User{ID: 9, Email: "new@b.c"}})
		s, _ := m.Create(ctx)
		_, err := m.SignIn(ctx, s.ID, "tok", &internal.User{ID: 9, Email: "old@b.c"})
		require.NoError(t, err)

		s, err = m.Boot(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "new@b.c", s.User.Email)
	})

	t.Run("clears rejected credential", func(t *testing.T) {
		m := setupManager(t, &fakeUsers{err: internal.UnauthorizedError("")})
		s, _ := m.Create(ctx)
		_, err := m.SignIn(ctx, s.ID, "tok", &internal.User{ID: 9})
		require.NoError(t, err)

		s, err = m.Boot(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, s.Authenticated())
		assert.Nil(t, s.User)
	})

	t.Run("keeps credential when backend unreachable", func(t *testing.T) {
		m := setupManager(t, &fakeUsers{err: internal.NetworkError(errors.New("refused"))})
		s, _ := m.Create(ctx)
		_, err := m.SignIn(ctx, s.ID, "tok", &internal.User{ID: 9})
		require.NoError(t, err)

		_, err = m.Boot(ctx, s.ID)
		assert.True(t, internal.IsKind(err, internal.KindNetwork))
		got, err := m.Load(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "tok", got.Token)
	})
}

func TestPurge_DropsFlightsOfGoneSessions(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s, err := m.Create(ctx)
		require.NoError(t, err)
		_, _, release := m.Flights().Begin(ctx, s.ID, FlowPlan)
		release()
	}
	require.Equal(t, 100, m.Flights().Len())

	start := m.now()
	m.now = func() time.Time { return start.Add(2 * time.Hour) }
	live, err := m.Create(ctx)
	require.NoError(t, err)
	_, _, release := m.Flights().Begin(ctx, live.ID, FlowMenus)
	defer release()

	n, err := m.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, 1, m.Flights().Len())
	assert.Equal(t, []string{live.ID}, m.Flights().SessionIDs())
}

func TestDestroy(t *testing.T) {
	m := setupManager(t, &fakeUsers{})
	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)
	flightCtx, _, release := m.Flights().Begin(ctx, s.ID, FlowFoods)
	defer release()

	require.NoError(t, m.Destroy(ctx, s.ID))
	assert.Error(t, flightCtx.Err())
	assert.Zero(t, m.Flights().Len())
	_, err = m.Load(ctx, s.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
