package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/session"
	"github.com/eatbalance/web/internal/storage"
)

type noUsers struct{}

func (noUsers) CurrentUser(ctx context.Context, token string) (*internal.User, error) {
	return nil, internal.UnauthorizedError("")
}

type testEnv struct {
	store    *storage.FileStorage
	sessions *session.Manager
	handoffs *HandoffService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStorage(filepath.Join(dir, "s.json"), filepath.Join(dir, "h.json"), internal.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &testEnv{
		store:    store,
		sessions: session.NewManager(store, noUsers{}, time.Hour, internal.NopLogger()),
		handoffs: NewHandoffService(store, 30*time.Minute, internal.NopLogger()),
	}
}

func (e *testEnv) newSession(t *testing.T, token string) *internal.Session {
	t.Helper()
	ctx := context.Background()
	s, err := e.sessions.Create(ctx)
	require.NoError(t, err)
	if token != "" {
		s, err = e.sessions.SignIn(ctx, s.ID, token, &internal.User{ID: 1, Email: "ana@example.com"})
		require.NoError(t, err)
	}
	return s
}

func (e *testEnv) reload(t *testing.T, id string) *internal.Session {
	t.Helper()
	s, err := e.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	return s
}

// fakePlanBackend records calls; each hook may be nil.
type fakePlanBackend struct {
	mu          sync.Mutex
	calls       []string
	prompts     []string
	generate    func(ctx context.Context, req internal.PlanRequest) (*internal.PlanResult, error)
	fromPrompt  func(ctx context.Context, prompt string) (*internal.PlanResult, error)
	fromForm    func(ctx context.Context, req internal.PlanRequest) (*internal.PlanResult, error)
	latest      func(ctx context.Context) (*internal.PlanResult, error)
	lastRequest internal.PlanRequest
}

func (f *fakePlanBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePlanBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlanBackend) GeneratePlan(ctx context.Context, token string, req internal.PlanRequest) (*internal.PlanResult, error) {
	f.record("generate")
	f.mu.Lock()
	f.lastRequest = req
	f.mu.Unlock()
	if f.generate == nil {
		return &internal.PlanResult{BMR: 1700, TDEE: 2600, ProteinG: 150, CarbG: 300, FatG: 80, Source: "structured"}, nil
	}
	return f.generate(ctx, req)
}

func (f *fakePlanBackend) PlanFromPrompt(ctx context.Context, prompt string) (*internal.PlanResult, error) {
	f.record("prompt")
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.fromPrompt == nil {
		return &internal.PlanResult{BMR: 1600, TDEE: 2400, ProteinG: 140, CarbG: 280, FatG: 70, Source: "prompt"}, nil
	}
	return f.fromPrompt(ctx, prompt)
}

func (f *fakePlanBackend) PlanFromForm(ctx context.Context, req internal.PlanRequest) (*internal.PlanResult, error) {
	f.record("form")
	if f.fromForm == nil {
		return &internal.PlanResult{BMR: 1500, TDEE: 2300, Source: "form"}, nil
	}
	return f.fromForm(ctx, req)
}

func (f *fakePlanBackend) LatestPlan(ctx context.Context, token string) (*internal.PlanResult, error) {
	f.record("latest")
	if f.latest == nil {
		return nil, internal.NotFoundError("none")
	}
	return f.latest(ctx)
}

type fakeMenuBackend struct {
	mu            sync.Mutex
	generateAll   int
	generate      int
	slots         []internal.SlotOptions
	meals         []internal.ConfirmedMeal
	lastSelection map[string]string
	saved         []interface{}
	err           error
}

func (f *fakeMenuBackend) GenerateAll(ctx context.Context, totals internal.Totals, scheme string, topN int) ([]internal.SlotOptions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateAll++
	if f.err != nil {
		return nil, f.err
	}
	return f.slots, nil
}

func (f *fakeMenuBackend) Generate(ctx context.Context, totals internal.Totals, scheme string, selection map[string]string) ([]internal.ConfirmedMeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generate++
	f.lastSelection = selection
	if f.err != nil {
		return nil, f.err
	}
	// Like the backend, only the selected slots come back.
	var out []internal.ConfirmedMeal
	for _, meal := range f.meals {
		if _, ok := selection[meal.Slot]; ok {
			out = append(out, meal)
		}
	}
	return out, nil
}

func (f *fakeMenuBackend) SaveMenu(ctx context.Context, token string, planID *int, payload interface{}) (*internal.SavedMenu, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, payload)
	return &internal.SavedMenu{ID: len(f.saved), PlanID: planID}, nil
}

func (f *fakeMenuBackend) ListMenus(ctx context.Context, token string) ([]internal.SavedMenu, error) {
	return []internal.SavedMenu{{ID: 1}}, nil
}

func (f *fakeMenuBackend) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateAll + f.generate
}

type fakeFoodBackend struct {
	mu        sync.Mutex
	foods     []internal.Food
	detail    *internal.FoodDetail
	recorded  []string
	recordErr error
	search    func(ctx context.Context, name string) ([]internal.Food, error)
}

func (f *fakeFoodBackend) SearchProducts(ctx context.Context, name string) ([]internal.Food, error) {
	if f.search != nil {
		return f.search(ctx, name)
	}
	return f.foods, nil
}

func (f *fakeFoodBackend) ProductByCode(ctx context.Context, code string) (*internal.FoodDetail, error) {
	if f.detail == nil {
		return nil, internal.NotFoundError("Producto no encontrado")
	}
	return f.detail, nil
}

func (f *fakeFoodBackend) AddRecentSearch(ctx context.Context, token, term, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, term)
	return f.recordErr
}

func (f *fakeFoodBackend) RecentSearches(ctx context.Context, token string, limit int) ([]internal.RecentSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]internal.RecentSearch, 0, len(f.recorded))
	for _, term := range f.recorded {
		out = append(out, internal.RecentSearch{Term: term, Source: RecentSearchSource})
	}
	return out, nil
}

func floatPtr(v float64) *float64 { return &v }
