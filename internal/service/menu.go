package service

import (
	"context"
	"sort"
	"strings"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/backend"
	"github.com/eatbalance/web/internal/session"
)

// Meal schemes the menu generator understands.
var Schemes = []string{"3", "4", "5", "5_plus_snack"}

// ExploreRequest asks for candidate menus. Scheme and TopN fall back to the
// configured defaults when empty.
type ExploreRequest struct {
	Totals internal.Totals `json:"totals"`
	Scheme string          `json:"scheme" validate:"omitempty,oneof=3 4 5 5_plus_snack"`
	TopN   int             `json:"top_n" validate:"omitempty,gte=1,lte=10"`
}

type SelectRequest struct {
	Slot     string `json:"slot" validate:"required"`
	OptionID string `json:"option_id" validate:"required"`
}

type MenuService struct {
	backend       MenuBackend
	sessions      *session.Manager
	defaultScheme string
	optionCount   int
	logger        internal.Logger
}

func NewMenuService(client MenuBackend, sessions *session.Manager, defaultScheme string, optionCount int, logger internal.Logger) *MenuService {
	return &MenuService{
		backend:       client,
		sessions:      sessions,
		defaultScheme: defaultScheme,
		optionCount:   optionCount,
		logger:        logger,
	}
}

func (m *MenuService) DefaultScheme() string { return m.defaultScheme }

// Explore fetches the candidate menus of every slot and selects the first
// option of each. A new exploration discards any confirmed menu.
func (m *MenuService) Explore(ctx context.Context, sess *internal.Session, req ExploreRequest) (*internal.MenuExploration, error) {
	if req.Scheme == "" {
		req.Scheme = m.defaultScheme
	}
	if req.TopN == 0 {
		req.TopN = m.optionCount
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	ctx, gen, release := m.sessions.Flights().Begin(ctx, sess.ID, session.FlowMenus)
	defer release()

	slots, err := m.backend.GenerateAll(ctx, req.Totals, req.Scheme, req.TopN)
	if err != nil {
		return nil, backendErr(ctx, err)
	}

	exp := &internal.MenuExploration{
		Scheme:    req.Scheme,
		Totals:    req.Totals,
		Slots:     slots,
		Selection: DefaultSelection(slots),
	}
	if _, err := commit(ctx, m.sessions, sess.ID, session.FlowMenus, gen, func(s *internal.Session) error {
		s.Menus = exp
		s.Confirmed = nil
		return nil
	}); err != nil {
		return nil, err
	}
	return exp, nil
}

// DefaultSelection picks the first option of every slot that has one.
func DefaultSelection(slots []internal.SlotOptions) map[string]string {
	sel := make(map[string]string, len(slots))
	for _, so := range slots {
		if len(so.Options) > 0 {
			sel[so.Slot] = so.Options[0].ID
		}
	}
	return sel
}

// Select changes the chosen option of one slot.
func (m *MenuService) Select(ctx context.Context, sess *internal.Session, req SelectRequest) (*internal.MenuExploration, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	updated, err := m.sessions.Update(ctx, sess.ID, func(s *internal.Session) error {
		if s.Menus == nil {
			return internal.NotFoundError("No menu options yet; generate them first")
		}
		slot, ok := findSlot(s.Menus.Slots, req.Slot)
		if !ok {
			return internal.ValidationError("Unknown meal "+req.Slot, nil)
		}
		if _, ok := slot.Option(req.OptionID); !ok {
			return internal.ValidationError("Unknown option "+req.OptionID+" for "+req.Slot, nil)
		}
		if s.Menus.Selection == nil {
			s.Menus.Selection = map[string]string{}
		}
		s.Menus.Selection[req.Slot] = req.OptionID
		s.Confirmed = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Menus, nil
}

// CheckSelection requires exactly one known option for every explored slot
// and nothing for slots that were not explored.
func CheckSelection(exp *internal.MenuExploration, selection map[string]string) error {
	var missing, unknown []string
	for _, so := range exp.Slots {
		id, ok := selection[so.Slot]
		if !ok || id == "" {
			missing = append(missing, so.Slot)
			continue
		}
		if _, ok := so.Option(id); !ok {
			unknown = append(unknown, so.Slot)
		}
	}
	for slot := range selection {
		if _, ok := findSlot(exp.Slots, slot); !ok {
			unknown = append(unknown, slot)
		}
	}
	switch {
	case len(missing) > 0:
		return internal.ValidationError("Choose one menu for: "+strings.Join(missing, ", "), nil)
	case len(unknown) > 0:
		sort.Strings(unknown)
		return internal.ValidationError("Invalid menu choice for: "+strings.Join(unknown, ", "), nil)
	}
	return nil
}

// Confirm builds the final plan from the selection. selection replaces the
// stored one when given. Incomplete selections are rejected before any
// backend call, and the backend is skipped when only legacy slots remain.
func (m *MenuService) Confirm(ctx context.Context, sess *internal.Session, selection map[string]string) (*internal.ConfirmedMenu, error) {
	exp := sess.Menus
	if exp == nil {
		return nil, internal.NotFoundError("No menu options yet; generate them first")
	}
	if selection == nil {
		selection = exp.Selection
	}
	if err := CheckSelection(exp, selection); err != nil {
		return nil, err
	}

	ctx, gen, release := m.sessions.Flights().Begin(ctx, sess.ID, session.FlowConfirm)
	defer release()

	var generated []internal.ConfirmedMeal
	if native := backendSelection(selection); len(native) > 0 {
		var err error
		generated, err = m.backend.Generate(ctx, exp.Totals, exp.Scheme, native)
		if err != nil {
			return nil, backendErr(ctx, err)
		}
	}
	meals := mergeMeals(exp, selection, generated)

	confirmed := &internal.ConfirmedMenu{
		Scheme:    exp.Scheme,
		Totals:    exp.Totals,
		Selection: selection,
		Meals:     meals,
	}
	if _, err := commit(ctx, m.sessions, sess.ID, session.FlowConfirm, gen, func(s *internal.Session) error {
		if s.Menus != nil {
			s.Menus.Selection = selection
		}
		s.Confirmed = confirmed
		return nil
	}); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// mergeMeals lays the day out in exploration order. Legacy slots already
// carry their only menu, so they are confirmed from the exploration; every
// other slot comes from the backend's answer.
func mergeMeals(exp *internal.MenuExploration, selection map[string]string, generated []internal.ConfirmedMeal) []internal.ConfirmedMeal {
	bySlot := make(map[string]internal.ConfirmedMeal, len(generated))
	for _, meal := range generated {
		bySlot[meal.Slot] = meal
	}
	meals := make([]internal.ConfirmedMeal, 0, len(exp.Slots))
	for _, so := range exp.Slots {
		id := selection[so.Slot]
		if strings.HasPrefix(id, backend.LegacyOptionPrefix) {
			opt, _ := so.Option(id)
			meals = append(meals, internal.ConfirmedMeal{
				Slot:     so.Slot,
				MenuName: opt.Name,
				Items:    opt.Items,
				Target:   so.Target,
				Achieved: opt.Achieved,
				Errors:   opt.Errors,
			})
			continue
		}
		if meal, ok := bySlot[so.Slot]; ok {
			meals = append(meals, meal)
			delete(bySlot, so.Slot)
		}
	}
	for _, meal := range generated {
		if _, ok := bySlot[meal.Slot]; ok {
			meals = append(meals, meal)
		}
	}
	return meals
}

// backendSelection drops synthesized legacy ids; the backend never issued them.
func backendSelection(selection map[string]string) map[string]string {
	out := make(map[string]string, len(selection))
	for slot, id := range selection {
		if !strings.HasPrefix(id, backend.LegacyOptionPrefix) {
			out[slot] = id
		}
	}
	return out
}

func findSlot(slots []internal.SlotOptions, name string) (internal.SlotOptions, bool) {
	for _, so := range slots {
		if so.Slot == name {
			return so, true
		}
	}
	return internal.SlotOptions{}, false
}

// Confirmed returns the session's confirmed menu.
func (m *MenuService) Confirmed(sess *internal.Session) (*internal.ConfirmedMenu, error) {
	if sess.Confirmed == nil {
		return nil, internal.NotFoundError("No confirmed menu yet")
	}
	return sess.Confirmed, nil
}

// Save stores the confirmed menu on the user's account, linked to the
// current plan when it came from the backend's plan store.
func (m *MenuService) Save(ctx context.Context, sess *internal.Session) (*internal.SavedMenu, error) {
	if !sess.Authenticated() {
		return nil, internal.UnauthorizedError("Login required")
	}
	menu, err := m.Confirmed(sess)
	if err != nil {
		return nil, err
	}
	var planID *int
	if sess.LastPlan != nil && sess.LastPlan.PlanID > 0 {
		id := sess.LastPlan.PlanID
		planID = &id
	}
	saved, err := m.backend.SaveMenu(ctx, sess.Token, planID, menu)
	if err != nil {
		m.logger.Warnf("menus: save failed for session %s: %v", sess.ID, err)
		return nil, err
	}
	return saved, nil
}

func (m *MenuService) ListSaved(ctx context.Context, sess *internal.Session) ([]internal.SavedMenu, error) {
	if !sess.Authenticated() {
		return nil, internal.UnauthorizedError("Login required")
	}
	return m.backend.ListMenus(ctx, sess.Token)
}

// Export renders the confirmed menu as an .xlsx workbook.
func (m *MenuService) Export(sess *internal.Session) ([]byte, error) {
	menu, err := m.Confirmed(sess)
	if err != nil {
		return nil, err
	}
	data, err := ExportXLSX(menu)
	if err != nil {
		m.logger.Errorf("menus: export failed for session %s: %v", sess.ID, err)
		return nil, internal.InternalError(err)
	}
	return data, nil
}
