package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/eatbalance/web/internal"
)

// mealOrder is the order in which the backend schemes list their meals.
var mealOrder = []string{"desayuno", "comida", "merienda", "cena", "snack", "snack2"}

// LegacyOptionPrefix marks option ids synthesized for legacy slots.
const LegacyOptionPrefix = "legacy:"

// LegacyOptionID is the id given to the single menu of a legacy slot.
func LegacyOptionID(slot string) string { return LegacyOptionPrefix + slot }

type totalsWire struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carb_g"`
	FatG     float64 `json:"fat_g"`
}

func toTotalsWire(t internal.Totals) totalsWire {
	return totalsWire{Kcal: t.Kcal, ProteinG: t.ProteinG, CarbG: t.CarbG, FatG: t.FatG}
}

type generateAllBody struct {
	Totals totalsWire `json:"totals"`
	Scheme string     `json:"scheme"`
	TopN   int        `json:"top_n"`
}

type generateBody struct {
	Totals    totalsWire        `json:"totals"`
	Scheme    string            `json:"scheme"`
	Selection map[string]string `json:"selection"`
}

type planEnvelope struct {
	OK   bool                       `json:"ok"`
	Plan map[string]json.RawMessage `json:"plan"`
}

type optionWire struct {
	MenuID   string              `json:"menu_id"`
	MenuName string              `json:"menu_name"`
	Items    []internal.MenuItem `json:"items"`
	Achieved internal.MacroSet   `json:"achieved"`
	Errors   internal.MacroSet   `json:"errors"`
	Score    *float64            `json:"score"`
}

// slotWire covers both shapes a slot can take. Options is non-nil only for
// the native multi-option shape; the legacy shape carries one menu inline.
type slotWire struct {
	Target   internal.MacroSet   `json:"target"`
	Options  *[]optionWire       `json:"options"`
	MenuID   string              `json:"menu_id"`
	MenuName string              `json:"menu_name"`
	Items    []internal.MenuItem `json:"items"`
	Achieved internal.MacroSet   `json:"achieved"`
	Errors   internal.MacroSet   `json:"errors"`
}

// GenerateAll asks for the candidate menus of every meal slot and decodes
// either response shape into the canonical slot list.
func (c *Client) GenerateAll(ctx context.Context, totals internal.Totals, scheme string, topN int) ([]internal.SlotOptions, error) {
	var env planEnvelope
	body := generateAllBody{Totals: toTotalsWire(totals), Scheme: scheme, TopN: topN}
	if err := c.postJSON(ctx, "/plan/generate_all", "", body, &env); err != nil {
		return nil, err
	}
	return DecodeSlotOptions(env.Plan)
}

// DecodeSlotOptions normalises the per-slot payload. Legacy slots become a
// one-element option list with a deterministic id.
func DecodeSlotOptions(plan map[string]json.RawMessage) ([]internal.SlotOptions, error) {
	slots := make([]internal.SlotOptions, 0, len(plan))
	for _, name := range orderedSlots(plan) {
		var w slotWire
		if err := json.Unmarshal(plan[name], &w); err != nil {
			return nil, internal.InternalError(fmt.Errorf("decode slot %q: %w", name, err))
		}
		so := internal.SlotOptions{Slot: name, Target: w.Target}
		if w.Options != nil {
			for _, o := range *w.Options {
				so.Options = append(so.Options, o.option())
			}
		} else {
			so.Options = []internal.MenuOption{{
				ID:       LegacyOptionID(name),
				Name:     w.MenuName,
				Items:    w.Items,
				Achieved: w.Achieved,
				Errors:   w.Errors,
				Score:    ErrorScore(w.Errors),
			}}
		}
		slots = append(slots, so)
	}
	return slots, nil
}

func (o optionWire) option() internal.MenuOption {
	score := ErrorScore(o.Errors)
	if o.Score != nil {
		score = *o.Score
	}
	return internal.MenuOption{
		ID:       o.MenuID,
		Name:     o.MenuName,
		Items:    o.Items,
		Achieved: o.Achieved,
		Errors:   o.Errors,
		Score:    score,
	}
}

// ErrorScore ranks a menu: absolute macro deviation in grams plus a small
// weight for the calorie deviation. Lower is better.
func ErrorScore(e internal.MacroSet) float64 {
	return math.Abs(e.ProteinG) + math.Abs(e.CarbG) + math.Abs(e.FatG) + math.Abs(e.Kcal)/100
}

// Generate builds the final plan from one chosen menu per slot.
func (c *Client) Generate(ctx context.Context, totals internal.Totals, scheme string, selection map[string]string) ([]internal.ConfirmedMeal, error) {
	var env planEnvelope
	body := generateBody{Totals: toTotalsWire(totals), Scheme: scheme, Selection: selection}
	if err := c.postJSON(ctx, "/plan/generate", "", body, &env); err != nil {
		return nil, err
	}
	meals := make([]internal.ConfirmedMeal, 0, len(env.Plan))
	for _, name := range orderedSlots(env.Plan) {
		var w slotWire
		if err := json.Unmarshal(env.Plan[name], &w); err != nil {
			return nil, internal.InternalError(fmt.Errorf("decode meal %q: %w", name, err))
		}
		meals = append(meals, internal.ConfirmedMeal{
			Slot:     name,
			MenuName: w.MenuName,
			Items:    w.Items,
			Target:   w.Target,
			Achieved: w.Achieved,
			Errors:   w.Errors,
		})
	}
	return meals, nil
}

type saveMenuBody struct {
	PlanID      *int        `json:"plan_id,omitempty"`
	JSONPayload interface{} `json:"json_payload"`
}

type savedMenuWire struct {
	ID        int             `json:"id"`
	PlanID    *int            `json:"plan_id"`
	CreatedAt wireTime        `json:"created_at"`
	Payload   json.RawMessage `json:"json_payload"`
}

func (w savedMenuWire) menu() internal.SavedMenu {
	return internal.SavedMenu{ID: w.ID, PlanID: w.PlanID, CreatedAt: w.CreatedAt.Time, Payload: w.Payload}
}

func (c *Client) SaveMenu(ctx context.Context, token string, planID *int, payload interface{}) (*internal.SavedMenu, error) {
	var w savedMenuWire
	if err := c.postJSON(ctx, "/menus", token, saveMenuBody{PlanID: planID, JSONPayload: payload}, &w); err != nil {
		return nil, err
	}
	m := w.menu()
	return &m, nil
}

func (c *Client) ListMenus(ctx context.Context, token string) ([]internal.SavedMenu, error) {
	var ws []savedMenuWire
	if err := c.get(ctx, "/menus", token, nil, &ws); err != nil {
		return nil, err
	}
	out := make([]internal.SavedMenu, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.menu())
	}
	return out, nil
}

// orderedSlots lists known meals in day order, then anything else alphabetically.
func orderedSlots(plan map[string]json.RawMessage) []string {
	out := make([]string, 0, len(plan))
	known := make(map[string]bool, len(mealOrder))
	for _, m := range mealOrder {
		known[m] = true
		if _, ok := plan[m]; ok {
			out = append(out, m)
		}
	}
	var rest []string
	for name := range plan {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
