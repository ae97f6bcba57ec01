package internal

import (
	"encoding/json"
	"time"
)

type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Backend returns the token the EatBalance API expects.
func (s Sex) Backend() string {
	if s == SexFemale {
		return "mujer"
	}
	return "hombre"
}

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

var activityBackend = map[ActivityLevel]string{
	ActivitySedentary:  "sedentario",
	ActivityLight:      "ligero",
	ActivityModerate:   "moderado",
	ActivityActive:     "activo",
	ActivityVeryActive: "muy activo",
}

func (a ActivityLevel) Backend() string { return activityBackend[a] }

type Goal string

const (
	GoalMaintenance Goal = "maintenance"
	GoalSurplus     Goal = "surplus"
	GoalDeficit     Goal = "deficit"
)

var goalBackend = map[Goal]string{
	GoalMaintenance: "mantenimiento",
	GoalSurplus:     "superavit",
	GoalDeficit:     "deficit",
}

func (g Goal) Backend() string { return goalBackend[g] }

// PlanRequest is only ever built complete; see planparse.Extract.
type PlanRequest struct {
	Sex           Sex           `json:"sex" validate:"required,oneof=male female"`
	Age           int           `json:"age" validate:"required,gt=0,lt=130"`
	HeightCM      float64       `json:"height_cm" validate:"required,gt=0"`
	WeightKG      float64       `json:"weight_kg" validate:"required,gt=0"`
	ActivityLevel ActivityLevel `json:"activity_level" validate:"required,oneof=sedentary light moderate active very_active"`
	Goal          Goal          `json:"goal" validate:"required,oneof=maintenance surplus deficit"`
}

type MacroSplit struct {
	Carbs   float64 `json:"carbs"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
}

// PlanResult is what the backend computed. It is never modified here.
type PlanResult struct {
	PlanID         int         `json:"plan_id,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
	BMR            float64     `json:"bmr"`
	TDEE           float64     `json:"tdee"`
	TargetCalories *float64    `json:"target_calories,omitempty"`
	ProteinG       float64     `json:"protein_g"`
	CarbG          float64     `json:"carb_g"`
	FatG           float64     `json:"fat_g"`
	Split          *MacroSplit `json:"split,omitempty"`
	Source         string      `json:"source"`
}

// ForwardTotals are the four values handed to the menu generator. Target
// calories win over TDEE when present; nothing is rounded.
func (p *PlanResult) ForwardTotals() Totals {
	kcal := p.TDEE
	if p.TargetCalories != nil {
		kcal = *p.TargetCalories
	}
	return Totals{Kcal: kcal, ProteinG: p.ProteinG, CarbG: p.CarbG, FatG: p.FatG}
}

type Totals struct {
	Kcal     float64 `json:"kcal" validate:"gt=0"`
	ProteinG float64 `json:"protein_g" validate:"gte=0"`
	CarbG    float64 `json:"carb_g" validate:"gte=0"`
	FatG     float64 `json:"fat_g" validate:"gte=0"`
}

type MacroSet struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carb_g"`
	FatG     float64 `json:"fat_g"`
}

func (m MacroSet) Add(o MacroSet) MacroSet {
	return MacroSet{
		Kcal:     m.Kcal + o.Kcal,
		ProteinG: m.ProteinG + o.ProteinG,
		CarbG:    m.CarbG + o.CarbG,
		FatG:     m.FatG + o.FatG,
	}
}

type MenuItem struct {
	FoodID   string  `json:"food_id"`
	Name     string  `json:"name"`
	Grams    float64 `json:"grams"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carb_g"`
	FatG     float64 `json:"fat_g"`
}

func (it MenuItem) Macros() MacroSet {
	return MacroSet{Kcal: it.Kcal, ProteinG: it.ProteinG, CarbG: it.CarbG, FatG: it.FatG}
}

type MenuOption struct {
	ID       string     `json:"menu_id"`
	Name     string     `json:"menu_name"`
	Items    []MenuItem `json:"items"`
	Achieved MacroSet   `json:"achieved"`
	Errors   MacroSet   `json:"errors"`
	Score    float64    `json:"score"`
}

type SlotOptions struct {
	Slot    string       `json:"slot"`
	Target  MacroSet     `json:"target"`
	Options []MenuOption `json:"options"`
}

// Option returns the option with the given id in this slot.
func (s SlotOptions) Option(id string) (MenuOption, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return MenuOption{}, false
}

type MenuExploration struct {
	Scheme    string            `json:"scheme"`
	Totals    Totals            `json:"totals"`
	Slots     []SlotOptions     `json:"slots"`
	Selection map[string]string `json:"selection"`
}

type ConfirmedMeal struct {
	Slot     string     `json:"slot"`
	MenuName string     `json:"menu_name"`
	Items    []MenuItem `json:"items"`
	Target   MacroSet   `json:"target"`
	Achieved MacroSet   `json:"achieved"`
	Errors   MacroSet   `json:"errors"`
}

type ConfirmedMenu struct {
	Scheme    string            `json:"scheme"`
	Totals    Totals            `json:"totals"`
	Selection map[string]string `json:"selection"`
	Meals     []ConfirmedMeal   `json:"meals"`
}

// DayTotals sums the achieved macros of every confirmed meal.
func (c *ConfirmedMenu) DayTotals() MacroSet {
	var sum MacroSet
	for _, m := range c.Meals {
		sum = sum.Add(m.Achieved)
	}
	return sum
}

type SavedMenu struct {
	ID        int             `json:"id"`
	PlanID    *int            `json:"plan_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"json_payload"`
}

type Food struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Brand string `json:"brand,omitempty"`
	Image string `json:"image,omitempty"`
}

// Nutrients are per 100 g unless scaled. Nil means the source had no value.
type Nutrients struct {
	Kcal     *float64 `json:"kcal"`
	ProteinG *float64 `json:"protein_g"`
	FatG     *float64 `json:"fat_g"`
	CarbG    *float64 `json:"carb_g"`
	SugarG   *float64 `json:"sugar_g"`
	FiberG   *float64 `json:"fiber_g"`
}

type FoodDetail struct {
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Brand   string    `json:"brand,omitempty"`
	Per100g Nutrients `json:"per_100g"`
}

type RecentSearch struct {
	Term      string    `json:"term"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
