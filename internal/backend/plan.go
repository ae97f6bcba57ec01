package backend

import (
	"context"

	"github.com/eatbalance/web/internal"
)

type promptBody struct {
	Prompt string `json:"prompt"`
}

type splitWire struct {
	Carbohidratos float64 `json:"carbohidratos"`
	Proteinas     float64 `json:"proteinas"`
	Grasas        float64 `json:"grasas"`
}

// promptPlanWire is the answer of /plan/ and /calcular-macros. The free-text
// endpoint sends nulls when it could not read the prompt.
type promptPlanWire struct {
	BMR              *float64   `json:"bmr"`
	TDEE             *float64   `json:"tdee"`
	CaloriasObjetivo *float64   `json:"calorias_objetivo"`
	Proteinas        *float64   `json:"proteinas"`
	Grasas           *float64   `json:"grasas"`
	Carbohidratos    *float64   `json:"carbohidratos"`
	Porcentajes      *splitWire `json:"porcentajes"`
}

func (w *promptPlanWire) result(source string) (*internal.PlanResult, bool) {
	if w.BMR == nil || w.TDEE == nil || *w.BMR <= 0 || *w.TDEE <= 0 {
		return nil, false
	}
	res := &internal.PlanResult{
		BMR:            *w.BMR,
		TDEE:           *w.TDEE,
		TargetCalories: w.CaloriasObjetivo,
		ProteinG:       deref(w.Proteinas),
		CarbG:          deref(w.Carbohidratos),
		FatG:           deref(w.Grasas),
		Source:         source,
	}
	if w.Porcentajes != nil {
		res.Split = &internal.MacroSplit{
			Carbs:   w.Porcentajes.Carbohidratos,
			Protein: w.Porcentajes.Proteinas,
			Fat:     w.Porcentajes.Grasas,
		}
	}
	return res, true
}

// savedPlanWire is a plan persisted by the authenticated nutrition routes.
type savedPlanWire struct {
	ID        int      `json:"id"`
	CreatedAt wireTime `json:"created_at"`
	BMR       float64  `json:"bmr"`
	TDEE      float64  `json:"tdee"`
	ProteinG  float64  `json:"protein_g"`
	CarbsG    float64  `json:"carbs_g"`
	FatG      float64  `json:"fat_g"`
}

func (w *savedPlanWire) result(source string) *internal.PlanResult {
	return &internal.PlanResult{
		PlanID:    w.ID,
		CreatedAt: w.CreatedAt.ptr(),
		BMR:       w.BMR,
		TDEE:      w.TDEE,
		ProteinG:  w.ProteinG,
		CarbG:     w.CarbsG,
		FatG:      w.FatG,
		Source:    source,
	}
}

type structuredPlanBody struct {
	Sex           string  `json:"sex"`
	Age           int     `json:"age"`
	HeightCM      float64 `json:"height_cm"`
	WeightKG      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
}

type formPlanBody struct {
	Edad      int     `json:"edad"`
	Peso      float64 `json:"peso"`
	Altura    float64 `json:"altura"`
	Sexo      string  `json:"sexo"`
	Actividad string  `json:"actividad"`
	Objetivo  string  `json:"objetivo"`
}

// Result sources.
const (
	SourceStructured = "structured"
	SourcePrompt     = "prompt"
	SourceForm       = "form"
	SourceSaved      = "saved"
)

// ErrPromptUnresolved is returned when /plan/ could not read the sentence.
var ErrPromptUnresolved = internal.UnresolvedInputError("")

// PlanFromPrompt sends free text to the unauthenticated /plan/ endpoint.
func (c *Client) PlanFromPrompt(ctx context.Context, prompt string) (*internal.PlanResult, error) {
	var w promptPlanWire
	if err := c.postJSON(ctx, "/plan/", "", promptBody{Prompt: prompt}, &w); err != nil {
		return nil, err
	}
	res, ok := w.result(SourcePrompt)
	if !ok {
		return nil, ErrPromptUnresolved
	}
	return res, nil
}

// PlanFromForm sends structured data to the unauthenticated /calcular-macros endpoint.
func (c *Client) PlanFromForm(ctx context.Context, req internal.PlanRequest) (*internal.PlanResult, error) {
	body := formPlanBody{
		Edad:      req.Age,
		Peso:      req.WeightKG,
		Altura:    req.HeightCM,
		Sexo:      req.Sex.Backend(),
		Actividad: req.ActivityLevel.Backend(),
		Objetivo:  req.Goal.Backend(),
	}
	var w promptPlanWire
	if err := c.postJSON(ctx, "/calcular-macros", "", body, &w); err != nil {
		return nil, err
	}
	res, ok := w.result(SourceForm)
	if !ok {
		return nil, ErrPromptUnresolved
	}
	return res, nil
}

// GeneratePlan computes and stores a plan for the authenticated user.
func (c *Client) GeneratePlan(ctx context.Context, token string, req internal.PlanRequest) (*internal.PlanResult, error) {
	body := structuredPlanBody{
		Sex:           req.Sex.Backend(),
		Age:           req.Age,
		HeightCM:      req.HeightCM,
		WeightKG:      req.WeightKG,
		ActivityLevel: req.ActivityLevel.Backend(),
		Goal:          req.Goal.Backend(),
	}
	var w savedPlanWire
	if err := c.postJSON(ctx, "/nutrition/plan/generate", token, body, &w); err != nil {
		return nil, err
	}
	return w.result(SourceStructured), nil
}

// LatestPlan fetches the last plan saved for the user; not_found when none.
func (c *Client) LatestPlan(ctx context.Context, token string) (*internal.PlanResult, error) {
	var w savedPlanWire
	if err := c.get(ctx, "/nutrition/plans/latest", token, nil, &w); err != nil {
		return nil, err
	}
	return w.result(SourceSaved), nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
