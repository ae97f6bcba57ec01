package service

import (
	"context"
	"strings"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/session"
)

// RecentSearchSource tags searches recorded from the food lookup screen.
const RecentSearchSource = "buscador"

type FoodService struct {
	backend  FoodBackend
	sessions *session.Manager
	logger   internal.Logger
}

func NewFoodService(client FoodBackend, sessions *session.Manager, logger internal.Logger) *FoodService {
	return &FoodService{backend: client, sessions: sessions, logger: logger}
}

// Search looks foods up by name. A newer search from the same session
// supersedes this one. Authenticated searches are recorded best-effort.
func (f *FoodService) Search(ctx context.Context, sess *internal.Session, name string) ([]internal.Food, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, internal.ValidationError("Type a food name to search", nil)
	}

	ctx, gen, release := f.sessions.Flights().Begin(ctx, sess.ID, session.FlowFoods)
	defer release()

	foods, err := f.backend.SearchProducts(ctx, name)
	if err != nil {
		return nil, backendErr(ctx, err)
	}
	if !f.sessions.Flights().IsCurrent(sess.ID, session.FlowFoods, gen) {
		return nil, internal.SupersededError()
	}

	if sess.Authenticated() {
		if err := f.backend.AddRecentSearch(ctx, sess.Token, name, RecentSearchSource); err != nil {
			f.logger.Warnf("foods: could not record search for session %s: %v", sess.ID, err)
		}
	}
	return foods, nil
}

// Portion is a food's nutrients for a given weight.
type Portion struct {
	Grams     float64            `json:"grams"`
	Nutrients internal.Nutrients `json:"nutrients"`
}

type FoodInfo struct {
	*internal.FoodDetail
	Portion *Portion `json:"portion,omitempty"`
}

// Detail fetches one product; grams > 0 adds the scaled portion.
func (f *FoodService) Detail(ctx context.Context, code string, grams float64) (*FoodInfo, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, internal.ValidationError("Product code required", nil)
	}
	if grams < 0 {
		return nil, internal.ValidationError("grams must be positive", nil)
	}
	d, err := f.backend.ProductByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	info := &FoodInfo{FoodDetail: d}
	if grams > 0 {
		info.Portion = &Portion{Grams: grams, Nutrients: Scale(d.Per100g, grams)}
	}
	return info, nil
}

// Scale converts per-100 g nutrients to a portion. Missing values stay missing.
func Scale(per100 internal.Nutrients, grams float64) internal.Nutrients {
	factor := grams / 100
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		s := *v * factor
		return &s
	}
	return internal.Nutrients{
		Kcal:     scale(per100.Kcal),
		ProteinG: scale(per100.ProteinG),
		FatG:     scale(per100.FatG),
		CarbG:    scale(per100.CarbG),
		SugarG:   scale(per100.SugarG),
		FiberG:   scale(per100.FiberG),
	}
}

func (f *FoodService) Recent(ctx context.Context, sess *internal.Session, limit int) ([]internal.RecentSearch, error) {
	if !sess.Authenticated() {
		return nil, internal.UnauthorizedError("Login required")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return f.backend.RecentSearches(ctx, sess.Token, limit)
}
