// Package service holds the flows of the web app: plan calculation, menu
// exploration and confirmation, food lookup and account handling. Every
// number shown to the user comes from the backend; these flows only route
// requests, keep session state and reconcile response shapes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/session"
)

var validate = validator.New()

// PlanBackend is the part of the backend client the plan flow uses.
type PlanBackend interface {
	GeneratePlan(ctx context.Context, token string, req internal.PlanRequest) (*internal.PlanResult, error)
	PlanFromPrompt(ctx context.Context, prompt string) (*internal.PlanResult, error)
	PlanFromForm(ctx context.Context, req internal.PlanRequest) (*internal.PlanResult, error)
	LatestPlan(ctx context.Context, token string) (*internal.PlanResult, error)
}

type MenuBackend interface {
	GenerateAll(ctx context.Context, totals internal.Totals, scheme string, topN int) ([]internal.SlotOptions, error)
	Generate(ctx context.Context, totals internal.Totals, scheme string, selection map[string]string) ([]internal.ConfirmedMeal, error)
	SaveMenu(ctx context.Context, token string, planID *int, payload interface{}) (*internal.SavedMenu, error)
	ListMenus(ctx context.Context, token string) ([]internal.SavedMenu, error)
}

type FoodBackend interface {
	SearchProducts(ctx context.Context, name string) ([]internal.Food, error)
	ProductByCode(ctx context.Context, code string) (*internal.FoodDetail, error)
	AddRecentSearch(ctx context.Context, token, term, source string) error
	RecentSearches(ctx context.Context, token string, limit int) ([]internal.RecentSearch, error)
}

// validationError turns validator output into a message the user can act on.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return internal.ValidationError("", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return internal.ValidationError(strings.Join(msgs, "; "), err)
}

// commit applies fn to the session only if gen is still the latest request
// of the flow. Older responses are dropped and reported as superseded.
func commit(ctx context.Context, sessions *session.Manager, id string, flow session.Flow, gen uint64, fn func(s *internal.Session) error) (*internal.Session, error) {
	flights := sessions.Flights()
	if !flights.IsCurrent(id, flow, gen) {
		return nil, internal.SupersededError()
	}
	return sessions.Update(ctx, id, func(s *internal.Session) error {
		if !flights.IsCurrent(id, flow, gen) {
			return internal.SupersededError()
		}
		return fn(s)
	})
}

// backendErr keeps a superseded request from surfacing as a network failure.
func backendErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return internal.SupersededError()
	}
	return err
}
