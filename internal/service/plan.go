package service

import (
	"context"
	"strings"
	"time"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/planparse"
	"github.com/eatbalance/web/internal/session"
)

// MenuPagePath is where forwarded totals land.
const MenuPagePath = "/menus"

type PlanService struct {
	backend  PlanBackend
	sessions *session.Manager
	handoffs *HandoffService
	logger   internal.Logger
	now      func() time.Time
}

func NewPlanService(backend PlanBackend, sessions *session.Manager, handoffs *HandoffService, logger internal.Logger) *PlanService {
	return &PlanService{backend: backend, sessions: sessions, handoffs: handoffs, logger: logger, now: time.Now}
}

// Forwarding is the link to the menu generator, prefilled with the plan's totals.
type Forwarding struct {
	URL    string          `json:"url"`
	Totals internal.Totals `json:"totals"`
}

// canUseStructured reports whether the authenticated structured endpoint may
// be tried: a credential is present and not past its exp claim.
func (p *PlanService) canUseStructured(sess *internal.Session) bool {
	return sess.Authenticated() && !auth.TokenExpired(sess.Token, p.now())
}

// Compute turns a free-text description into a plan. A complete extraction
// with a usable credential goes to the structured endpoint first; anything
// else, including a failure there, goes to the free-text endpoint.
func (p *PlanService) Compute(ctx context.Context, sess *internal.Session, text string) (*internal.PlanResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, internal.ValidationError("Tell us your age, weight, height, sex, activity level and goal", nil)
	}

	ctx, gen, release := p.sessions.Flights().Begin(ctx, sess.ID, session.FlowPlan)
	defer release()

	var res *internal.PlanResult
	req, perr := planparse.Extract(text)
	if perr != nil {
		p.logger.Debugf("plan: extraction incomplete for session %s: %v", sess.ID, perr)
	} else if p.canUseStructured(sess) {
		var err error
		res, err = p.backend.GeneratePlan(ctx, sess.Token, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, internal.SupersededError()
			}
			p.logger.Infof("plan: structured request failed for session %s, falling back: %v", sess.ID, err)
			res = nil
		}
	}

	if res == nil {
		var err error
		res, err = p.backend.PlanFromPrompt(ctx, text)
		if err != nil {
			return nil, backendErr(ctx, err)
		}
	}
	return p.store(ctx, sess.ID, gen, res)
}

// ComputeFromForm is the structured-form variant: the authenticated endpoint
// when possible, else the unauthenticated structured one.
func (p *PlanService) ComputeFromForm(ctx context.Context, sess *internal.Session, req internal.PlanRequest) (*internal.PlanResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	ctx, gen, release := p.sessions.Flights().Begin(ctx, sess.ID, session.FlowPlan)
	defer release()

	var res *internal.PlanResult
	if p.canUseStructured(sess) {
		var err error
		res, err = p.backend.GeneratePlan(ctx, sess.Token, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, internal.SupersededError()
			}
			p.logger.Infof("plan: structured request failed for session %s, falling back: %v", sess.ID, err)
			res = nil
		}
	}
	if res == nil {
		var err error
		res, err = p.backend.PlanFromForm(ctx, req)
		if err != nil {
			return nil, backendErr(ctx, err)
		}
	}
	return p.store(ctx, sess.ID, gen, res)
}

func (p *PlanService) store(ctx context.Context, id string, gen uint64, res *internal.PlanResult) (*internal.PlanResult, error) {
	if _, err := commit(ctx, p.sessions, id, session.FlowPlan, gen, func(s *internal.Session) error {
		s.LastPlan = res
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Current returns the plan held by the session.
func (p *PlanService) Current(sess *internal.Session) (*internal.PlanResult, error) {
	if sess.LastPlan == nil {
		return nil, internal.NotFoundError("No plan calculated yet")
	}
	return sess.LastPlan, nil
}

// Latest restores the last plan the backend saved for the user.
func (p *PlanService) Latest(ctx context.Context, sess *internal.Session) (*internal.PlanResult, error) {
	if !sess.Authenticated() {
		return nil, internal.UnauthorizedError("Login required")
	}
	ctx, gen, release := p.sessions.Flights().Begin(ctx, sess.ID, session.FlowPlan)
	defer release()

	res, err := p.backend.LatestPlan(ctx, sess.Token)
	if err != nil {
		if internal.IsKind(err, internal.KindNotFound) {
			return nil, internal.NotFoundError("You have no saved plan yet")
		}
		return nil, backendErr(ctx, err)
	}
	return p.store(ctx, sess.ID, gen, res)
}

// Reset clears the plan and supersedes any calculation still in flight.
func (p *PlanService) Reset(ctx context.Context, sess *internal.Session) error {
	_, _, release := p.sessions.Flights().Begin(ctx, sess.ID, session.FlowPlan)
	release()
	_, err := p.sessions.Update(ctx, sess.ID, func(s *internal.Session) error {
		s.LastPlan = nil
		return nil
	})
	return err
}

// Forward stores the plan's totals in the handoff slot and returns the menu
// page link carrying the same totals as query parameters.
func (p *PlanService) Forward(ctx context.Context, sess *internal.Session) (*Forwarding, error) {
	if sess.LastPlan == nil {
		return nil, internal.NotFoundError("No plan calculated yet")
	}
	totals := sess.LastPlan.ForwardTotals()
	if err := validate.Struct(totals); err != nil {
		return nil, validationError(err)
	}
	if err := p.handoffs.Put(ctx, sess.ID, totals); err != nil {
		return nil, err
	}
	return &Forwarding{URL: MenuPagePath + "?" + EncodeTotals(totals).Encode(), Totals: totals}, nil
}
