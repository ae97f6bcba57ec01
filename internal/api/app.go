package api

import (
	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/session"
	"github.com/eatbalance/web/internal/service"
)

type App interface {
	Logger() internal.Logger
	Sessions() *session.Manager
	Accounts() *service.AccountService
	Plans() *service.PlanService
	Menus() *service.MenuService
	Handoffs() *service.HandoffService
	Foods() *service.FoodService
}

// Services is the App built by cmd/server and by tests.
type Services struct {
	Log        internal.Logger
	SessionMgr *session.Manager
	Account    *service.AccountService
	Plan       *service.PlanService
	Menu       *service.MenuService
	Handoff    *service.HandoffService
	Food       *service.FoodService
}

func (s *Services) Logger() internal.Logger { return s.Log }
func (s *Services) Sessions() *session.Manager { return s.SessionMgr }
func (s *Services) Accounts() *service.AccountService { return s.Account }
func (s *Services) Plans() *service.PlanService { return s.Plan }
func (s *Services) Menus() *service.MenuService { return s.Menu }
func (s *Services) Handoffs() *service.HandoffService { return s.Handoff }
func (s *Services) Foods() *service.FoodService { return s.Food }
