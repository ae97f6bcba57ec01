package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
)

type PlanTextRequest struct {
	Text string `json:"text"`
}

// PostPlan computes a plan from the visitor's free-text description.
func PostPlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PlanTextRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid plan request")
			return
		}
		plan, err := app.Plans().Compute(c.Request.Context(), auth.SessionFrom(c), req.Text)
		if err != nil {
			HandleError(c, app.Logger(), err, "Plan computation failed")
			return
		}
		HandleSuccess(c, app.Logger(), plan, map[string]any{"totals": plan.ForwardTotals()})
	}
}

func PostPlanForm(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req internal.PlanRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid plan form")
			return
		}
		plan, err := app.Plans().ComputeFromForm(c.Request.Context(), auth.SessionFrom(c), req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Plan computation failed")
			return
		}
		HandleSuccess(c, app.Logger(), plan, map[string]any{"totals": plan.ForwardTotals()})
	}
}

func GetPlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := app.Plans().Current(auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "No plan")
			return
		}
		HandleSuccess(c, app.Logger(), plan, nil)
	}
}

func GetLatestPlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := app.Plans().Latest(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Latest plan unavailable")
			return
		}
		HandleSuccess(c, app.Logger(), plan, nil)
	}
}

func DeletePlan(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Plans().Reset(c.Request.Context(), auth.SessionFrom(c)); err != nil {
			HandleError(c, app.Logger(), err, "Reset failed")
			return
		}
		HandleSuccess(c, app.Logger(), nil, nil)
	}
}

// PostPlanForward stores the plan totals for the menu page and returns the
// URL that carries them.
func PostPlanForward(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		fwd, err := app.Plans().Forward(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Forward failed")
			return
		}
		HandleSuccess(c, app.Logger(), fwd, nil)
	}
}
