package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ConfirmRequest struct {
	Selection map[string]string `json:"selection"`
}

// GetMenuPrefill returns the totals the menu form starts from: query
// parameters first, then the handoff slot.
func GetMenuPrefill(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := auth.SessionFrom(c)
		totals, source, err := app.Handoffs().Prefill(c.Request.Context(), sess.ID, c.Request.URL.Query())
		if err != nil {
			HandleError(c, app.Logger(), err, "Nothing to prefill")
			return
		}
		HandleSuccess(c, app.Logger(), totals, map[string]any{
			"source":         source,
			"schemes":        service.Schemes,
			"default_scheme": app.Menus().DefaultScheme(),
		})
	}
}

func PostMenuOptions(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ExploreRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid menu request")
			return
		}
		exp, err := app.Menus().Explore(c.Request.Context(), auth.SessionFrom(c), req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Menu generation failed")
			return
		}
		HandleSuccess(c, app.Logger(), exp, nil)
	}
}

func PutMenuSelection(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SelectRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid selection")
			return
		}
		exp, err := app.Menus().Select(c.Request.Context(), auth.SessionFrom(c), req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Selection rejected")
			return
		}
		HandleSuccess(c, app.Logger(), exp, nil)
	}
}

// PostMenuConfirm builds the daily menu. Without a body the stored
// selection is used.
func PostMenuConfirm(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := bindJSON(c, &req, true); err != nil {
			HandleError(c, app.Logger(), err, "Invalid confirmation")
			return
		}
		menu, err := app.Menus().Confirm(c.Request.Context(), auth.SessionFrom(c), req.Selection)
		if err != nil {
			HandleError(c, app.Logger(), err, "Confirmation failed")
			return
		}
		HandleSuccess(c, app.Logger(), menu, map[string]any{"day_totals": menu.DayTotals()})
	}
}

func GetMenuExport(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := app.Menus().Export(auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Export failed")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="eatbalance-menu.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}

func PostMenuSave(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		saved, err := app.Menus().Save(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Save failed")
			return
		}
		HandleSuccess(c, app.Logger(), saved, nil)
	}
}

func GetSavedMenus(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := app.Menus().ListSaved(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Saved menus unavailable")
			return
		}
		HandleSuccess(c, app.Logger(), list, map[string]any{"count": len(list)})
	}
}
