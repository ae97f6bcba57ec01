package api

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/planparse"
)

func GetFoods(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		foods, err := app.Foods().Search(c.Request.Context(), auth.SessionFrom(c), c.Query("q"))
		if err != nil {
			HandleError(c, app.Logger(), err, "Food search failed")
			return
		}
		HandleSuccess(c, app.Logger(), foods, map[string]any{"count": len(foods)})
	}
}

// GetFood returns one product; ?grams= adds the scaled portion.
func GetFood(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var grams float64
		if raw := c.Query("grams"); raw != "" {
			g, err := planparse.ParseDecimal(raw)
			if err == nil && (math.IsInf(g, 0) || math.IsNaN(g)) {
				err = errors.New("not finite")
			}
			if err != nil {
				HandleError(c, app.Logger(), internal.ValidationError("grams must be a number", err), "Invalid portion")
				return
			}
			grams = g
		}
		info, err := app.Foods().Detail(c.Request.Context(), c.Param("code"), grams)
		if err != nil {
			HandleError(c, app.Logger(), err, "Food lookup failed")
			return
		}
		HandleSuccess(c, app.Logger(), info, nil)
	}
}

func GetRecentSearches(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		list, err := app.Foods().Recent(c.Request.Context(), auth.SessionFrom(c), limit)
		if err != nil {
			HandleError(c, app.Logger(), err, "Recent searches unavailable")
			return
		}
		HandleSuccess(c, app.Logger(), list, nil)
	}
}
