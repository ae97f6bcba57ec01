package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal/auth"
)

// NewRouter wires every route of the server onto a fresh gin engine.
func NewRouter(app App, cookies auth.CookieOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), AccessLogMiddleware(app.Logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(auth.SessionMiddleware(app.Sessions(), cookies, app.Logger()))

	api.DELETE("/session", DeleteSession(app, cookies))

	a := api.Group("/auth")
	a.POST("/register", PostRegister(app))
	a.POST("/login", PostLogin(app))
	a.POST("/logout", PostLogout(app))
	a.GET("/me", GetMe(app))

	p := api.Group("/plan")
	p.POST("", PostPlan(app))
	p.POST("/form", PostPlanForm(app))
	p.GET("", GetPlan(app))
	p.GET("/latest", auth.RequireAuth(), GetLatestPlan(app))
	p.DELETE("", DeletePlan(app))
	p.POST("/forward", PostPlanForward(app))

	m := api.Group("/menus")
	m.GET("/prefill", GetMenuPrefill(app))
	m.POST("/options", PostMenuOptions(app))
	m.PUT("/selection", PutMenuSelection(app))
	m.POST("/confirm", PostMenuConfirm(app))
	m.GET("/export", GetMenuExport(app))
	m.POST("/save", auth.RequireAuth(), PostMenuSave(app))
	m.GET("/saved", auth.RequireAuth(), GetSavedMenus(app))

	f := api.Group("/foods")
	f.GET("", GetFoods(app))
	f.GET("/recent", auth.RequireAuth(), GetRecentSearches(app))
	f.GET("/:code", GetFood(app))

	return r
}
