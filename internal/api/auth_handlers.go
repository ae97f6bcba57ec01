package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/service"
)

func PostRegister(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid registration")
			return
		}
		sess, err := app.Accounts().Register(c.Request.Context(), auth.SessionFrom(c), req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Registration failed")
			return
		}
		HandleSuccess(c, app.Logger(), viewOf(sess), nil)
	}
}

func PostLogin(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if err := bindJSON(c, &req, false); err != nil {
			HandleError(c, app.Logger(), err, "Invalid login")
			return
		}
		sess, err := app.Accounts().Login(c.Request.Context(), auth.SessionFrom(c), req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Login failed")
			return
		}
		HandleSuccess(c, app.Logger(), viewOf(sess), nil)
	}
}

func PostLogout(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := app.Accounts().Logout(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Logout failed")
			return
		}
		HandleSuccess(c, app.Logger(), viewOf(sess), nil)
	}
}

func GetMe(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := app.Accounts().Me(c.Request.Context(), auth.SessionFrom(c))
		if err != nil {
			HandleError(c, app.Logger(), err, "Profile unavailable")
			return
		}
		HandleSuccess(c, app.Logger(), user, nil)
	}
}

// DeleteSession forgets the visitor and cancels their in-flight requests.
func DeleteSession(app App, cookies auth.CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := auth.SessionFrom(c)
		if err := app.Sessions().Destroy(c.Request.Context(), sess.ID); err != nil {
			HandleError(c, app.Logger(), internal.InternalError(err), "Session delete failed")
			return
		}
		auth.ClearSessionCookie(c, cookies)
		c.Writer.Header().Del(auth.HeaderName)
		HandleSuccess(c, app.Logger(), nil, nil)
	}
}
