package api

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/response"
)

// HandleError renders err with the status of its kind. Superseded requests
// are routine and logged at info level.
func HandleError(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString("request_id")
	appErr := internal.AsAppError(err)
	switch {
	case appErr.Kind == internal.KindSuperseded:
		logger.Infof("[request_id=%s] %s: %v", requestID, msg, err)
	case appErr.Code >= 500:
		logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	default:
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
	}
	c.JSON(appErr.Code, response.Failure(appErr))
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}

// bindJSON decodes the body into obj. An empty body is allowed when optional.
func bindJSON(c *gin.Context, obj any, optional bool) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return internal.ValidationError("Invalid JSON", err)
	}
	return nil
}

// sessionView is what clients see of their session.
type sessionView struct {
	SessionID     string         `json:"session_id"`
	Authenticated bool           `json:"authenticated"`
	User          *internal.User `json:"user,omitempty"`
	HasPlan       bool           `json:"has_plan"`
	HasMenus      bool           `json:"has_menus"`
	HasConfirmed  bool           `json:"has_confirmed"`
}

func viewOf(s *internal.Session) sessionView {
	return sessionView{
		SessionID:     s.ID,
		Authenticated: s.Authenticated(),
		User:          s.User,
		HasPlan:       s.LastPlan != nil,
		HasMenus:      s.Menus != nil,
		HasConfirmed:  s.Confirmed != nil,
	}
}
