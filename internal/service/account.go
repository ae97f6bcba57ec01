package service

import (
	"context"
	"strings"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/session"
)

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"omitempty,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AccountService struct {
	provider auth.Provider
	sessions *session.Manager
	logger   internal.Logger
}

func NewAccountService(provider auth.Provider, sessions *session.Manager, logger internal.Logger) *AccountService {
	return &AccountService{provider: provider, sessions: sessions, logger: logger}
}

// Register creates the account and signs the session in with it.
func (a *AccountService) Register(ctx context.Context, sess *internal.Session, req RegisterRequest) (*internal.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := a.provider.Register(ctx, strings.TrimSpace(req.FullName), req.Email, req.Password); err != nil {
		return nil, err
	}
	return a.Login(ctx, sess, LoginRequest{Email: req.Email, Password: req.Password})
}

// Login exchanges the credentials for a token and loads the user profile.
func (a *AccountService) Login(ctx context.Context, sess *internal.Session, req LoginRequest) (*internal.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	token, err := a.provider.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	user, err := a.provider.CurrentUser(ctx, token)
	if err != nil {
		a.logger.Warnf("account: token issued but profile lookup failed for %s: %v", req.Email, err)
		return nil, err
	}
	return a.sessions.SignIn(ctx, sess.ID, token, user)
}

func (a *AccountService) Logout(ctx context.Context, sess *internal.Session) (*internal.Session, error) {
	return a.sessions.Logout(ctx, sess.ID)
}

// Me revalidates the stored credential. Anonymous sessions get unauthorized.
func (a *AccountService) Me(ctx context.Context, sess *internal.Session) (*internal.User, error) {
	s, err := a.sessions.Boot(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !s.Authenticated() || s.User == nil {
		return nil, internal.UnauthorizedError("Not logged in")
	}
	return s.User, nil
}
