package auth

import (
	"context"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/backend"
)

// RemoteAuthProvider delegates to the EatBalance backend's /auth and /users routes.
type RemoteAuthProvider struct {
	client *backend.Client
	logger internal.Logger
}

func (a *RemoteAuthProvider) Register(ctx context.Context, fullName, email, password string) (*internal.User, error) {
	u, err := a.client.Register(ctx, fullName, email, password)
	if err != nil {
		a.logger.Warnf("register failed for %s: %v", email, err)
		return nil, err
	}
	return u, nil
}

func (a *RemoteAuthProvider) Login(ctx context.Context, email, password string) (string, error) {
	token, err := a.client.Login(ctx, email, password)
	if err != nil {
		a.logger.Warnf("login failed for %s: %v", email, err)
		return "", err
	}
	return token, nil
}

func (a *RemoteAuthProvider) CurrentUser(ctx context.Context, token string) (*internal.User, error) {
	return a.client.Me(ctx, token)
}

func NewRemoteAuthProvider(client *backend.Client, logger internal.Logger) *RemoteAuthProvider {
	return &RemoteAuthProvider{client: client, logger: logger}
}
