package auth

import (
	"context"

	"github.com/eatbalance/web/internal"
)

// Provider is the authentication service. Credentials are opaque bearer
// tokens owned by the provider.
type Provider interface {
	Register(ctx context.Context, fullName, email, password string) (*internal.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (*internal.User, error)
}
