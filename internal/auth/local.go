package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eatbalance/web/internal"
)

type localAccount struct {
	user     internal.User
	password string
}

// LocalAuthProvider keeps accounts in memory. Development only.
type LocalAuthProvider struct {
	mu       sync.RWMutex
	accounts map[string]*localAccount // email -> account
	tokens   map[string]string        // token -> email
	nextID   int
	logger   internal.Logger
}

func NewLocalAuthProvider(logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{
		accounts: make(map[string]*localAccount),
		tokens:   make(map[string]string),
		nextID:   1,
		logger:   logger,
	}
}

func (a *LocalAuthProvider) Register(ctx context.Context, fullName, email, password string) (*internal.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.accounts[email]; ok {
		return nil, internal.ValidationError("Email already registered", nil)
	}
	acc := &localAccount{
		user:     internal.User{ID: a.nextID, Email: email, FullName: fullName},
		password: password,
	}
	a.nextID++
	a.accounts[email] = acc
	u := acc.user
	return &u, nil
}

func (a *LocalAuthProvider) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[email]
	if !ok || subtle.ConstantTimeCompare([]byte(acc.password), []byte(password)) != 1 {
		a.logger.Warnf("local login rejected for %s", email)
		return "", internal.UnauthorizedError("Invalid email or password")
	}
	token := uuid.NewString()
	a.tokens[token] = email
	return token, nil
}

func (a *LocalAuthProvider) CurrentUser(ctx context.Context, token string) (*internal.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	email, ok := a.tokens[token]
	if !ok {
		return nil, internal.UnauthorizedError("Invalid token")
	}
	u := a.accounts[email].user
	return &u, nil
}
