package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eatbalance/web/internal"
)

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *Client) Register(ctx context.Context, fullName, email, password string) (*internal.User, error) {
	var u internal.User
	err := c.postJSON(ctx, "/auth/register", "", registerBody{Email: email, Password: password, FullName: fullName}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login posts the OAuth2 password form; the backend calls the email "username".
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok tokenBody
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", internal.UnauthorizedError("Login failed")
	}
	return tok.AccessToken, nil
}

func (c *Client) Me(ctx context.Context, token string) (*internal.User, error) {
	var u internal.User
	if err := c.get(ctx, "/users/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type recentSearchBody struct {
	Term   string `json:"term"`
	Source string `json:"source"`
}

func (c *Client) AddRecentSearch(ctx context.Context, token, term, source string) error {
	return c.postJSON(ctx, "/users/recent-searches", token, recentSearchBody{Term: term, Source: source}, nil)
}

func (c *Client) RecentSearches(ctx context.Context, token string, limit int) ([]internal.RecentSearch, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []struct {
		Term      string   `json:"term"`
		Source    string   `json:"source"`
		CreatedAt wireTime `json:"created_at"`
	}
	if err := c.get(ctx, "/users/recent-searches", token, q, &out); err != nil {
		return nil, err
	}
	searches := make([]internal.RecentSearch, 0, len(out))
	for _, s := range out {
		searches = append(searches, internal.RecentSearch{Term: s.Term, Source: s.Source, CreatedAt: s.CreatedAt.Time})
	}
	return searches, nil
}
