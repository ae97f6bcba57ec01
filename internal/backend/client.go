// Package backend is the typed client for the remote EatBalance HTTP API.
// Every computation (BMR, TDEE, macros, menus, food data) happens there.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eatbalance/web/internal"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger internal.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// StatusError is a non-2xx answer from the backend. Detail carries the
// server's own message when it sent one.
type StatusError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.Status)
}

// HTTPStatus returns the backend status carried by err, or 0.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
}

func (c *Client) postJSON(ctx context.Context, path, token string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return internal.InternalError(fmt.Errorf("marshal %s body: %w", path, err))
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		token:       token,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
	}, out)
}

func (c *Client) get(ctx context.Context, path, token string, query url.Values, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, token: token, query: query}, out)
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		c.logger.Errorf("backend: failed to create request %s %s: %v", r.method, r.path, err)
		return internal.InternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warnf("backend: %s %s failed: %v", r.method, r.path, err)
		return internal.NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warnf("backend: failed to read %s %s response: %v", r.method, r.path, err)
		return internal.NetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: r.method, Path: r.path, Status: resp.StatusCode, Detail: detailOf(body)}
		c.logger.Warnf("backend: %v", se)
		return statusAppError(se)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Errorf("backend: failed to decode %s %s response: %v", r.method, r.path, err)
		return internal.InternalError(fmt.Errorf("decode %s: %w", r.path, err))
	}
	return nil
}

func statusAppError(se *StatusError) *internal.AppError {
	switch {
	case se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden:
		return internal.UnauthorizedError(se.Detail).WithCause(se)
	case se.Status == http.StatusNotFound:
		msg := se.Detail
		if msg == "" {
			msg = "Not found"
		}
		return internal.NotFoundError(msg).WithCause(se)
	case se.Status >= 400 && se.Status < 500:
		return internal.ValidationError(se.Detail, se)
	default:
		return internal.NetworkError(se)
	}
}

// detailOf extracts FastAPI-style {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func detailOf(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, d := range list {
			if d.Msg != "" {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
