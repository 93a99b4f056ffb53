// Package peer is the client side of the realtime API: an HTTP client for
// the conversation routes and a websocket stream for change frames.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
)

type noRetryKey struct{}

// Client calls the HTTP API as the user behind Token.
type Client struct {
	BaseURL string
	Token   string
	UserID  string
	HTTP    *retryablehttp.Client

	// PageSize is the number of messages CatchUp requests per page.
	PageSize int
}

// New builds a client. The user ID is read from the token subject without
// verifying it; the server does the verification.
func New(baseURL, token string) (*Client, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", apperr.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject: %w", apperr.ErrUnauthorized)
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = slog.Default()
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Value(noRetryKey{}) != nil {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		UserID:   claims.Subject,
		HTTP:     hc,
		PageSize: config.DefaultMessageLimit,
	}, nil
}

// once marks ctx so the request is sent a single time. Used for calls that
// must not be repeated, such as posting a message.
func once(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var reqBody any
	if raw != nil {
		reqBody = bytes.NewReader(raw)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apperr.Upstream(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &eb)
		return statusError(resp.StatusCode, eb.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream("decode "+path, err)
	}
	return nil
}

// statusError maps an API status back onto the error kinds.
func statusError(status int, msg string) error {
	var kind error
	switch status {
	case http.StatusUnauthorized:
		kind = apperr.ErrUnauthorized
	case http.StatusForbidden:
		kind = apperr.ErrForbidden
	case http.StatusBadRequest:
		kind = apperr.ErrInvalidInput
	case http.StatusNotFound:
		kind = apperr.ErrNotFound
	case http.StatusServiceUnavailable:
		kind = apperr.ErrDeviceUnavailable
	default:
		kind = apperr.ErrUpstream
	}
	msg = strings.TrimPrefix(msg, kind.Error()+": ")
	if msg == "" || msg == kind.Error() {
		return fmt.Errorf("api status %d: %w", status, kind)
	}
	return fmt.Errorf("api status %d: %w: %s", status, kind, msg)
}
