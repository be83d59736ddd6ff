package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/logging"
)

// maxResponseBytes bounds how much of a response body is decoded.
const maxResponseBytes = 1 << 20

type HTTPClient struct {
	baseURL   string
	http      *http.Client
	transport *AuthTransport
}

// NewHTTPClient builds a client for the API at baseURL. base carries the
// actual requests; nil means http.DefaultTransport.
func NewHTTPClient(baseURL string, timeout time.Duration, store TokenStore, base http.RoundTripper, log logging.Logger) *HTTPClient {
	c := &HTTPClient{baseURL: strings.TrimRight(baseURL, "/")}
	c.transport = NewAuthTransport(base, store, c, log)
	c.http = &http.Client{Transport: c.transport, Timeout: timeout}
	return c
}

// Transport exposes the auth transport, mainly for Invalidate on logout.
func (c *HTTPClient) Transport() *AuthTransport {
	return c.transport
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	return do[api.LoginResponse](ctx, c, http.MethodPost, api.LoginPath, api.LoginRequest{Username: username, Password: password})
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*api.LoginResponse, error) {
	return do[api.LoginResponse](ctx, c, http.MethodPost, api.RefreshPath, api.RefreshTokenRequest{RefreshToken: refreshToken})
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	_, err := do[api.Empty](ctx, c, http.MethodPost, api.LogoutPath, api.RefreshTokenRequest{RefreshToken: refreshToken})
	return err
}

func (c *HTTPClient) Me(ctx context.Context) (*api.UserInfo, error) {
	return do[api.UserInfo](ctx, c, http.MethodGet, api.MePath, nil)
}

func do[T any](ctx context.Context, c *HTTPClient, method, path string, in any) (*T, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		// bytes.Reader lets http.NewRequest set GetBody, so the request can
		// be replayed after a token refresh.
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	var env api.Envelope[T]
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("response without data: %s", env.Message)
	}
	return env.Data, nil
}

// mapTransportError keeps session errors intact and reports everything
// else that prevented a response as ErrUnavailable.
func mapTransportError(err error) error {
	switch {
	case errors.Is(err, ErrSessionEnded):
		return ErrSessionEnded
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
