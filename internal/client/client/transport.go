package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/client/models"
	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/logging"
)

// DefaultRefreshTimeout bounds a single refresh call.
const DefaultRefreshTimeout = 15 * time.Second

// TokenStore is the part of the client session storage the transport needs.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	IsAccessExpired(ctx context.Context) bool
	IsRefreshExpired(ctx context.Context) bool
	UpdateTokens(ctx context.Context, t models.Tokens) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*api.LoginResponse, error)
}

// AuthTransport is an http.RoundTripper that authenticates requests with the
// stored access token and renews it when needed.
//
// At most one refresh call is in flight at a time; every request that needs
// a new token waits for it. A request is replayed at most once.
type AuthTransport struct {
	base      http.RoundTripper
	store     TokenStore
	refresher Refresher
	log       logging.Logger

	RefreshTimeout time.Duration

	group singleflight.Group
	// epoch changes on Invalidate. mu serializes the epoch check of a
	// finished refresh with Invalidate, so a refresh that completes after
	// logout never writes tokens back.
	epoch atomic.Uint64
	mu    sync.Mutex
}

func NewAuthTransport(base http.RoundTripper, store TokenStore, refresher Refresher, log logging.Logger) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = logging.Discard()
	}
	return &AuthTransport{
		base:           base,
		store:          store,
		refresher:      refresher,
		log:            log.With("module", "auth_transport"),
		RefreshTimeout: DefaultRefreshTimeout,
	}
}

// Invalidate ends the current session epoch. A refresh still in flight is
// discarded and its waiters get ErrSessionEnded.
func (t *AuthTransport) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch.Add(1)
}

func skipAuth(path string) bool {
	return strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh")
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if skipAuth(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	token, err := t.store.AccessToken(ctx)
	if err != nil {
		closeBody(req)
		return nil, err
	}
	if token == "" {
		return t.base.RoundTrip(req)
	}

	if t.store.IsAccessExpired(ctx) {
		fresh, err := t.refresh(ctx, token)
		if err != nil {
			closeBody(req)
			return nil, err
		}
		return t.base.RoundTrip(withBearer(req, fresh))
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	replay, ok := rewind(req)
	if !ok {
		t.log.Debug(ctx, "cannot replay request, body is not rewindable", "path", req.URL.Path)
		return resp, nil
	}

	fresh, err := t.refresh(ctx, token)
	discard(resp)
	if err != nil {
		closeBody(replay)
		return nil, err
	}
	return t.base.RoundTrip(withBearer(replay, fresh))
}

// refresh returns an access token newer than stale. Callers joining a
// refresh in flight share its result.
func (t *AuthTransport) refresh(ctx context.Context, stale string) (string, error) {
	epoch := t.epoch.Load()
	ch := t.group.DoChan("refresh:"+strconv.FormatUint(epoch, 10), func() (any, error) {
		return t.doRefresh(context.WithoutCancel(ctx), epoch, stale)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (t *AuthTransport) doRefresh(ctx context.Context, epoch uint64, stale string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.RefreshTimeout)
	defer cancel()

	// an earlier flight may already have rotated the tokens
	if cur, err := t.store.AccessToken(ctx); err == nil && cur != "" && cur != stale && !t.store.IsAccessExpired(ctx) {
		return cur, nil
	}

	refreshToken, err := t.store.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refreshToken == "" || t.store.IsRefreshExpired(ctx) {
		t.log.Info(ctx, "refresh token missing or expired, ending session")
		t.endSession(ctx, epoch)
		return "", ErrSessionEnded
	}

	resp, err := t.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		t.log.Warn(ctx, "token refresh failed, ending session", "error", err)
		t.endSession(ctx, epoch)
		return "", fmt.Errorf("%w: %w", ErrSessionEnded, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch.Load() != epoch {
		t.log.Debug(ctx, "session ended while refreshing, discarding tokens")
		return "", ErrSessionEnded
	}
	err = t.store.UpdateTokens(ctx, models.Tokens{
		AccessToken:           resp.AccessToken,
		RefreshToken:          resp.RefreshToken,
		AccessTokenExpiresAt:  resp.ExpiresAt,
		RefreshTokenExpiresAt: resp.RefreshTokenExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}
	t.log.Debug(ctx, "tokens refreshed")
	return resp.AccessToken, nil
}

func (t *AuthTransport) endSession(ctx context.Context, epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch.Load() != epoch {
		return
	}
	if err := t.store.Clear(ctx); err != nil {
		t.log.Error(ctx, "failed to clear session", "error", err)
	}
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return r
}

// rewind returns a copy of req with a fresh body, or false when the body
// was consumed and cannot be recreated.
func rewind(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, true
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
