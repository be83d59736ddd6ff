package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/client/models"
	"github.com/dmitrijs2005/healthrecords/internal/client/tokenstore"
	"github.com/dmitrijs2005/healthrecords/internal/common"
)

const echoPath = "/api/v1/echo"

var tokenSeq atomic.Int64

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ID:        fmt.Sprintf("t-%d", tokenSeq.Add(1)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// fakeAPI accepts exactly one access token and rotates it on refresh.
type fakeAPI struct {
	t *testing.T

	mu            sync.Mutex
	validAccess   string
	lastLoginAuth string

	refreshCalls  atomic.Int32
	refreshStatus int
	gate          chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{t: t, refreshStatus: http.StatusOK}
}

func (f *fakeAPI) accept(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = token
}

// blockRefresh holds refresh calls until the returned channel is closed.
func (f *fakeAPI) blockRefresh() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeAPI) failRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validAccess != "" && r.Header.Get("Authorization") == "Bearer "+f.validAccess
}

func writeEnvelope[T any](w http.ResponseWriter, code int, msg string, data *T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(api.Envelope[T]{StatusCode: code, Message: msg, Data: data})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case api.LoginPath:
		f.mu.Lock()
		f.lastLoginAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			writeEnvelope[api.Empty](w, http.StatusBadRequest, "Invalid credentials", nil)
			return
		}
		resp := f.pair()
		writeEnvelope(w, http.StatusOK, "Login successful", resp)
	case api.RefreshPath:
		f.refreshCalls.Add(1)
		f.mu.Lock()
		gate, status := f.gate, f.refreshStatus
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if status != http.StatusOK {
			writeEnvelope[api.Empty](w, status, "Invalid or expired refresh token", nil)
			return
		}
		resp := f.pair()
		writeEnvelope(w, http.StatusOK, "Token refreshed successfully", resp)
	case api.MePath:
		if !f.authorized(r) {
			writeEnvelope[api.Empty](w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "OK", &api.UserInfo{ID: 1, Username: "admin", Email: "admin@example.com", Role: "Admin"})
	case echoPath:
		if !f.authorized(r) {
			writeEnvelope[api.Empty](w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(b)
	case api.LogoutPath:
		if !f.authorized(r) {
			writeEnvelope[api.Empty](w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "Logged out", &api.Empty{})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) pair() *api.LoginResponse {
	now := time.Now()
	resp := &api.LoginResponse{
		AccessToken:           token(f.t, now.Add(15*time.Minute)),
		RefreshToken:          token(f.t, now.Add(7*24*time.Hour)),
		ExpiresAt:             now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
		User:                  api.UserInfo{ID: 1, Username: "admin", Email: "admin@example.com", Role: "Admin"},
	}
	f.accept(resp.AccessToken)
	return resp
}

type fixture struct {
	api    *fakeAPI
	srv    *httptest.Server
	store  *tokenstore.Store
	client *HTTPClient
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := newFakeAPI(t)
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	db, err := tokenstore.OpenDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := tokenstore.New(db)

	return &fixture{
		api:    f,
		srv:    srv,
		store:  store,
		client: NewHTTPClient(srv.URL, 5*time.Second, store, nil, nil),
	}
}

func (fx *fixture) saveSession(t *testing.T, access, refresh time.Time) models.Tokens {
	t.Helper()
	tok := models.Tokens{
		AccessToken:           token(t, access),
		RefreshToken:          token(t, refresh),
		AccessTokenExpiresAt:  access,
		RefreshTokenExpiresAt: refresh,
	}
	require.NoError(t, fx.store.Save(context.Background(), &models.Session{
		Tokens: tok,
		User:   models.UserProfile{ID: 1, Username: "admin"},
	}))
	return tok
}

func TestMe_AttachesStoredToken(t *testing.T) {
	fx := setup(t)
	tok := fx.saveSession(t, time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))
	fx.api.accept(tok.AccessToken)

	me, err := fx.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
	assert.Zero(t, fx.api.refreshCalls.Load())
}

func TestLogin_NeverCarriesBearer(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))

	resp, err := fx.client.Login(context.Background(), "admin", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	fx.api.mu.Lock()
	defer fx.api.mu.Unlock()
	assert.Empty(t, fx.api.lastLoginAuth)
}

func TestLogin_BadCredentialsIsAPIError(t *testing.T) {
	fx := setup(t)

	_, err := fx.client.Login(context.Background(), "admin", "wrong-pass")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.NotErrorIs(t, err, common.ErrorInternal, "a 400 is not a server fault")
}

func TestNoSession_PassesThrough(t *testing.T) {
	fx := setup(t)

	_, err := fx.client.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Zero(t, fx.api.refreshCalls.Load())
}

func TestExpiredAccess_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	gate := fx.api.blockRefresh()

	const n = 2
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = fx.client.Me(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return fx.api.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, fx.api.refreshCalls.Load())

	access, err := fx.store.AccessToken(context.Background())
	require.NoError(t, err)
	fx.api.mu.Lock()
	assert.Equal(t, fx.api.validAccess, access)
	fx.api.mu.Unlock()
	assert.False(t, fx.store.IsAccessExpired(context.Background()))
}

func TestUnauthorizedWithValidToken_RefreshesAndReplaysBody(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))
	// the server no longer accepts the stored token
	fx.api.accept("revoked")

	req, err := http.NewRequest(http.MethodPost, fx.srv.URL+echoPath, strings.NewReader(`{"hello":"world"}`))
	require.NoError(t, err)

	resp, err := fx.client.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(body))
	assert.EqualValues(t, 1, fx.api.refreshCalls.Load())
}

func TestUnauthorized_NonRewindableBodyReturnsOriginalResponse(t *testing.T) {
	fx := setup(t)
	tok := fx.saveSession(t, time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))
	fx.api.accept("revoked")

	req, err := http.NewRequest(http.MethodPost, fx.srv.URL+echoPath, io.NopCloser(strings.NewReader("payload")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := fx.client.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, fx.api.refreshCalls.Load())

	access, err := fx.store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, access, "session must be left alone")
}

func TestRefreshRejected_ClearsSession(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	fx.api.failRefresh(http.StatusBadRequest)

	_, err := fx.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.EqualValues(t, 1, fx.api.refreshCalls.Load())

	ctx := context.Background()
	assert.False(t, fx.store.HasValidSession(ctx))
	access, err := fx.store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestExpiredRefreshToken_EndsSessionWithoutCall(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute))

	_, err := fx.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.Zero(t, fx.api.refreshCalls.Load())
	assert.False(t, fx.store.HasValidSession(context.Background()))
}

func TestCancelledWaiterIsReleased(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	gate := fx.api.blockRefresh()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fx.client.Me(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return fx.api.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released on cancel")
	}

	// the refresh itself is not tied to the caller and still completes
	close(gate)
	require.Eventually(t, func() bool {
		return !fx.store.IsAccessExpired(context.Background())
	}, 2*time.Second, 5*time.Millisecond)
}

func TestInvalidate_DiscardsLateRefresh(t *testing.T) {
	fx := setup(t)
	fx.saveSession(t, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	gate := fx.api.blockRefresh()

	done := make(chan error, 1)
	go func() {
		_, err := fx.client.Me(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return fx.api.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	fx.client.Transport().Invalidate()
	require.NoError(t, fx.store.Clear(context.Background()))
	close(gate)

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSessionEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not finish")
	}

	access, err := fx.store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, access, "late refresh must not restore the session")
}

func TestLogout_SendsBearerAndBody(t *testing.T) {
	fx := setup(t)
	tok := fx.saveSession(t, time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))
	fx.api.accept(tok.AccessToken)

	require.NoError(t, fx.client.Logout(context.Background(), tok.RefreshToken))
}

func TestServerDown_IsUnavailable(t *testing.T) {
	fx := setup(t)
	fx.srv.Close()

	_, err := fx.client.Login(context.Background(), "admin", "secret1")
	require.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "400: Validation failed", (&APIError{StatusCode: 400, Message: "Validation failed"}).Error())
	assert.Equal(t, "400: Validation failed (a; b)",
		(&APIError{StatusCode: 400, Message: "Validation failed", Errors: []string{"a", "b"}}).Error())
}

func TestAPIError_ServerFaultIsInternal(t *testing.T) {
	var err error = &APIError{StatusCode: http.StatusInternalServerError, Message: "Internal server error"}
	assert.ErrorIs(t, err, common.ErrorInternal)

	err = fmt.Errorf("me: %w", &APIError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"})
	assert.ErrorIs(t, err, common.ErrorInternal)

	assert.NotErrorIs(t, &APIError{StatusCode: http.StatusTooManyRequests}, common.ErrorInternal)
}
