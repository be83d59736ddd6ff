package rest

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/logging"
	"github.com/dmitrijs2005/healthrecords/internal/server/auth"
	"github.com/dmitrijs2005/healthrecords/internal/server/models"
	"github.com/dmitrijs2005/healthrecords/internal/server/services"
)

type SessionService interface {
	Login(ctx context.Context, identity, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) bool
}

type ProfileService interface {
	Profile(ctx context.Context, id int64) (*models.UserInfo, error)
}

type AccessTokenParser interface {
	ParseAccess(token string) (*auth.AccessClaims, error)
}

// Options configures the handler. Bearer should tolerate clock skew; the
// session service validator should not.
type Options struct {
	Sessions       SessionService
	Profiles       ProfileService
	Bearer         AccessTokenParser
	Logger         logging.Logger
	LoginRateLimit int
	// TrustedProxies are peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix
	Development    bool
}

type handlers struct {
	sessions    SessionService
	profiles    ProfileService
	logger      logging.Logger
	development bool
}

// NewHandler builds the routed and wrapped HTTP handler.
func NewHandler(o Options) http.Handler {
	h := &handlers{
		sessions:    o.Sessions,
		profiles:    o.Profiles,
		logger:      o.Logger.With("module", "rest"),
		development: o.Development,
	}

	bearer := requireBearer(o.Bearer)
	limit := rateLimitLogin(o.LoginRateLimit, clientIPResolver{trusted: o.TrustedProxies})

	mux := http.NewServeMux()
	mux.Handle("POST "+api.LoginPath, limit(http.HandlerFunc(h.login)))
	mux.HandleFunc("POST "+api.RefreshPath, h.refresh)
	mux.Handle("POST "+api.LogoutPath, bearer(http.HandlerFunc(h.logout)))
	mux.Handle("GET "+api.MePath, bearer(http.HandlerFunc(h.me)))

	return h.recoverer(h.logRequests(mux))
}
