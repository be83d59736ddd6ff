// Package services contains application services for the Health Records
// client. This file defines the authentication service: login, logout,
// session status and the server liveness probe.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/client/models"
	"github.com/dmitrijs2005/healthrecords/internal/common"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the session.
//   - Logout: end the session on the server and always drop it locally.
//   - Status: report the locally stored session without a network call.
//   - Me: fetch the current profile from the server.
//   - IsLoggedIn: whether a usable session is stored.
//   - Ping: check server liveness.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*models.UserProfile, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (*Status, error)
	Me(ctx context.Context) (*models.UserProfile, error)
	IsLoggedIn(ctx context.Context) bool
	Ping(ctx context.Context) error
}

// API is the subset of the HTTP client used here.
type API interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*api.UserInfo, error)
}

// SessionStore is the subset of the local token store used here.
type SessionStore interface {
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context) (*models.Session, error)
	RefreshToken(ctx context.Context) (string, error)
	HasValidSession(ctx context.Context) bool
	Clear(ctx context.Context) error
}

// Invalidator cancels token refreshes still in flight.
type Invalidator interface {
	Invalidate()
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Status describes the stored session.
type Status struct {
	LoggedIn              bool
	User                  models.UserProfile
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type authService struct {
	api         API
	store       SessionStore
	invalidator Invalidator
	pinger      Pinger
}

// NewAuthService wires the service. pinger may be nil, in which case Ping
// always succeeds.
func NewAuthService(a API, store SessionStore, inv Invalidator, pinger Pinger) AuthService {
	return &authService{api: a, store: store, invalidator: inv, pinger: pinger}
}

func (s *authService) Login(ctx context.Context, username string, password []byte) (*models.UserProfile, error) {
	// a refresh still running for the previous session must not land on the new one
	s.invalidate()
	resp, err := s.api.Login(ctx, username, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	sess := &models.Session{
		Tokens: models.Tokens{
			AccessToken:           resp.AccessToken,
			RefreshToken:          resp.RefreshToken,
			AccessTokenExpiresAt:  resp.ExpiresAt,
			RefreshTokenExpiresAt: resp.RefreshTokenExpiresAt,
		},
		User: profile(resp.User),
	}
	s.invalidate()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &sess.User, nil
}

func (s *authService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

// Logout tells the server and then clears local storage even if the server
// call failed. The server error, if any, is returned.
func (s *authService) Logout(ctx context.Context) error {
	s.invalidate()

	var serverErr error
	refresh, err := s.store.RefreshToken(ctx)
	switch {
	case err != nil:
		serverErr = err
	case refresh != "":
		serverErr = s.api.Logout(ctx, refresh)
	}

	if err := s.store.Clear(ctx); err != nil {
		return errors.Join(serverErr, fmt.Errorf("failed to clear session: %w", err))
	}
	if serverErr != nil {
		return fmt.Errorf("logout error: %w", serverErr)
	}
	return nil
}

func (s *authService) Status(ctx context.Context) (*Status, error) {
	sess, err := s.store.Load(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Status{
		LoggedIn:              s.store.HasValidSession(ctx),
		User:                  sess.User,
		AccessTokenExpiresAt:  sess.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: sess.RefreshTokenExpiresAt,
	}, nil
}

func (s *authService) Me(ctx context.Context) (*models.UserProfile, error) {
	u, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	p := profile(*u)
	return &p, nil
}

func (s *authService) IsLoggedIn(ctx context.Context) bool {
	return s.store.HasValidSession(ctx)
}

func (s *authService) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

func profile(u api.UserInfo) models.UserProfile {
	return models.UserProfile{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
