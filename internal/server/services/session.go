// Package services contains server-side business logic. SessionService drives
// the login, refresh and logout flows on top of the credential store and the
// token issuer/validator.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/logging"
	"github.com/dmitrijs2005/healthrecords/internal/server/auth"
	"github.com/dmitrijs2005/healthrecords/internal/server/models"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/repomanager"
)

// Log event identifiers.
const (
	EventLoginAttempt               = "LoginAttempt"
	EventLoginSuccess               = "LoginSuccess"
	EventLoginFailedInvalidUser     = "LoginFailedInvalidUser"
	EventLoginFailedInvalidPassword = "LoginFailedInvalidPassword"
	EventRefreshTokenAttempt        = "RefreshTokenAttempt"
	EventRefreshTokenSuccess        = "RefreshTokenSuccess"
	EventRefreshTokenFailed         = "RefreshTokenFailed"
	EventLogoutAttempt              = "LogoutAttempt"
	EventLogoutSuccess              = "LogoutSuccess"
	EventLogoutFailed               = "LogoutFailed"
)

// LoginResult is returned by both Login and Refresh.
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	ExpiresAt             time.Time
	RefreshTokenExpiresAt time.Time
	User                  models.UserInfo
}

type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	validator   *auth.Validator
	log         logging.Logger
}

// NewSessionService wires the service. db may be nil when the repository
// manager does not need a connection.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, validator *auth.Validator, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		validator:   validator,
		log:         log.With("module", "session"),
	}
}

// Login checks the credentials and issues a token pair. identity is tried as
// a username first, then as an email. Unknown users and wrong passwords both
// yield common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, identity, password string) (*LoginResult, error) {
	s.log.Info(ctx, "login attempt", "event", EventLoginAttempt, "username", identity)

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, identity)
	if errors.Is(err, common.ErrorNotFound) {
		user, err = repo.GetByEmail(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "login with unknown user", "event", EventLoginFailedInvalidUser, "username", identity)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.log.Warn(ctx, "login with wrong password", "event", EventLoginFailedInvalidPassword,
			"username", identity, "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login succeeded", "event", EventLoginSuccess,
		"username", user.Username, "user_id", user.ID, "role", user.Role)
	return res, nil
}

// Refresh rotates a session: the refresh token must be valid, carry
// token_type=refresh and name an existing user. Every rejection yields
// common.ErrInvalidRefreshToken.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	s.log.Info(ctx, "refresh attempt", "event", EventRefreshTokenAttempt)

	if !s.validator.Validate(refreshToken) {
		s.log.Warn(ctx, "refresh token invalid or expired", "event", EventRefreshTokenFailed)
		return nil, common.ErrInvalidRefreshToken
	}

	claims, err := s.validator.ParseRefresh(refreshToken)
	if err != nil {
		s.log.Warn(ctx, "token is not a refresh token", "event", EventRefreshTokenFailed)
		return nil, common.ErrInvalidRefreshToken
	}

	userID, err := claims.UserID()
	if err != nil {
		s.log.Warn(ctx, "refresh token carries no user id", "event", EventRefreshTokenFailed)
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "user for refresh token not found", "event", EventRefreshTokenFailed, "user_id", userID)
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "token refreshed", "event", EventRefreshTokenSuccess, "user_id", userID)
	return res, nil
}

// Logout reports whether refreshToken is valid. Tokens are stateless and
// nothing is revoked; the client ends the session by discarding them.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) bool {
	s.log.Info(ctx, "logout attempt", "event", EventLogoutAttempt)

	if !s.validator.Validate(refreshToken) {
		s.log.Warn(ctx, "refresh token invalid for logout", "event", EventLogoutFailed)
		return false
	}

	s.log.Info(ctx, "logout succeeded", "event", EventLogoutSuccess)
	return true
}

func (s *SessionService) issue(user *models.User) (*LoginResult, error) {
	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		ExpiresAt:             pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		User:                  user.Info(),
	}, nil
}
