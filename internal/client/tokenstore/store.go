// Package tokenstore persists the client session in the local SQLite
// database so that a restart keeps the user signed in.
package tokenstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/healthrecords/internal/client/models"
	"github.com/dmitrijs2005/healthrecords/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/dbx"
)

const (
	keyPrefix           = "session."
	keyAccessToken      = keyPrefix + "access_token"
	keyRefreshToken     = keyPrefix + "refresh_token"
	keyAccessExpiresAt  = keyPrefix + "access_expires_at"
	keyRefreshExpiresAt = keyPrefix + "refresh_expires_at"
	keyUser             = keyPrefix + "user"
)

// AccessTokenExpiryBuffer makes an access token count as expired slightly
// before its real expiry, so it is not rejected in flight.
const AccessTokenExpiryBuffer = time.Minute

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) repo(tx dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(tx)
}

// Save replaces the whole session atomically.
func (s *Store) Save(ctx context.Context, sess *models.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repo(tx)
		if err := r.DeletePrefix(ctx, keyPrefix); err != nil {
			return err
		}
		if err := putTokens(ctx, r, sess.Tokens); err != nil {
			return err
		}
		return r.Set(ctx, keyUser, user)
	})
}

// UpdateTokens replaces both tokens and their expirations and keeps the
// stored profile.
func (s *Store) UpdateTokens(ctx context.Context, t models.Tokens) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return putTokens(ctx, s.repo(tx), t)
	})
}

func putTokens(ctx context.Context, r metadata.Repository, t models.Tokens) error {
	values := []struct {
		key   string
		value string
	}{
		{keyAccessToken, t.AccessToken},
		{keyRefreshToken, t.RefreshToken},
		{keyAccessExpiresAt, formatTime(t.AccessTokenExpiresAt)},
		{keyRefreshExpiresAt, formatTime(t.RefreshTokenExpiresAt)},
	}
	for _, v := range values {
		var err error
		if v.value == "" {
			err = r.Delete(ctx, v.key)
		} else {
			err = r.Set(ctx, v.key, []byte(v.value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every session field in a single statement.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo(s.db).DeletePrefix(ctx, keyPrefix)
}

// Load returns common.ErrorNotFound when no session is stored.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	all, err := s.repo(s.db).ListPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	access := string(all[keyAccessToken])
	refresh := string(all[keyRefreshToken])
	if access == "" && refresh == "" {
		return nil, common.ErrorNotFound
	}

	sess := &models.Session{
		Tokens: models.Tokens{
			AccessToken:           access,
			RefreshToken:          refresh,
			AccessTokenExpiresAt:  parseTime(all[keyAccessExpiresAt]),
			RefreshTokenExpiresAt: parseTime(all[keyRefreshExpiresAt]),
		},
	}
	if raw := all[keyUser]; len(raw) > 0 {
		if err := json.Unmarshal(raw, &sess.User); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
	}
	return sess, nil
}

// AccessToken returns "" when none is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyAccessToken)
}

// RefreshToken returns "" when none is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyRefreshToken)
}

// User returns common.ErrorNotFound when no profile is stored.
func (s *Store) User(ctx context.Context) (*models.UserProfile, error) {
	raw, err := s.repo(s.db).Get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, common.ErrorNotFound
	}
	var u models.UserProfile
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.repo(s.db).Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// IsAccessExpired reports whether the access token is missing, unreadable
// or within AccessTokenExpiryBuffer of its expiry.
func (s *Store) IsAccessExpired(ctx context.Context) bool {
	return s.isExpired(ctx, keyAccessToken, keyAccessExpiresAt, AccessTokenExpiryBuffer)
}

// IsRefreshExpired reports whether the refresh token is missing, unreadable
// or past its expiry.
func (s *Store) IsRefreshExpired(ctx context.Context) bool {
	return s.isExpired(ctx, keyRefreshToken, keyRefreshExpiresAt, 0)
}

// HasValidSession reports whether both tokens are stored and the refresh
// token can still be used.
func (s *Store) HasValidSession(ctx context.Context) bool {
	access, err := s.AccessToken(ctx)
	if err != nil || access == "" {
		return false
	}
	refresh, err := s.RefreshToken(ctx)
	if err != nil || refresh == "" {
		return false
	}
	return !s.IsRefreshExpired(ctx)
}

func (s *Store) isExpired(ctx context.Context, tokenKey, expiresKey string, buffer time.Duration) bool {
	token, err := s.get(ctx, tokenKey)
	if err != nil || token == "" {
		return true
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}

	now := s.now()
	if expiresWithin(exp, now, buffer) {
		return true
	}

	stored, err := s.get(ctx, expiresKey)
	if err != nil {
		return true
	}
	if at := parseTime([]byte(stored)); !at.IsZero() {
		return expiresWithin(at, now, buffer)
	}
	return false
}

func expiresWithin(exp, now time.Time, buffer time.Duration) bool {
	if buffer == 0 {
		return !exp.After(now)
	}
	return exp.Sub(now) < buffer
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
func TokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", common.ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(b []byte) time.Time {
	if len(b) == 0 {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, string(b))
	if err != nil {
		return time.Time{}
	}
	return t
}
