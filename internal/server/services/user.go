package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/dbx"
	"github.com/dmitrijs2005/healthrecords/internal/server/auth"
	"github.com/dmitrijs2005/healthrecords/internal/server/models"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/users"
)

// UserService provides account operations outside the session flow:
// provisioning the seed account and reading a profile.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{db: db, repomanager: m}
}

// EnsureUser creates the account unless one with the same username or email
// already exists. It reports whether a user was created.
func (s *UserService) EnsureUser(ctx context.Context, username, email, password, role string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	created := false
	err = s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		byName, err := repo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		byEmail, err := repo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if byName || byEmail {
			return nil
		}

		_, err = repo.Create(ctx, &models.User{Username: username, Email: email, PasswordHash: hash, Role: role})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Profile returns the public profile of a user.
func (s *UserService) Profile(ctx context.Context, id int64) (*models.UserInfo, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := u.Info()
	return &info, nil
}

func (s *UserService) inTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.repomanager.Users(nil))
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
}
