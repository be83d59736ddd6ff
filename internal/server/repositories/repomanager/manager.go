package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/healthrecords/internal/dbx"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/users"
)

// RepositoryManager binds the credential store to a storage backend.
type RepositoryManager interface {
	// Backend names the storage in use, for startup logs.
	Backend() string
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// Open picks the backend for dsn. An empty dsn selects the in-memory store and
// a nil *sql.DB; anything else is opened with the pgx driver.
func Open(dsn string) (*sql.DB, RepositoryManager, error) {
	if dsn == "" {
		return nil, NewMemoryRepositoryManager(), nil
	}
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	return db, NewPostgresRepositoryManager(), nil
}
