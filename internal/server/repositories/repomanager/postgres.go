// Package repomanager chooses the credential store backend and applies its
// schema with goose.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/healthrecords/internal/dbx"
	"github.com/dmitrijs2005/healthrecords/internal/server/migrations"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/users"
)

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Backend() string { return "postgres" }

// Users binds a repository to db, which may be a transaction.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// gooseUp is swapped in tests.
var gooseUp = goose.UpContext

// RunMigrations applies the embedded users schema.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("postgres migrations need a database handle")
	}
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("apply users schema: %w", err)
	}
	return nil
}
