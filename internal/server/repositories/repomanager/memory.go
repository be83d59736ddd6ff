package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/healthrecords/internal/dbx"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out one process-wide users repository and
// ignores the DBTX argument. Accounts do not survive a restart.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Backend() string { return "memory" }

func (m *MemoryRepositoryManager) Users(_ dbx.DBTX) users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
