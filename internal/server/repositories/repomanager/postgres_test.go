package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/healthrecords/internal/server/models"
	"github.com/dmitrijs2005/healthrecords/internal/server/repositories/users"
)

func stubGooseUp(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUp
	gooseUp = fn
	t.Cleanup(func() { gooseUp = orig })
}

func TestOpen_EmptyDSNSelectsMemory(t *testing.T) {
	db, m, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Equal(t, "memory", m.Backend())
	assert.IsType(t, &users.MemoryRepository{}, m.Users(nil))
}

func TestOpen_DSNSelectsPostgres(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		db, _, err := sqlmock.New()
		return db, err
	}

	db, m, err := Open("postgres://hr:hr@localhost/healthrecords")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, "postgres://hr:hr@localhost/healthrecords", gotDSN)
	assert.Equal(t, "postgres", m.Backend())
	assert.IsType(t, &users.PostgresRepository{}, m.Users(db))
}

func TestOpen_DriverError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") }

	_, _, err := Open("postgres://")
	require.ErrorContains(t, err, "db init error: bad dsn")
}

func TestMemoryManager_SharesRepository(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	require.NoError(t, m.RunMigrations(ctx, nil))

	_, err := m.Users(nil).Create(ctx, &models.User{Username: "alice", Email: "alice@clinic.test"})
	require.NoError(t, err)

	ok, err := m.Users(nil).ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "second Users() call must see the same accounts")
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("applies embedded schema", func(t *testing.T) {
		stubGooseUp(t, func(_ context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			assert.Same(t, db, got)
			assert.Equal(t, ".", dir)
			assert.Empty(t, opts)
			return nil
		})
		require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	})

	t.Run("wraps goose error", func(t *testing.T) {
		boom := errors.New("boom")
		stubGooseUp(t, func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return boom })

		err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
		require.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "apply users schema")
	})

	t.Run("nil handle", func(t *testing.T) {
		require.Error(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), nil))
	})
}
