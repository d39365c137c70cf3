package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stack-analysis/internal/testutil"
	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

func TestDialector(t *testing.T) {
	for _, typ := range []string{"sqlite", "postgres", "postgresql", "mysql"} {
		t.Run(typ, func(t *testing.T) {
			d, err := Dialector(&config.DatabaseConfig{Type: typ, Host: "localhost", Database: "x"})
			require.NoError(t, err)
			assert.NotNil(t, d)
		})
	}

	_, err := Dialector(&config.DatabaseConfig{Type: "oracle"})
	assert.ErrorIs(t, err, apperrors.ErrConfigError)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestNewGormDB_SQLite(t *testing.T) {
	db, err := NewGormDB(&config.DatabaseConfig{Type: "sqlite", Database: ":memory:", MaxConns: 8}, nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	repos := NewRepositories(db)
	require.NoError(t, repos.Migrate())
	assert.NotNil(t, repos.Runs)
	assert.NotNil(t, repos.DB())
	assert.NoError(t, repos.HealthCheck(context.Background()))
	assert.NoError(t, repos.Close())
}

func TestOpen_PoolSettings(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), 0)
	require.NoError(t, err)
	defer NewRepositories(db).Close()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestRepositories_CloseNil(t *testing.T) {
	repos := &Repositories{}
	assert.NoError(t, repos.Close())
}

func TestOpen_RoutesQueryErrorsToLogger(t *testing.T) {
	log := testutil.NewRecordingLogger()
	db, err := Open(sqlite.Open(":memory:"), 1, WithLogger(log))
	require.NoError(t, err)
	defer NewRepositories(db).Close()

	err = db.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	entries := log.Entries(utils.LevelError)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "missing_table")
	assert.Equal(t, "ledger", entries[0].Fields["component"])
}

func TestLedgerLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("slow query warns", func(t *testing.T) {
		log := testutil.NewRecordingLogger()
		l := newLedgerLogger(log)
		l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		entries := log.Entries(utils.LevelWarn)
		require.Len(t, entries, 1)
		assert.Equal(t, "Slow query: SELECT 1", entries[0].Message)
	})

	t.Run("record not found is quiet", func(t *testing.T) {
		log := testutil.NewRecordingLogger()
		l := newLedgerLogger(log)
		l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
		assert.Empty(t, log.Entries(utils.LevelError))
		assert.Empty(t, log.Entries(utils.LevelWarn))
	})

	t.Run("silent mode drops everything", func(t *testing.T) {
		log := testutil.NewRecordingLogger()
		l := newLedgerLogger(log).LogMode(logger.Silent)
		l.Trace(context.Background(), time.Now().Add(-time.Second), query, errors.New("boom"))
		assert.Empty(t, log.Entries(utils.LevelError))
		assert.Empty(t, log.Entries(utils.LevelWarn))
	})
}

func TestNewRepositoriesFor(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), 1)
	require.NoError(t, err)
	defer NewRepositories(db).Close()

	repos, err := NewRepositoriesFor(&config.DatabaseConfig{Type: "sqlite", Driver: "gorm"}, db)
	require.NoError(t, err)
	assert.IsType(t, &GormRunRepository{}, repos.Runs)

	repos, err = NewRepositoriesFor(&config.DatabaseConfig{Type: "mysql", Driver: "sql"}, db)
	require.NoError(t, err)
	require.IsType(t, &SQLRunRepository{}, repos.Runs)
	assert.Equal(t, DialectMySQL, repos.Runs.(*SQLRunRepository).dialect)

	_, err = NewRepositoriesFor(&config.DatabaseConfig{Type: "sqlite", Driver: "sql"}, db)
	assert.ErrorIs(t, err, apperrors.ErrConfigError)
}
