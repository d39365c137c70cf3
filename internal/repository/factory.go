package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/telemetry"
	"github.com/stack-analysis/pkg/utils"
)

// DBType represents the database type.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// slowQuery is the duration above which ledger queries are logged.
const slowQuery = 200 * time.Millisecond

// Dialector returns the GORM dialector for the configured database.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch DBType(cfg.Type) {
	case DBTypeSQLite:
		return sqlite.Open(cfg.Database), nil
	case DBTypePostgres, DBType("postgresql"):
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		return postgres.Open(dsn), nil
	case DBTypeMySQL:
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigError, "unsupported database type: %s", cfg.Type)
	}
}

// NewGormDB opens the run ledger described by cfg. Query errors and slow
// queries go to log.
func NewGormDB(cfg *config.DatabaseConfig, log utils.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	maxConns := cfg.MaxConns
	if DBType(cfg.Type) == DBTypeSQLite {
		// sqlite has one writer; a second :memory: connection is a second database.
		maxConns = 1
	}
	return Open(dialector, maxConns, WithLogger(log))
}

// OpenOption configures Open.
type OpenOption func(*gorm.Config)

// WithLogger routes GORM's own logging to log.
func WithLogger(log utils.Logger) OpenOption {
	return func(c *gorm.Config) {
		c.Logger = newLedgerLogger(log)
	}
}

// Open connects through dialector and configures the connection pool.
func Open(dialector gorm.Dialector, maxConns int, opts ...OpenOption) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(gormConfig)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, dbError("open database", err)
	}

	// Enable OpenTelemetry tracing if OTEL_ENABLED=true
	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, dbError("enable telemetry", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError("get underlying sql.DB", err)
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, dbError("ping database", err)
	}

	return db, nil
}

func dbError(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to "+op, err)
}

// ledgerLogger adapts utils.Logger to GORM's logger interface.
type ledgerLogger struct {
	log   utils.Logger
	level logger.LogLevel
}

func newLedgerLogger(log utils.Logger) *ledgerLogger {
	return &ledgerLogger{
		log:   utils.Or(log).WithField("component", "ledger"),
		level: logger.Warn,
	}
}

func (l *ledgerLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *ledgerLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.Debug(msg, args...)
	}
}

func (l *ledgerLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warn(msg, args...)
	}
}

func (l *ledgerLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.Error(msg, args...)
	}
}

// Trace logs failed statements and statements slower than slowQuery.
func (l *ledgerLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		query, rows := fc()
		l.log.WithFields(map[string]interface{}{"rows": rows, "elapsed": elapsed}).Error("Query failed: %v: %s", err, query)
	case elapsed > slowQuery && l.level >= logger.Warn:
		query, rows := fc()
		l.log.WithFields(map[string]interface{}{"rows": rows, "elapsed": elapsed}).Warn("Slow query: %s", query)
	}
}

// Repositories holds all repository instances.
type Repositories struct {
	Runs   RunRepository
	gormDB *gorm.DB
}

// NewRepositories creates all repositories using GORM.
func NewRepositories(gormDB *gorm.DB) *Repositories {
	return &Repositories{
		Runs:   NewGormRunRepository(gormDB),
		gormDB: gormDB,
	}
}

// NewRepositoriesFor creates the repositories selected by cfg.Driver. The
// sql driver runs hand-written statements on the connection of gormDB;
// GORM still owns the schema.
func NewRepositoriesFor(cfg *config.DatabaseConfig, gormDB *gorm.DB) (*Repositories, error) {
	repos := NewRepositories(gormDB)
	if cfg.Driver != "sql" {
		return repos, nil
	}

	var dialect Dialect
	switch DBType(cfg.Type) {
	case DBTypePostgres, DBType("postgresql"):
		dialect = DialectPostgres
	case DBTypeMySQL:
		dialect = DialectMySQL
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigError, "database driver sql does not support %s", cfg.Type)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, dbError("get underlying sql.DB", err)
	}
	repos.Runs = NewSQLRunRepository(sqlDB, dialect)
	return repos, nil
}

// Migrate creates or updates the ledger tables.
func (r *Repositories) Migrate() error {
	if err := r.gormDB.AutoMigrate(&RunRecord{}, &RunOutput{}); err != nil {
		return dbError("migrate", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	if r.gormDB != nil {
		sqlDB, err := r.gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// HealthCheck verifies the database connection is still alive.
func (r *Repositories) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying sql.DB connection.
func (r *Repositories) DB() *sql.DB {
	sqlDB, _ := r.gormDB.DB()
	return sqlDB
}
