// Package service provides the application service that runs one analysis:
// read a trace, fold it per analyzer, export, publish and record the run.
package service

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/stack-analysis/internal/parser"
	"github.com/stack-analysis/internal/parser/collapsed"
	"github.com/stack-analysis/internal/parser/jsonl"
	"github.com/stack-analysis/internal/parser/pprof"
	"github.com/stack-analysis/internal/repository"
	"github.com/stack-analysis/internal/storage"
	"github.com/stack-analysis/pkg/config"
	"github.com/stack-analysis/pkg/utils"
)

// Service is the main application service.
type Service struct {
	config *config.Config
	logger utils.Logger
	fs     afero.Fs
	clock  utils.Clock

	parsers   *parser.Registry
	db        *repository.Repositories
	runs      repository.RunRepository
	storage   storage.Storage
	publisher *storage.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithFs sets the file system inputs are read from and outputs written to.
func WithFs(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithClock sets the clock used for run timestamps and phase timings.
func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRunRepository records runs in repo instead of the configured database.
func WithRunRepository(repo repository.RunRepository) Option {
	return func(s *Service) { s.runs = repo }
}

// WithStorage publishes outputs to store instead of the configured storage.
func WithStorage(store storage.Storage) Option {
	return func(s *Service) { s.storage = store }
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = utils.NewLogger(utils.LevelInfo, "text", nil)
	}

	s := &Service{
		config:  cfg,
		logger:  logger,
		fs:      afero.NewOsFs(),
		clock:   utils.NewRealClock(),
		parsers: parser.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	collapsed.RegisterWithRegistry(s.parsers)
	pprof.RegisterWithRegistry(s.parsers)
	jsonl.RegisterWithRegistry(s.parsers)

	return s, nil
}

// Initialize connects the run ledger and the publishing storage when they
// are enabled and not already injected.
func (s *Service) Initialize(ctx context.Context) error {
	if s.runs == nil && s.config.DatabaseEnabled() {
		if err := s.initDatabase(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if s.storage == nil && s.config.StorageEnabled() {
		if err := s.initStorage(); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}
	if s.storage != nil {
		s.publisher = storage.NewPublisher(s.storage, s.fs, s.config.Storage.Prefix, s.logger)
	}

	return nil
}

// initDatabase opens the ledger database and migrates its tables.
func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	gormDB, err := repository.NewGormDB(&s.config.Database, s.logger)
	if err != nil {
		return err
	}

	s.db, err = repository.NewRepositoriesFor(&s.config.Database, gormDB)
	if err != nil {
		if sqlDB, derr := gormDB.DB(); derr == nil {
			sqlDB.Close()
		}
		return err
	}
	if err := s.db.Migrate(); err != nil {
		s.db.Close()
		return err
	}
	s.runs = s.db.Runs
	s.logger.Info("Database connection established")

	return nil
}

// initStorage initializes the object storage.
func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage, s.fs)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")

	return nil
}

// Parsers returns the input registry.
func (s *Service) Parsers() *parser.Registry {
	return s.parsers
}

// Runs returns the run ledger, or nil when runs are not recorded.
func (s *Service) Runs() repository.RunRepository {
	return s.runs
}

// Close releases the database connection.
func (s *Service) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
			return err
		}
	}
	return nil
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}
