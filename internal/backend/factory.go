package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"extrato/internal/adapters"
	"extrato/internal/amqp"
	"extrato/internal/services"
	ports "extrato/internal/sheets"
	gsheet "extrato/internal/sheets/google"
	"extrato/internal/sheets/xlsx"
	"extrato/internal/statement"
	"extrato/internal/storage"
	"extrato/internal/storage/memory"
	"extrato/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	parser, err := f.createParser(config)
	if err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	fetcher := f.createFetcher(config)

	var opts []services.BatchOption
	if config.Observer != nil {
		opts = append(opts, services.WithObserver(config.Observer))
	}

	result := &BackendResult{
		Store:     store,
		Fetcher:   fetcher,
		Processor: services.NewBatchProcessor(fetcher, parser, store.Stores(), opts...),
		Status:    services.NewStatusReporter(store.Stores()),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, async sync disabled", "error", err)
		} else {
			result.Publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.Publisher != nil {
			errs = append(errs, result.Publisher.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	return result, nil
}

func (f *DefaultFactory) createParser(config Config) (*statement.Parser, error) {
	aliases := statement.DefaultAliases()
	if config.ColumnAliasesFile != "" {
		extra, err := statement.LoadAliases(config.ColumnAliasesFile)
		if err != nil {
			return nil, fmt.Errorf("load column aliases: %w", err)
		}
		aliases = aliases.Merge(extra)
		f.logger.Info("Loaded column aliases", "file", config.ColumnAliasesFile, "fields", len(extra))
	}
	return statement.NewParser(
		statement.WithAliases(aliases),
		statement.WithStrictDates(config.StrictDates),
	), nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (adapters.StoreBackend, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return adapters.NewSQLiteAdapter(repo), nil

	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return adapters.NewPostgresAdapter(repo), nil

	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return adapters.NewMemoryAdapter(memory.New()), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFetcher(config Config) ports.MatrixFetcher {
	switch {
	case config.Fetcher != nil:
		return config.Fetcher
	case config.StatementFile != "":
		f.logger.Info("Reading statements from local workbook", "file", config.StatementFile)
		return xlsx.New(config.StatementFile)
	default:
		return gsheet.New(gsheet.Config{Title: config.StatementTitle})
	}
}
