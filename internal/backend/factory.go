package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetool/internal/amqp"
	"expensetool/internal/currency"
	applog "expensetool/internal/log"
	"expensetool/internal/pipeline"
	"expensetool/internal/services"
	"expensetool/internal/storage"
	"expensetool/internal/tools"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	base   *slog.Logger
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		base:   logger,
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.CreateStore(ctx, config)
	if err != nil {
		return nil, err
	}

	conv := currency.New(
		currency.NewHTTPSource(config.RateAPIURL, config.RateTimeout),
		currency.WithBase(config.BaseCurrency),
		currency.WithTTL(config.RateCacheTTL),
		currency.WithCapacity(config.RateCacheSize),
		currency.WithLogger(f.base),
	)

	// publisher stays an untyped nil when AMQP is off or unreachable
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(store, pipeline.New(conv, pipeline.WithLogger(f.base)), publisher, config.UserID)
	t := tools.New(svc, conv, tools.Options{UserCurrency: config.UserCurrency})

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"base_currency", conv.Base(),
		"events_enabled", publisher != nil)

	return &BackendResult{
		Store:     store,
		Converter: conv,
		Service:   svc,
		Tools:     t,
		Cleanup:   svc.Close,
	}, nil
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
