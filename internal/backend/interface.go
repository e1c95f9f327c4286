package backend

import (
	"context"
	"time"

	"expensetool/internal/currency"
	"expensetool/internal/services"
	"expensetool/internal/storage"
	"expensetool/internal/tools"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the wired components of one process.
type BackendResult struct {
	Store     storage.Store
	Converter *currency.Converter
	Service   *services.ExpenseService
	Tools     *tools.Tools
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend builds the store and everything layered on it.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateStore builds only the configured store.
	CreateStore(ctx context.Context, config Config) (storage.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	// Event publishing is disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	RateAPIURL    string
	RateTimeout   time.Duration
	RateCacheTTL  time.Duration
	RateCacheSize int
	BaseCurrency  string

	UserID       string
	UserCurrency string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
