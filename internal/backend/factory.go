package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/store"
	"bilancio/internal/store/memory"
	"bilancio/internal/store/sqlite"
)

const summaryCacheTTL = 10 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	st, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	ledger, publisher := f.wireLedger(st, config)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	cleanup := func() error {
		if publisher != nil {
			publisher.Close()
		}
		return st.Close()
	}
	return &Result{
		Ledger:  ledger,
		Store:   st,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	st := memory.New()

	ledger, publisher := f.wireLedger(st, config)

	f.logger.Info("Initialized memory backend", "amqp_enabled", publisher != nil)

	var cleanup CleanupFunc
	if publisher != nil {
		cleanup = publisher.Close
	}
	return &Result{
		Ledger:  ledger,
		Store:   st,
		Cleanup: cleanup,
	}, nil
}

// wireLedger assembles the ledger on top of the given store, attaching
// the optional AMQP publisher and a bounded summary cache.
func (f *DefaultFactory) wireLedger(st store.Store, config Config) (*services.Ledger, *amqp.Client) {
	opts := []services.Option{}

	var publisher *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
			opts = append(opts, services.WithPublisher(client))
		}
	}

	size := config.SummaryCacheSize
	if size <= 0 {
		size = 64
	}
	opts = append(opts, services.WithSummaryCache(cache.NewLRUCache[core.MonthlySummary](size, summaryCacheTTL)))

	return services.NewLedger(st, opts...), publisher
}
