/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package personstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suparena/personstore/cache"
	"github.com/suparena/personstore/config"
	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/datastore/ddb"
	"github.com/suparena/personstore/datastore/memory"
	"github.com/suparena/personstore/datastore/postgres"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/events"
	"github.com/suparena/personstore/logging"
	"github.com/suparena/personstore/metrics"
	"github.com/suparena/personstore/usecase"
)

// closeTimeout bounds how long Close waits for queued side effects.
const closeTimeout = 10 * time.Second

// App is an assembled PersonStore: one backend, its cache and its event sink.
type App struct {
	// People is the use-case facade every caller goes through.
	People  *usecase.PersonService
	Metrics *metrics.Metrics

	runner     datastore.Runner
	aside      *cache.Aside
	publisher  events.Publisher
	dispatcher *events.Dispatcher
	logger     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open builds an App from cfg. Collectors are registered with reg when it is not nil.
// Everything opened before a failure is closed again.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (_ *App, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrDiscard(logger)

	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app := &App{Metrics: m, logger: logging.Component(logger, "personstore")}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.runner, err = openRunner(ctx, cfg, logger, m); err != nil {
		return nil, err
	}

	store, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	app.aside = cache.NewAside(store, logger, m)

	if app.publisher, err = openPublisher(ctx, cfg.Events, logger); err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithCache(app.aside),
		usecase.WithNotifier(events.NewNotifier(app.publisher, logger, m)),
		usecase.WithLogger(logger),
		usecase.WithMetrics(m),
	}
	if cfg.Events.QueueSize > 0 {
		app.dispatcher = events.NewDispatcher(cfg.Events.QueueSize, logger)
		opts = append(opts, usecase.WithDispatcher(app.dispatcher))
	}
	app.People = usecase.NewPersonService(app.runner, opts...)

	app.logger.Info("opened",
		"backend", cfg.Backend,
		"cache", cfg.Cache.Kind,
		"events", cfg.Events.Kind,
	)
	return app, nil
}

func openRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (datastore.Runner, error) {
	switch cfg.BackendName() {
	case datastore.Memory:
		return memory.New(memory.NewCounter(cfg.Memory.CounterStart),
			memory.WithLogger(logger),
			memory.WithTxObserver(m.TxObserver()),
		), nil

	case datastore.Postgres:
		pg := cfg.Postgres
		db, err := postgres.Open(ctx, postgres.ConnOptions{
			URL:             pg.URL,
			Driver:          pg.Driver,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: pg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if pg.Migrate {
			if err := postgres.Migrate(ctx, db, logger); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return postgres.NewRunner(db,
			postgres.WithLogger(logger),
			postgres.WithTxObserver(m.TxObserver()),
		), nil

	case datastore.DynamoDB:
		d := cfg.DynamoDB
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientOptions{
			Region:    d.Region,
			AccessKey: d.AccessKey,
			SecretKey: d.SecretKey,
			Endpoint:  d.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return ddb.New(client, d.Table,
			ddb.WithLogger(logger),
			ddb.WithTxObserver(m.TxObserver()),
		), nil

	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

func openCache(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	switch c.Kind {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{URL: c.RedisURL, TTL: c.TTL})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheLocal:
		opts := cache.DefaultLocalOptions()
		opts.Capacity, opts.NumShards, opts.TTL = c.Capacity, c.Shards, c.TTL
		store, err := cache.NewLocalStore(opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return cache.NopStore{}, nil
	}
}

func openPublisher(ctx context.Context, e config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	kinds := e.Kinds()
	publishers := make([]events.Publisher, 0, len(kinds))
	for _, kind := range kinds {
		p, err := openSink(ctx, kind, e, logger)
		if err != nil {
			for _, opened := range publishers {
				if c, ok := opened.(io.Closer); ok {
					_ = c.Close()
				}
			}
			return nil, err
		}
		publishers = append(publishers, p)
	}

	switch len(publishers) {
	case 0:
		return nil, nil
	case 1:
		return publishers[0], nil
	default:
		return events.NewEmitter(logger, publishers...), nil
	}
}

func openSink(ctx context.Context, kind string, e config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	switch kind {
	case config.EventsLog:
		return events.NewLogPublisher(logger), nil
	case config.EventsAMQP:
		p, err := events.DialAMQP(e.AMQPURL, e.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.EventsRedis:
		p, err := events.NewRedisPublisher(ctx, e.RedisURL, e.Channel)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errs.NewValidationError("events.kind", fmt.Sprintf("unknown publisher %q", kind))
	}
}

// Runner exposes the underlying transaction runner.
func (a *App) Runner() datastore.Runner {
	return a.runner
}

// Close drains pending side effects, then releases the publisher, the cache and
// the backend. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errList []error
		if a.dispatcher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if err := a.dispatcher.Flush(ctx); err != nil {
				errList = append(errList, err)
			}
			cancel()
			if err := a.dispatcher.Close(); err != nil {
				errList = append(errList, err)
			}
		}
		if c, ok := a.publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errList = append(errList, fmt.Errorf("failed to close publisher: %w", err))
			}
		}
		if a.aside != nil {
			if err := a.aside.Close(); err != nil {
				errList = append(errList, fmt.Errorf("failed to close cache: %w", err))
			}
		}
		if a.runner != nil {
			if err := a.runner.Close(); err != nil {
				errList = append(errList, fmt.Errorf("failed to close backend: %w", err))
			}
		}
		a.closeErr = errors.Join(errList...)
		if a.closeErr != nil {
			a.logger.Warn("close failed", "error", a.closeErr)
		}
	})
	return a.closeErr
}
