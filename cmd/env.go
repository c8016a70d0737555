package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/config"
	"github.com/alexanderksmi/doffin-hunter/internal/evaluate"
	"github.com/alexanderksmi/doffin-hunter/internal/events"
	"github.com/alexanderksmi/doffin-hunter/internal/queue"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

// initStore opens the configured store. The caller closes it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates the config for mode, opens the store and applies
// migrations.
func openStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initPublisher builds the event publisher. pg_notify reuses the Postgres
// store's pool.
func initPublisher(st store.Store) (events.Publisher, func(), error) {
	var pg events.Execer
	if ps, ok := st.(*store.PostgresStore); ok {
		pg = ps.Pool()
	}
	return events.New(eventsConfig(cfg.Events), pg)
}

func eventsConfig(c config.EventsConfig) events.Config {
	return events.Config{
		Backends: c.Backends,
		Redis: events.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
		NATSURL:          c.NATSURL,
		FailureThreshold: c.FailureThreshold,
		ResetTimeout:     c.ResetTimeout,
	}
}

func queueConfig(c config.QueueConfig) queue.Config {
	return queue.Config{
		MaxRetries:         c.MaxRetries,
		PollInterval:       c.PollInterval,
		Budget:             c.Budget,
		Lease:              c.Lease,
		MaxBackoff:         c.MaxBackoff,
		ProfileConcurrency: c.ProfileConcurrency,
	}
}

func newRunner(st store.Store) *evaluate.Runner {
	return evaluate.NewRunner(st, evaluate.WithOrgConcurrency(cfg.Batch.OrgConcurrency))
}

func logClose(name string, fn func() error) {
	if err := fn(); err != nil {
		zap.L().Warn("close failed", zap.String("resource", name), zap.Error(err))
	}
}
