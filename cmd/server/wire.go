package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/accounts"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/config"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/events"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/events/kafka"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/events/rabbitmq"
	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/ledger"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/locks"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/profit"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/referral"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/memory"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/postgres"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/sqlite"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/sqlstore"
)

// app is the fully wired set of services for one process.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	accounts *accounts.Service
	engine   *profit.Engine
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown", "err", err)
		}
	}
}

type stores struct {
	accounts interfaces.AccountStore
	ledger   interfaces.LedgerStore
	runs     interfaces.RunStore
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	return config.LoadConfig(dir)
}

// openDB opens and migrates the SQL database configured in cfg.
func openDB(ctx context.Context, cfg config.Config) (*sql.DB, sqlstore.Dialect, error) {
	var (
		db      *sql.DB
		dialect sqlstore.Dialect
		err     error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		dialect = postgres.Dialect
	case config.DriverSQLite:
		db, err = sqlite.Open(ctx, cfg.DatabaseURL)
		dialect = sqlite.Dialect
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("driver %q has no database", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, sqlstore.Dialect{}, err
	}
	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, sqlstore.Dialect{}, err
	}
	return db, dialect, nil
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := cfg.Logger()
	a := &app{cfg: cfg, logger: logger}

	var st stores
	if cfg.DatabaseDriver == config.DriverMemory {
		st = stores{
			accounts: memory.NewMemoryAccountStore(),
			ledger:   memory.NewMemoryLedgerStore(),
			runs:     memory.NewMemoryRunStore(),
		}
	} else {
		db, dialect, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		st = stores{
			accounts: sqlstore.NewAccountStore(db, dialect),
			ledger:   sqlstore.NewLedgerStore(db, dialect),
			runs:     sqlstore.NewRunStore(db, dialect),
		}
		logger.Info("database connected", "driver", cfg.DatabaseDriver)
	}

	publisher := buildPublisher(cfg, logger, a)
	locker := buildLocker(ctx, cfg, logger, a)

	l := ledger.NewLedger(st.ledger, ledger.WithPublisher(publisher), ledger.WithLogger(logger))
	graph := referral.NewGraph(st.accounts)
	a.accounts = accounts.NewService(st.accounts, l, st.runs, graph, locker, accounts.WithLogger(logger))
	a.engine = profit.NewEngine(st.accounts, l, st.runs, graph, locker,
		profit.WithPublisher(publisher), profit.WithLogger(logger))
	return a, nil
}

// buildPublisher falls back to logging events when the broker is unavailable.
func buildPublisher(cfg config.Config, logger *slog.Logger, a *app) interfaces.EventPublisher {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		brokers := cfg.Brokers()
		if len(brokers) == 0 {
			logger.Warn("KAFKA_BROKERS empty; logging events instead")
			break
		}
		p := kafka.NewPublisher(brokers, cfg.KafkaTopic)
		a.closers = append(a.closers, p.Close)
		logger.Info("kafka publisher configured", "topic", cfg.KafkaTopic)
		return p
	case config.EventsRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable; logging events instead", "err", err)
			break
		}
		a.closers = append(a.closers, p.Close)
		logger.Info("rabbitmq publisher connected", "exchange", cfg.RabbitMQExchange)
		return p
	}
	return events.NewLogPublisher(logger)
}

// buildLocker uses Redis when configured so several processes can share a
// database; otherwise locks are process-local.
func buildLocker(ctx context.Context, cfg config.Config, logger *slog.Logger, a *app) interfaces.Locker {
	if cfg.RedisURL == "" {
		return locks.NewLocal()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis url parse failed; using local locks", "err", err)
		return locks.NewLocal()
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; using local locks", "err", err)
		client.Close()
		return locks.NewLocal()
	}
	a.closers = append(a.closers, client.Close)
	logger.Info("redis locks enabled", "prefix", cfg.RedisLockPrefix)
	return locks.NewRedis(client, cfg.RedisLockPrefix, cfg.LockTTL())
}
