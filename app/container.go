package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/domainsync/domainsync/client"
	"github.com/domainsync/domainsync/internal/db"
	"github.com/domainsync/domainsync/internal/jobs"
	"github.com/domainsync/domainsync/internal/lock"
	"github.com/domainsync/domainsync/internal/message_broaker"
	"github.com/domainsync/domainsync/internal/registrar/porkbun"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/internal/store/memory"
	"github.com/domainsync/domainsync/internal/store/postgres"
	"github.com/domainsync/domainsync/types/config"
	"github.com/domainsync/domainsync/web"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Container holds all application dependencies. Connections and services are created
// once and shared.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DB    *sql.DB
	Redis *redis.Client

	Jobs     store.JobStore
	CronRuns store.CronRunStore
	Domains  store.DomainStore

	LockManager   lock.DistributedLockManager
	MessageBroker message_broaker.MessageBroker

	Registry     *client.Registry[*jobs.State]
	JobManager   *client.JobManager
	Worker       *client.Worker
	CronRegistry *client.CronRegistry
	CronDriver   *client.CronDriver
	Web          *web.HttpRouteHandler

	// closers run in reverse order on Close
	closers []func() error
}

// NewContainer creates and wires all dependencies. For the postgres storage driver it
// also applies the migrations.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...ContainerOption) (c *Container, err error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	c = &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if err = c.initStorage(ctx, opt); err != nil {
		return nil, err
	}
	if err = c.initLockManager(opt); err != nil {
		return nil, err
	}
	if err = c.initBroker(opt); err != nil {
		return nil, err
	}

	registrar := opt.registrar
	if registrar == nil {
		registrar, err = porkbun.NewClient(porkbun.Config{
			BaseURL:      cfg.Registrar.BaseURL,
			APIKey:       cfg.Registrar.APIKey,
			SecretAPIKey: cfg.Registrar.SecretAPIKey,
			Timeout:      cfg.Registrar.Timeout,
		}, opt.httpClient)
		if err != nil {
			return nil, fmt.Errorf("init registrar: %w", err)
		}
	}

	c.JobManager = client.NewJobManager(c.Jobs, c.MessageBroker, cfg.RabbitMQ.Queue, logger)

	c.Registry = client.NewRegistry(&jobs.State{
		Domains:   c.Domains,
		Registrar: registrar,
		Jobs:      c.JobManager,
		Logger:    logger,
	})
	if err = jobs.Register(c.Registry); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	c.Worker = client.NewWorker(c.Jobs, c.Registry, client.WorkerConfig{
		Instance:     cfg.Instance,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		LockTimeout:  cfg.Worker.LockTimeout,
	}, logger.With(slog.String("component", "worker")))

	c.CronRegistry = client.NewCronRegistry()
	if err = jobs.Schedule(c.CronRegistry, cfg.Cron.RefreshDomainsInterval, cfg.Cron.RefreshNameserversInterval); err != nil {
		return nil, err
	}
	c.CronDriver = client.NewCronDriver(c.CronRegistry, c.CronRuns, c.JobManager, c.LockManager,
		cfg.Cron.Tick, logger)

	c.Web = web.NewRouteHandler(web.Dependencies{
		Jobs:       c.Jobs,
		Domains:    c.Domains,
		Enqueuer:   c.JobManager,
		Registered: c.Registry.Exists,
		Logger:     logger.With(slog.String("component", "http")),
	})

	return c, nil
}

func (c *Container) initStorage(ctx context.Context, opt *containerConfig) error {
	policy := store.RetryPolicy{
		MaxRetries: c.Config.Worker.MaxRetries,
		Backoff:    c.Config.Worker.RetryBackoff,
	}

	switch c.Config.StorageDriver {
	case config.Postgres:
		conn := opt.db
		if conn == nil {
			var err error
			dbc := c.Config.Database
			conn, err = db.Open(ctx, dbc.URL, dbc.MaxOpenConns, dbc.MaxIdleConns, dbc.ConnMaxLifetime)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			c.closers = append(c.closers, conn.Close)
		}
		c.DB = conn

		if err := db.Init(ctx, conn, lock.NewPostgresDistributedLockManager(conn), c.Logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		c.Jobs = postgres.NewPostgresJobStore(conn, policy)
		c.CronRuns = postgres.NewPostgresCronRunStore(conn)
		c.Domains = postgres.NewPostgresDomainStore(sqlx.NewDb(conn, "postgres"))
	case config.Memory:
		c.Jobs = memory.NewJobStore(policy)
		c.CronRuns = memory.NewCronRunStore()
		c.Domains = memory.NewDomainStore()
	default:
		return fmt.Errorf("unsupported storage driver: %v", c.Config.StorageDriver)
	}
	return nil
}

func (c *Container) initLockManager(opt *containerConfig) error {
	driver := c.Config.Cron.LockDriver
	if !c.Config.Cron.Enabled {
		driver = config.NoLock
	}

	switch driver {
	case config.PostgresLock:
		if c.DB == nil {
			return errors.New("postgres lock driver needs a database connection")
		}
		c.LockManager = lock.NewPostgresDistributedLockManager(c.DB)
	case config.RedisLock:
		rdb := opt.redis
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     c.Config.Redis.Address,
				Password: c.Config.Redis.Password,
				DB:       c.Config.Redis.DB,
			})
			c.closers = append(c.closers, rdb.Close)
		}
		c.Redis = rdb
		c.LockManager = lock.NewRedisDistributedLockManager(rdb, lock.DefaultRedisLockTTL)
	default:
		// Without a shared lock the tick is only serialized within this process.
		c.LockManager = lock.NewLocalLockManager()
	}
	return nil
}

func (c *Container) initBroker(opt *containerConfig) error {
	switch {
	case opt.broker != nil:
		c.MessageBroker = opt.broker
	case c.Config.RabbitMQ.Enabled:
		rmq, err := message_broaker.NewRabbitMQ(
			c.Config.RabbitMQ.URL,
			c.Config.RabbitMQ.Exchange,
			c.Config.RabbitMQ.Queue,
			c.Config.RabbitMQ.Queue,
		)
		if err != nil {
			return fmt.Errorf("init rabbitmq: %w", err)
		}
		c.MessageBroker = rmq
		c.closers = append(c.closers, rmq.Close)
	case c.Config.StorageDriver == config.Memory:
		// Everything lives in this process, so enqueue notices can too.
		mb := message_broaker.NewMemoryBroker()
		c.MessageBroker = mb
		c.closers = append(c.closers, mb.Close)
	}
	return nil
}

// Run starts the worker, the cron driver and the admin API, as configured, and blocks
// until ctx is done or one of them fails.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if c.MessageBroker != nil {
		notices, err := c.MessageBroker.Consume(ctx, c.Config.RabbitMQ.Queue)
		if err != nil {
			return fmt.Errorf("consume job notices: %w", err)
		}
		g.Go(func() error {
			c.Worker.WakeOn(ctx, notices)
			return nil
		})
	}

	g.Go(func() error {
		return c.Worker.Start(ctx)
	})

	if c.Config.Cron.Enabled {
		g.Go(func() error {
			return c.CronDriver.Start(ctx)
		})
	}

	if c.Config.HTTP.Enabled {
		g.Go(func() error {
			return c.Web.Serve(ctx, c.Config.HTTP.Port)
		})
	}

	c.Logger.Info("domainsync started",
		slog.String("instance", c.Config.Instance),
		slog.String("storage", c.Config.StorageDriver.String()),
		slog.String("lock", c.Config.Cron.LockDriver.String()),
		slog.Bool("cron", c.Config.Cron.Enabled),
		slog.Bool("http", c.Config.HTTP.Enabled))

	return g.Wait()
}

// Close releases every connection the container opened itself. Injected connections are
// left open.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
