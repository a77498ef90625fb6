// Package bootstrap wires configuration into live connections, counter stores and the
// sequence registry.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/amirphl/demo-sequences/config"
	"github.com/amirphl/demo-sequences/dbsequence"
	"github.com/amirphl/demo-sequences/logging"
	"github.com/amirphl/demo-sequences/repository"
	"github.com/amirphl/demo-sequences/sequence"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrBackendUnsupported is returned when the configured counter store cannot run on
// the configured database driver
var ErrBackendUnsupported = errors.New("sequence backend not supported by database driver")

// Runtime holds everything a command needs to allocate values. Counters and Backend are
// nil when the counter store cannot be opened and database mode is off; use
// CounterBackend to reach them.
type Runtime struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	Counters repository.CounterRepository
	Backend  *dbsequence.Backend
	Registry *sequence.Registry

	logCloser   io.Closer
	countersErr error
}

// New opens the database, the cache when needed, and the configured counter store.
// The registry allocates through the store only when cfg.Sequence.UseDatabase is set.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	log, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: log, logCloser: logCloser}

	rt.DB, err = InitializeDatabase(cfg.Database, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.Cache.Enabled || cfg.Sequence.Backend == config.BackendRedis {
		rt.Redis, err = InitializeCache(ctx, cfg.Cache)
		if err != nil {
			rt.Close()
			return nil, err
		}
		log.WithField("redis_db", cfg.Cache.RedisDB).Info("Redis connection established")
	}

	rt.Counters, err = newCounterRepository(ctx, cfg, rt.DB, rt.Redis)
	switch {
	case err == nil:
		rt.Backend = dbsequence.NewBackend(rt.Counters,
			dbsequence.WithStrict(cfg.Sequence.EnforceExist),
			dbsequence.WithLazyCreate(cfg.Sequence.LazyCreate),
			dbsequence.WithLogger(log),
		)
	case errors.Is(err, ErrBackendUnsupported) && !cfg.Sequence.UseDatabase:
		// in-memory allocation never touches the counter store
		rt.countersErr = err
		log.WithError(err).Debug("counter store disabled")
	default:
		rt.Close()
		return nil, err
	}

	var opts []sequence.RegistryOption
	if cfg.Sequence.UseDatabase {
		opts = append(opts, sequence.WithAllocator(rt.Backend))
	}
	rt.Registry = sequence.NewRegistry(opts...)

	log.WithFields(logrus.Fields{
		"driver":        cfg.Database.Driver,
		"backend":       cfg.Sequence.Backend,
		"use_database":  cfg.Sequence.UseDatabase,
		"enforce_exist": cfg.Sequence.EnforceExist,
		"lazy_create":   cfg.Sequence.LazyCreate,
	}).Debug("runtime initialized")

	return rt, nil
}

// Entity describes a live table so sequences can probe it
func (rt *Runtime) Entity(ctx context.Context, table string) (sequence.Entity, error) {
	entity, err := repository.NewTableEntity(ctx, rt.DB, table)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// CounterBackend returns the backend managing counter objects, or the reason the
// counter store could not be opened
func (rt *Runtime) CounterBackend() (*dbsequence.Backend, error) {
	if rt.Backend == nil {
		return nil, rt.countersErr
	}
	return rt.Backend, nil
}

// Close releases connections in reverse order of acquisition
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if rt.logCloser != nil {
		errs = append(errs, rt.logCloser.Close())
	}
	return errors.Join(errs...)
}

// InitializeDatabase initializes the database connection with connection pooling
func InitializeDatabase(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: cfg.DSN()})
	}

	gormLogger := logger.Discard
	if cfg.SlowQueryLog {
		gormLogger = logger.New(log, logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == config.DriverSQLite {
		// sqlite allows one writer at a time
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(cfg.MaxIdleConns, maxOpen))
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"driver":         cfg.Driver,
		"max_open_conns": maxOpen,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Debug("Database connection established")

	return db, nil
}

// InitializeCache opens a redis client and verifies connectivity
func InitializeCache(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rc, nil
}

func newCounterRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, rc *redis.Client) (repository.CounterRepository, error) {
	switch cfg.Sequence.Backend {
	case config.BackendRedis:
		return repository.NewRedisCounterRepository(rc, cfg.Sequence.RedisPrefix), nil
	case config.BackendTable:
		counters := repository.NewSequenceCounterRepository(db)
		if err := counters.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate sequence counters: %w", err)
		}
		return counters, nil
	default:
		if cfg.Database.Driver != config.DriverPostgres {
			return nil, fmt.Errorf("%w: SEQUENCE_BACKEND=%s requires DB_DRIVER=postgres, got %s",
				ErrBackendUnsupported, cfg.Sequence.Backend, cfg.Database.Driver)
		}
		return repository.NewPgSequenceRepository(db), nil
	}
}

// StartCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func StartCacheHealthMonitor(parent context.Context, client redis.UniversalClient, interval time.Duration, log logrus.FieldLogger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}
