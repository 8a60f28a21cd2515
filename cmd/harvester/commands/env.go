package commands

import (
	"context"
	"database/sql"

	"counter_harvester/internal/app"
	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/infra/cache"
	"counter_harvester/internal/infra/config"
	idb "counter_harvester/internal/infra/database"
	"counter_harvester/internal/infra/events"
	"counter_harvester/internal/infra/logger"
	"counter_harvester/internal/infra/pacer"
	"counter_harvester/internal/infra/storage"
	"counter_harvester/internal/infra/sushi"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// env holds the shared wiring of every command.
type env struct {
	cfg     *config.AppConfig
	db      *sql.DB
	closers []func()
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "could not load application configuration")
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"log_level":   cfg.LogLevel,
	}).Info("Configuration loaded")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to database")
	}
	e := &env{cfg: cfg, db: db}
	e.closers = append(e.closers, func() { db.Close() })
	return e, nil
}

// close releases resources in reverse order of acquisition.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// catalogRepo wraps the catalog table in the Redis read-through cache when
// REDIS_ADDR is set. An unreachable Redis only disables the cache.
func (e *env) catalogRepo(ctx context.Context) catalog.Repository {
	repo := idb.NewPostgresCatalogRepository(e.db)
	if e.cfg.RedisAddr == "" {
		return repo
	}
	log := logger.Component("catalog_cache")
	rdb, err := cache.NewRedisClient(ctx, e.cfg.RedisAddr, e.cfg.RedisPassword, e.cfg.RedisDB)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, catalog cache disabled")
		return repo
	}
	e.closers = append(e.closers, func() { rdb.Close() })
	return cache.NewCatalogCache(repo, rdb, e.cfg.CatalogCacheTTL, log)
}

func (e *env) publisher() app.ReadyPublisher {
	if len(e.cfg.KafkaBrokers) == 0 {
		return events.Discard{}
	}
	p := events.NewKafkaPublisher(e.cfg.KafkaBrokers, e.cfg.KafkaTopic, logger.Component("events"))
	e.closers = append(e.closers, func() {
		if err := p.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close kafka writer")
		}
	})
	return p
}

func (e *env) newLoader() *app.HarvestLoader {
	return app.NewHarvestLoader(
		idb.NewPostgresHarvestRepository(e.db),
		idb.NewPostgresQueueRepository(e.db),
		idb.NewPostgresCredentialRepository(e.db),
		e.cfg.Release51Cutover,
		e.cfg.HTTPTimeout,
		logger.Component("loader"),
	)
}

func (e *env) newWorker(ctx context.Context, alerts app.Alerter) (*app.HarvestWorker, error) {
	files, err := storage.NewStore(e.cfg.ReportsRoot, e.cfg.RawFileKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not open report storage")
	}
	e.closers = append(e.closers, files.Close)

	return app.NewHarvestWorker(app.WorkerDeps{
		Harvests:      idb.NewPostgresHarvestRepository(e.db),
		Queue:         idb.NewPostgresQueueRepository(e.db),
		Creds:         idb.NewPostgresCredentialRepository(e.db),
		Catalog:       e.catalogRepo(ctx),
		Client:        sushi.NewClient(e.cfg.HTTPTimeout, logger.Component("sushi")),
		Validator:     sushi.NewValidator(),
		Files:         files,
		Pacer:         pacer.New(e.cfg.MinRequestInterval),
		Events:        e.publisher(),
		Alerts:        alerts,
		MaxRetries:    e.cfg.MaxRetries,
		PendingRepoll: e.cfg.PendingRepoll,
		StrandedAfter: e.cfg.HTTPTimeout,
	}, logger.Component("worker")), nil
}
