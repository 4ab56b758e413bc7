// Package app assembles the Clover service from configuration: backing stores, optional
// integrations, the import pipeline and the HTTP router.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/baseproduct"
	"github.com/Ramsey-B/clover/internal/repositories/importrun"
	"github.com/Ramsey-B/clover/internal/repositories/manufacturer"
	"github.com/Ramsey-B/clover/internal/repositories/product"
	"github.com/Ramsey-B/clover/internal/repositories/productvendor"
	"github.com/Ramsey-B/clover/internal/repositories/stagingproduct"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/feed"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/ingestion"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/routes/products"
	"github.com/Ramsey-B/clover/pkg/routes/runs"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const (
	DependencyTracing  = "tracing"
	DependencyPostgres = "postgres"
	DependencyRedis    = "redis"
	DependencyGraph    = "graph"
	DependencyKafka    = "kafka"
)

type Options struct {
	// Memory keeps every store in process and disables all external integrations.
	Memory bool
	// Version is reported by the health endpoints.
	Version string
}

// App owns the service dependencies. Pipeline, Runs and Catalog are set once Start succeeds.
type App struct {
	config  *config.Config
	options Options
	logger  ectologger.Logger
	startup *startup.Startup
	health  *health.Checker

	db              database.DB
	redis           *redis.Client
	graph           *graph.Client
	producer        *kafka.Producer
	shutdownTracing func(context.Context) error

	Memory   *memstore.Store
	Pipeline *pipeline.Pipeline
	Runs     runs.Store
	Catalog  products.Catalog
}

func New(cfg *config.Config, logger ectologger.Logger, options Options) *App {
	a := &App{
		config:  cfg,
		options: options,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:  health.NewChecker(options.Version),
	}
	a.registerDependencies()
	return a
}

func (a *App) Health() *health.Checker {
	return a.health
}

// Start brings up every enabled dependency, then assembles the pipeline on top of them.
func (a *App) Start(ctx context.Context) error {
	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	if err := a.build(); err != nil {
		return err
	}
	a.health.SetReady(true)
	return nil
}

// Stop waits for a background import to finish, then releases dependencies in reverse start order.
func (a *App) Stop(ctx context.Context) error {
	a.health.SetReady(false)
	if a.Pipeline != nil {
		if err := a.Pipeline.Wait(ctx); err != nil {
			a.logger.WithContext(ctx).WithError(err).Warn("Stopping before the background import run finished")
		}
	}
	return a.startup.Stop(ctx)
}

// Migrate connects to Postgres and applies the migrations without starting anything else.
func (a *App) Migrate(ctx context.Context) error {
	db, err := database.Connect(ctx, a.connectionConfig(), a.logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return a.migrate(db)
}

func (a *App) registerDependencies() {
	cfg := a.config

	if cfg.OTLPEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name:      DependencyTracing,
			StartFunc: a.startTracing,
			StopFunc: func(ctx context.Context) error {
				return a.shutdownTracing(ctx)
			},
		})
	}

	if a.options.Memory {
		a.logger.Info("Running with in-memory stores, external integrations are disabled")
		return
	}

	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyPostgres,
		StartFunc: a.startPostgres,
		StopFunc: func(context.Context) error {
			return a.db.Close()
		},
	})
	a.health.AddCheck("database", func(ctx context.Context) error {
		if a.db == nil {
			return fmt.Errorf("database not connected")
		}
		return a.db.PingContext(ctx)
	}, true)

	if cfg.RedisEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name:      DependencyRedis,
			StartFunc: a.startRedis,
			StopFunc: func(context.Context) error {
				return a.redis.Close()
			},
		})
		a.health.AddCheck("redis", func(ctx context.Context) error {
			if a.redis == nil {
				return fmt.Errorf("redis not connected")
			}
			return a.redis.Ping(ctx)
		}, false)
	}

	if cfg.GraphEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name:      DependencyGraph,
			StartFunc: a.startGraph,
			StopFunc: func(ctx context.Context) error {
				return a.graph.Close(ctx)
			},
		})
		a.health.AddCheck("graph", func(ctx context.Context) error {
			if a.graph == nil {
				return fmt.Errorf("graph not connected")
			}
			return a.graph.VerifyConnectivity(ctx)
		}, false)
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name:      DependencyKafka,
			StartFunc: a.startKafka,
			StopFunc: func(context.Context) error {
				return a.producer.Close()
			},
		})
	}
}

func (a *App) startTracing(ctx context.Context) error {
	shutdown, err := tracing.Init(ctx, a.config.AppName, exporters.OTLPConfig{
		Endpoint: a.config.OTLPEndpoint,
		Protocol: a.config.OTLPProtocol,
		Insecure: a.config.OTLPInsecure,
		Timeout:  a.config.OTLPTimeout,
	})
	if err != nil {
		return err
	}
	a.shutdownTracing = shutdown
	return nil
}

func (a *App) connectionConfig() database.ConnectionConfig {
	cfg := a.config
	return database.ConnectionConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}

func (a *App) startPostgres(ctx context.Context) error {
	db, err := database.Connect(ctx, a.connectionConfig(), a.logger)
	if err != nil {
		return err
	}
	if err := a.migrate(db); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	return nil
}

func (a *App) migrate(db database.DB) error {
	cfg := a.config
	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(max(cfg.DatabaseMigrationVersion, 0)),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.MigratePostgres(db, cfg.DatabaseName)
}

func (a *App) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     a.config.RedisHost,
		Port:     a.config.RedisPort,
		Password: a.config.RedisPassword,
		DB:       a.config.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	return nil
}

func (a *App) startGraph(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     a.config.GraphHost,
		Port:     a.config.GraphPort,
		Username: a.config.GraphUsername,
		Password: a.config.GraphPassword,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("failed to reach graph database: %w", err)
	}
	a.graph = client
	return nil
}

func (a *App) startKafka(context.Context) error {
	producerConfig := kafka.DefaultProducerConfig()
	producerConfig.Brokers = a.config.KafkaBrokers
	producerConfig.CatalogTopic = a.config.KafkaOutputTopic
	producerConfig.RunTopic = a.config.KafkaRunTopic
	producerConfig.BatchSize = a.config.KafkaBatchSize
	producerConfig.BatchTimeout = time.Duration(a.config.KafkaBatchTimeout) * time.Millisecond
	producerConfig.RequiredAcks = a.config.KafkaRequiredAcks
	producerConfig.Compression = a.config.KafkaCompression

	producer, err := kafka.NewProducer(producerConfig, a.logger)
	if err != nil {
		return err
	}
	a.producer = producer
	return nil
}

type stagingStore interface {
	pipeline.StagingStore
	ingestion.StagingWriter
}

type catalogStore interface {
	merging.CatalogStore
	products.Catalog
}

type runStore interface {
	pipeline.RunStore
	runs.Store
}

// build wires the pipeline to whichever stores and integrations were started.
func (a *App) build() error {
	cfg := a.config

	var (
		staging       stagingStore
		manufacturers identity.ManufacturerStore
		vendors       identity.VendorStore
		baseProducts  identity.BaseProductStore
		catalog       catalogStore
		history       runStore
	)

	if a.options.Memory {
		a.Memory = memstore.New()
		staging = a.Memory.Staging
		manufacturers = a.Memory.Manufacturers
		vendors = a.Memory.Vendors
		baseProducts = a.Memory.BaseProducts
		catalog = a.Memory.Catalog
		history = a.Memory.Runs
	} else {
		staging = stagingproduct.NewRepository(a.db, a.logger)
		manufacturers = manufacturer.NewRepository(a.db, a.logger)
		vendors = productvendor.NewRepository(a.db, a.logger)
		baseProducts = baseproduct.NewRepository(a.db, a.logger)
		catalog = product.NewRepository(a.db, a.logger)
		history = importrun.NewRepository(a.db, a.logger)
	}

	resolver := identity.NewResolver(manufacturers, vendors, baseProducts, a.logger)
	if a.redis != nil {
		resolver = resolver.WithCache(a.redis, cfg.RedisIdentityTTL)
	}

	engine, err := merging.NewEngine(catalog, merging.Config{MarkupPercent: cfg.MarkupPercent}, a.logger)
	if err != nil {
		return err
	}

	ingester := ingestion.NewController(staging, feed.Config{
		ChunkSize: cfg.FeedChunkSize,
		Delimiter: cfg.FeedDelimiterRune(),
	}, a.logger)

	p := pipeline.NewPipeline(staging, ingester, resolver, engine, history, pipeline.Config{
		FeedPath:            cfg.FeedPath,
		RejectionTraceLimit: cfg.InvalidRowTraceLimit,
	}, a.logger).WithRecorder(metrics.NewRunRecorder())

	if a.graph != nil {
		p = p.WithProjector(graph.NewCatalogProjector(a.graph, a.logger))
	}
	if a.producer != nil {
		p = p.WithPublisher(a.producer)
	}

	a.Pipeline = p
	a.Runs = history
	a.Catalog = catalog
	return nil
}
