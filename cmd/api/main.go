package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/fern/config"
	companyrepo "github.com/Ramsey-B/fern/internal/repositories/company"
	incentiverepo "github.com/Ramsey-B/fern/internal/repositories/incentive"
	matchrepo "github.com/Ramsey-B/fern/internal/repositories/match"
	"github.com/Ramsey-B/fern/pkg/ai"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/prefilter"
	companyroutes "github.com/Ramsey-B/fern/pkg/routes/company"
	embeddingroutes "github.com/Ramsey-B/fern/pkg/routes/embedding"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	incentiveroutes "github.com/Ramsey-B/fern/pkg/routes/incentive"
	matchingroutes "github.com/Ramsey-B/fern/pkg/routes/matching"
	searchroutes "github.com/Ramsey-B/fern/pkg/routes/search"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/vector"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, zapLogger, err := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("api exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx := context.Background()

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	tracing.SetTracer(tracerProvider.Tracer(cfg.AppName))
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()

	sqlxDB, err := connectDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlxDB.Close()

	if err := migrateDB(cfg, logger, sqlxDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)

	limiter := ai.NewLimiter(cfg.AIRequestDelay)
	completer, err := ai.NewOpenAIClient(ai.OpenAIOptions{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
	}, limiter, logger)
	if err != nil {
		return fmt.Errorf("failed to build completion client: %w", err)
	}

	embedder, err := ai.NewOpenAIEmbedder(ai.EmbedderOptions{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIEmbeddingModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}

	incentiveRepo := incentiverepo.NewRepository(db, logger)
	companyRepo := companyrepo.NewRepository(db, logger)
	matchRepo := matchrepo.NewRepository(db, logger)

	index := vector.NewIndex(db, embedder, logger)
	preFilter := prefilter.New(cfg.PreFilterTargetCount, logger)
	ranker := matching.NewRelevanceRanker(completer, cfg.MatchTopN, cfg.AITemperature, cfg.AIMaxTokens, logger)
	describer := ai.NewDescriptionGenerator(completer, cfg.AITemperature, cfg.AIMaxTokens, logger)

	var producer *kafka.Producer
	var emitter matching.EventEmitter
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		emitter = events.NewEmitter(producer, logger)
	}

	var graphClient *graph.Client
	var projector matching.GraphProjector
	if cfg.GraphEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to build graph client: %w", err)
		}
		projector = graph.NewProjector(graphClient, logger)
	}

	service := matching.NewService(incentiveRepo, index, ranker, matchRepo, emitter, projector, matching.Options{
		TopKCandidates:      cfg.MatchTopKCandidates,
		TopN:                cfg.MatchTopN,
		MaxCostPerIncentive: cfg.MaxCostPerIncentive,
	}, logger)
	service.UseHeuristicFallback(preFilter, companyRepo)

	if err := registerDependencies(cfg, logger, db, incentiveRepo, companyRepo, matchRepo, index, describer, service); err != nil {
		return fmt.Errorf("failed to register dependencies: %w", err)
	}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&dependency{
		name:  "database",
		start: func(ctx context.Context) error { return sqlxDB.PingContext(ctx) },
		stop:  func(context.Context) error { return nil },
	})
	if graphClient != nil {
		boot.AddDependency(&dependency{
			name:      "graph",
			dependsOn: []string{"database"},
			start:     graphClient.VerifyConnectivity,
			stop:      graphClient.Close,
		})
	}
	if producer != nil {
		boot.AddDependency(&dependency{
			name:  "kafka",
			start: func(context.Context) error { return nil },
			stop:  func(context.Context) error { return producer.Close() },
		})
	}
	if err := boot.Start(ctx); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	checker := health.NewChecker(sqlxDB, graphClient, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	incentiveroutes.Register(api.Group("/incentives"))
	companyroutes.Register(api.Group("/companies"))
	matchingroutes.Register(api.Group("/matching"))
	searchroutes.Register(api.Group("/search"))
	embeddingroutes.Register(api.Group("/embeddings"))

	go func() {
		logger.WithField("port", cfg.Port).Info("starting api server")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("api server stopped unexpectedly")
		}
	}()
	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down server cleanly")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to stop dependencies cleanly")
	}
	return nil
}

func connectDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func migrateDB(cfg *config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(
	cfg *config.Config,
	logger ectologger.Logger,
	db database.DB,
	incentiveRepo *incentiverepo.Repository,
	companyRepo *companyrepo.Repository,
	matchRepo *matchrepo.Repository,
	index *vector.Index,
	describer *ai.DescriptionGenerator,
	service *matching.Service,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[*config.Config](container, cfg); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*incentiverepo.Repository](container, incentiveRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*companyrepo.Repository](container, companyRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matchrepo.Repository](container, matchRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*vector.Index](container, index); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ai.DescriptionGenerator](container, describer); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*matching.Service](container, service)
}

// dependency adapts closures to the startup.StartupDependency interface.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error  { return d.stop(ctx) }
