package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/feeds"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/markets"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/mobility"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/newsapi"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/queue"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/repository/snapshot"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/rest/dashboard"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/timeseries"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/trends"
	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/services/alerts"
	"github.com/SuOnTheRun/intel-hub/internal/services/analysis"
	"github.com/SuOnTheRun/intel-hub/internal/services/entities"
	"github.com/SuOnTheRun/intel-hub/internal/services/export"
	"github.com/SuOnTheRun/intel-hub/internal/services/ingest"
	"github.com/SuOnTheRun/intel-hub/internal/services/narratives"
	"github.com/SuOnTheRun/intel-hub/internal/services/sentiment"
	"github.com/SuOnTheRun/intel-hub/pkg/diagnostics"
	"github.com/SuOnTheRun/intel-hub/pkg/logging"
	"github.com/SuOnTheRun/intel-hub/pkg/metrics"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}

	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithReconnectionPeriod(5*time.Second),
		otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		logger.Fatal("trace exporter init failed", zap.Error(err))
	}

	m := metrics.New()
	httpClient := &http.Client{Timeout: 15 * time.Second}

	feedClient := feeds.NewClient(&feeds.Config{
		Catalog:    catalog,
		HTTPClient: httpClient,
		Tracer:     tracing.NewTracer("feeds-client", exporter),
		Logger:     logger.Named("feeds"),
	})
	newsClient := newsapi.NewClient(&newsapi.Config{
		Address:    cfg.NewsAPIBaseURL,
		APIKey:     cfg.NewsAPIKey,
		HTTPClient: httpClient,
		Tracer:     tracing.NewTracer("newsapi-client", exporter),
	})
	trendsClient := trends.NewClient(&trends.Config{
		Address:    cfg.TrendsBaseURL,
		HTTPClient: httpClient,
		Tracer:     tracing.NewTracer("trends-client", exporter),
		Logger:     logger.Named("trends"),
	})
	marketsClient := markets.NewClient(&markets.Config{
		Address:    cfg.MarketsBaseURL,
		HTTPClient: httpClient,
		Tracer:     tracing.NewTracer("markets-client", exporter),
		Logger:     logger.Named("markets"),
	})
	mobilityClient := mobility.NewClient(&mobility.Config{
		Address:    cfg.MobilityURL,
		HTTPClient: httpClient,
		Tracer:     tracing.NewTracer("mobility-client", exporter),
	})

	var repo snapshot.Repository
	switch cfg.StoreBackend {
	case "sqlite":
		repo, err = snapshot.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("sqlite open failed", zap.Error(err))
		}
	default:
		repo = snapshot.NewRepository()
	}
	defer func() { _ = repo.Close() }()

	var queueClient queue.Queue
	switch cfg.QueueBackend {
	case "kafka":
		queueClient, err = queue.NewKafkaQueue(strings.Split(cfg.KafkaBrokers, ","), "intel-hub", logger.Named("kafka"))
		if err != nil {
			logger.Fatal("kafka connect failed", zap.Error(err))
		}
	default:
		queueClient = queue.NewInMemoryQueue(logger.Named("queue"))
	}
	defer func() { _ = queueClient.Close() }()

	var sink timeseries.Sink = (*timeseries.InfluxSink)(nil)
	if cfg.InfluxEnabled() {
		influx := timeseries.NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logger.Named("influx"))
		defer influx.Close()
		sink = influx
	}

	alertService := alerts.NewService(
		feedClient,
		queueClient,
		tracing.NewTracer("alerts-service", exporter),
		logger.Named("alerts"),
	)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	storeAlerts := alerts.NewStoreAlertsHandler(repo, m, tracing.NewTracer("store-alerts-handler", exporter), logger.Named("alerts-consumer"))
	go func() {
		if err := queueClient.Consume(consumerCtx, alerts.AlertsTopic, storeAlerts); err != nil {
			logger.Error("alerts consumer stopped", zap.Error(err))
		}
	}()

	ingestService := ingest.NewService(
		cfg,
		catalog,
		ingest.Collectors{
			Feeds:    feedClient,
			NewsAPI:  newsClient,
			Trends:   trendsClient,
			Markets:  marketsClient,
			Mobility: mobilityClient,
		},
		ingest.Analyzers{
			Sentiment:  sentiment.NewService(tracing.NewTracer("sentiment-service", exporter)),
			Entities:   entities.NewService(tracing.NewTracer("entities-service", exporter), logger.Named("entities")),
			Narratives: narratives.NewService(tracing.NewTracer("narratives-service", exporter), logger.Named("narratives")),
			Analysis:   analysis.NewService(tracing.NewTracer("analysis-service", exporter)),
			Alerts:     alertService,
		},
		repo,
		sink,
		m,
		tracing.NewTracer("ingest-service", exporter),
		logger.Named("ingest"),
	)
	ingestService.Start()
	defer ingestService.Stop()

	diagServer := diagnostics.NewServer(cfg.DiagnosticsPort, ingestService.Ready)
	go func() {
		if err := diagServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("diagnostics server stopped", zap.Error(err))
		}
	}()

	apiServer := dashboard.NewServer(
		ingestService,
		repo,
		export.NewService(tracing.NewTracer("export-service", exporter)),
		tracing.NewTracer("dashboard-api", exporter),
		cfg.AdminToken,
	)
	go func() {
		if err := apiServer.ListenAndServe(cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server stopped", zap.Error(err))
		}
	}()

	logger.Info("intel-hub up",
		zap.Int("port", cfg.HTTPPort),
		zap.Int("diagnosticsPort", cfg.DiagnosticsPort),
		zap.String("store", cfg.StoreBackend),
		zap.String("queue", cfg.QueueBackend),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	if err := diagServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("diagnostics shutdown failed", zap.Error(err))
	}
}
