package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freight-platform/pricing-service/docs"
	"github.com/freight-platform/pricing-service/internal/api/handlers"
	"github.com/freight-platform/pricing-service/internal/application"
	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/internal/infrastructure/events"
	mongoRepo "github.com/freight-platform/pricing-service/internal/infrastructure/mongodb"
	"github.com/freight-platform/pricing-service/pkg/cloudevents"
	"github.com/freight-platform/pricing-service/pkg/kafka"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/metrics"
	"github.com/freight-platform/pricing-service/pkg/middleware"
	"github.com/freight-platform/pricing-service/pkg/mongodb"
	"github.com/freight-platform/pricing-service/pkg/tracing"
)

const serviceName = "pricing-service"

type mongoClient interface {
	mongodb.CollectionProvider
	Close(context.Context) error
	HealthCheck(context.Context) error
}

type kafkaProducer interface {
	kafka.EventPublisher
	Close() error
}

// stores groups the repositories a PricingService reads and writes
type stores struct {
	cases   domain.CaseRepository
	catalog domain.RuleCatalog
	tariffs domain.TariffRepository
	audit   domain.AuditRepository
}

var newMongoClient = func(ctx context.Context, cfg *mongodb.Config, m *metrics.Metrics, logger *logging.Logger) (mongoClient, error) {
	client, err := mongodb.NewProductionClient(ctx, cfg, m, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var newInstrumentedKafkaProducer = func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafkaProducer {
	return kafka.NewInstrumentedProducer(kafka.NewProducer(cfg), m, logger)
}

var ensureIndexes = func(ctx context.Context, db mongodb.CollectionProvider) error {
	return mongoRepo.EnsureIndexes(ctx, db)
}

var newStores = func(db mongodb.CollectionProvider, cacheTTL time.Duration, m *metrics.Metrics) stores {
	return stores{
		cases:   mongoRepo.NewCaseRepository(db),
		catalog: mongoRepo.NewCachedCatalog(mongoRepo.NewCatalogRepository(db), cacheTTL, m),
		tariffs: mongoRepo.NewTariffRepository(db),
		audit:   mongoRepo.NewAuditRepository(db),
	}
}

var newMetrics = metrics.New

var initTracing = tracing.Initialize

var startHTTPServer = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logConfig.Environment = getEnv("ENVIRONMENT", "development")
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pricing-service API")

	config := loadConfig()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = logConfig.Environment
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := initTracing(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint, "enabled", tracingConfig.Enabled)
	}

	m := newMetrics(metrics.DefaultConfig(serviceName))

	mongoDB, err := newMongoClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoDB.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	if err := ensureIndexes(ctx, mongoDB); err != nil {
		logger.WithError(err).Warn("Failed to ensure indexes")
	}

	var publisher application.DecisionPublisher
	if config.KafkaEnabled {
		producer := newInstrumentedKafkaProducer(config.Kafka, m, logger)
		defer producer.Close()
		publisher = events.NewDecisionPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourcePricing), kafka.Topics.PricingEvents)
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	} else {
		logger.Info("Kafka publishing disabled")
	}

	repos := newStores(mongoDB, config.CatalogCacheTTL, m)
	pricingService := application.NewPricingService(
		repos.cases,
		repos.catalog,
		repos.tariffs,
		repos.audit,
		application.NewTenantCaseAuthorizer(true),
		publisher,
		config.Pricing,
		logger,
		m,
	)
	pricingHandler := handlers.NewPricingHandler(pricingService, logger)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	rateLimit := middleware.DefaultRateLimitConfig(logger.Logger)
	rateLimit.Every = config.RateLimitEvery
	rateLimit.Burst = config.RateLimitBurst

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoDB.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))
	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", docs.OpenAPI)
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rateLimit))
	v1.Use(middleware.TenantAuth(middleware.DefaultTenantAuthConfig()))
	pricingHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := startHTTPServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
	KafkaEnabled    bool
	Pricing         application.PricingConfig
	CatalogCacheTTL time.Duration
	RateLimitEvery  time.Duration
	RateLimitBurst  int
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName

	pricing := application.DefaultPricingConfig()
	pricing.Matcher.MinScore = getEnvInt("PRICING_MIN_SCORE", pricing.Matcher.MinScore)
	pricing.Matcher.RequireDiscriminatorMatch = getEnv("PRICING_REQUIRE_DISCRIMINATOR", "false") == "true"
	pricing.MaxLines = getEnvInt("PRICING_MAX_LINES", pricing.MaxLines)

	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8030"),
		MongoDB:         mongoConfig,
		Kafka:           kafkaConfig,
		KafkaEnabled:    getEnv("KAFKA_ENABLED", "true") == "true",
		Pricing:         pricing,
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		RateLimitEvery:  getEnvDuration("RATE_LIMIT_EVERY", 100*time.Millisecond),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
