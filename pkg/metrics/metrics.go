package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pricing-service collectors
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Pricing
	PricingRuns              *prometheus.CounterVec
	PricingRunDuration       prometheus.Histogram
	PricedLines              *prometheus.CounterVec
	MatchScore               prometheus.Histogram
	FallbackLookups          *prometheus.CounterVec
	AuditWriteFailures       prometheus.Counter
	CatalogCacheLookups      *prometheus.CounterVec

	// Circuit breaker
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "freight",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	serviceLabel := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: serviceLabel,
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.MongoDBOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "mongodb_operations_total",
		Help:      "Total number of MongoDB operations",
	}, []string{"service", "collection", "operation", "status"})

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "mongodb_operation_duration_seconds",
		Help:      "MongoDB operation duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "collection", "operation"})

	m.PricingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "pricing_runs_total",
		Help:      "Pricing runs by outcome",
	}, []string{"service", "outcome"})

	m.PricingRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "pricing_run_duration_seconds",
		Help:        "End-to-end duration of a pricing run",
		Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		ConstLabels: serviceLabel,
	})

	m.PricedLines = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "pricing_lines_total",
		Help:      "Service lines resolved, by service key and decision source",
	}, []string{"service", "service_key", "source"})

	m.MatchScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "pricing_match_score",
		Help:        "Score of accepted rate card matches",
		Buckets:     []float64{30, 40, 50, 60, 70, 80, 90},
		ConstLabels: serviceLabel,
	})

	m.FallbackLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "pricing_fallback_lookups_total",
		Help:      "Secondary tariff lookups by result",
	}, []string{"service", "result"})

	m.AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "pricing_audit_write_failures_total",
		Help:        "Pricing decision batches that could not be recorded",
		ConstLabels: serviceLabel,
	})

	m.CatalogCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "pricing_catalog_cache_lookups_total",
		Help:      "Rule catalog cache lookups by table and result",
	}, []string{"service", "table", "result"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	m.CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	}, []string{"service", "name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.PricingRuns,
		m.PricingRunDuration,
		m.PricedLines,
		m.MatchScore,
		m.FallbackLookups,
		m.AuditWriteFailures,
		m.CatalogCacheLookups,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordPricingRun records a completed or rejected pricing run
func (m *Metrics) RecordPricingRun(outcome string, duration time.Duration) {
	m.PricingRuns.WithLabelValues(m.serviceName, outcome).Inc()
	m.PricingRunDuration.Observe(duration.Seconds())
}

// RecordPricedLine records the decision source for one service line
func (m *Metrics) RecordPricedLine(serviceKey, source string) {
	m.PricedLines.WithLabelValues(m.serviceName, serviceKey, source).Inc()
}

// ObserveMatchScore records the score of an accepted match
func (m *Metrics) ObserveMatchScore(score int) {
	m.MatchScore.Observe(float64(score))
}

// RecordFallbackLookup records a tariff fallback attempt ("hit", "miss" or "error")
func (m *Metrics) RecordFallbackLookup(result string) {
	m.FallbackLookups.WithLabelValues(m.serviceName, result).Inc()
}

// RecordAuditWriteFailure counts a failed audit batch
func (m *Metrics) RecordAuditWriteFailure() {
	m.AuditWriteFailures.Inc()
}

// RecordCatalogCacheLookup records a rule catalog cache hit or miss
func (m *Metrics) RecordCatalogCacheLookup(table string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CatalogCacheLookups.WithLabelValues(m.serviceName, table, result).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
