package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics and Prometheus integration
// for the sniper pipeline: queue depth, filter rejections, race latency, and
// buy/sell outcomes.
type MetricsProvider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	registry      *prometheus.Registry

	eventQueueDepth    metric.Int64Gauge
	eventsDropped      metric.Int64Counter
	filterRejections   metric.Int64Counter
	tradesAccepted     metric.Int64Counter
	submissionRaces    metric.Int64Counter
	submissionLatency  metric.Float64Histogram
	buyExecutions      metric.Int64Counter
	sellExecutions     metric.Int64Counter
	openPositions      metric.Int64UpDownCounter
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Namespace      string
	Port           int
	Enabled        bool
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	if !cfg.Enabled {
		return &MetricsProvider{}, nil
	}

	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(cfg.ServiceName)

	mp := &MetricsProvider{
		meterProvider: meterProvider,
		meter:         meter,
		registry:      registry,
	}

	if err := mp.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return mp, nil
}

// initializeMetrics creates all pipeline metrics
func (mp *MetricsProvider) initializeMetrics() error {
	var err error

	mp.eventQueueDepth, err = mp.meter.Int64Gauge(
		"sniper_event_queue_depth",
		metric.WithDescription("Current occupancy of the event source ring queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_event_queue_depth gauge: %w", err)
	}

	mp.eventsDropped, err = mp.meter.Int64Counter(
		"sniper_events_dropped_total",
		metric.WithDescription("Total events dropped for ring queue backpressure"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_events_dropped_total counter: %w", err)
	}

	mp.filterRejections, err = mp.meter.Int64Counter(
		"sniper_filter_rejections_total",
		metric.WithDescription("Total trades rejected by the aggregator filter chain, by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_filter_rejections_total counter: %w", err)
	}

	mp.tradesAccepted, err = mp.meter.Int64Counter(
		"sniper_trades_accepted_total",
		metric.WithDescription("Total trades accepted by the aggregator filter chain"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_trades_accepted_total counter: %w", err)
	}

	mp.submissionRaces, err = mp.meter.Int64Counter(
		"sniper_submission_races_total",
		metric.WithDescription("Total submission races dispatched, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_submission_races_total counter: %w", err)
	}

	mp.submissionLatency, err = mp.meter.Float64Histogram(
		"sniper_submission_latency_seconds",
		metric.WithDescription("Winning submitter latency for a submission race"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_submission_latency_seconds histogram: %w", err)
	}

	mp.buyExecutions, err = mp.meter.Int64Counter(
		"sniper_buy_executions_total",
		metric.WithDescription("Total buy executions, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_buy_executions_total counter: %w", err)
	}

	mp.sellExecutions, err = mp.meter.Int64Counter(
		"sniper_sell_executions_total",
		metric.WithDescription("Total sell executions, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_sell_executions_total counter: %w", err)
	}

	mp.openPositions, err = mp.meter.Int64UpDownCounter(
		"sniper_open_positions",
		metric.WithDescription("Number of currently open positions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sniper_open_positions gauge: %w", err)
	}

	return nil
}

// RecordQueueDepth records the event source ring queue's current occupancy.
func (mp *MetricsProvider) RecordQueueDepth(ctx context.Context, depth int) {
	if mp.eventQueueDepth == nil {
		return
	}
	mp.eventQueueDepth.Record(ctx, int64(depth))
}

// RecordEventsDropped adds to the cumulative dropped-event counter.
func (mp *MetricsProvider) RecordEventsDropped(ctx context.Context, delta int64) {
	if mp.eventsDropped == nil || delta <= 0 {
		return
	}
	mp.eventsDropped.Add(ctx, delta)
}

// RecordFilterRejection records one filter-chain rejection by reason.
func (mp *MetricsProvider) RecordFilterRejection(ctx context.Context, reason string) {
	if mp.filterRejections == nil {
		return
	}
	mp.filterRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordTradeAccepted records one trade that passed the filter chain.
func (mp *MetricsProvider) RecordTradeAccepted(ctx context.Context) {
	if mp.tradesAccepted == nil {
		return
	}
	mp.tradesAccepted.Add(ctx, 1)
}

// RecordSubmissionRace records a submission race's outcome and, on success,
// the winning submitter's latency.
func (mp *MetricsProvider) RecordSubmissionRace(ctx context.Context, submitter string, success bool, latency time.Duration) {
	if mp.submissionRaces == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("submitter", submitter),
		attribute.String("status", status),
	}
	mp.submissionRaces.Add(ctx, 1, metric.WithAttributes(attrs...))
	if success {
		mp.submissionLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attribute.String("submitter", submitter)))
	}
}

// RecordBuyExecution records a buy execution outcome.
func (mp *MetricsProvider) RecordBuyExecution(ctx context.Context, success bool) {
	if mp.buyExecutions == nil {
		return
	}
	mp.buyExecutions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordSellExecution records a sell execution outcome.
func (mp *MetricsProvider) RecordSellExecution(ctx context.Context, success bool) {
	if mp.sellExecutions == nil {
		return
	}
	mp.sellExecutions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// IncrementOpenPositions increments the open-positions gauge.
func (mp *MetricsProvider) IncrementOpenPositions(ctx context.Context) {
	if mp.openPositions == nil {
		return
	}
	mp.openPositions.Add(ctx, 1)
}

// DecrementOpenPositions decrements the open-positions gauge.
func (mp *MetricsProvider) DecrementOpenPositions(ctx context.Context) {
	if mp.openPositions == nil {
		return
	}
	mp.openPositions.Add(ctx, -1)
}

// StartMetricsServer starts the Prometheus metrics HTTP server
func (mp *MetricsProvider) StartMetricsServer(port int) error {
	if mp.registry == nil {
		return fmt.Errorf("metrics not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.meterProvider == nil {
		return nil
	}
	return mp.meterProvider.Shutdown(ctx)
}
