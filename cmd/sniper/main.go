// Command sniper wires the full pump.fun sniping pipeline: an event source
// subscribes to program logs, an aggregator turns raw trades into per-mint
// window metrics, a strategy engine scores each window into a buy/sell/hold
// decision, and a position manager races the decision to the chain through
// the submitter registry. Long-running stages run under a supervisor that
// restarts a crashed stage after a fixed delay instead of taking the whole
// process down with it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/ai-agentic-browser/sniper/internal/aggregator"
	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/internal/eventsource"
	"github.com/ai-agentic-browser/sniper/internal/position"
	"github.com/ai-agentic-browser/sniper/internal/racer"
	"github.com/ai-agentic-browser/sniper/internal/strategy"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// restartDelay is how long the supervisor waits before relaunching a stage
// whose Run method returned (either from error or the context being canceled
// without the process itself shutting down).
const restartDelay = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability)

	obsProvider, err := observability.NewSimpleObservabilityProvider(&observability.SimpleObservabilityConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    getEnvOr("ENVIRONMENT", "production"),
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init observability provider: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := obsProvider.Start(ctx); err != nil {
		logger.Warn(ctx, "observability provider start reported an error", map[string]interface{}{"error": err.Error()})
	}

	perfMonitor := observability.NewPerformanceMonitor(logger)
	defer perfMonitor.Stop()

	var tracer *observability.TracingProvider
	if cfg.Observability.JaegerEndpoint != "" {
		tp, err := observability.NewTracingProvider(cfg.Observability)
		if err != nil {
			logger.Warn(ctx, "tracing disabled: failed to start Jaeger exporter", map[string]interface{}{"error": err.Error()})
		} else {
			tracer = tp
			defer tp.Shutdown(context.Background())
		}
	}

	metricsEnabled := getEnvOr("METRICS_ENABLED", "true") == "true"
	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: "1.0.0",
		Namespace:      "sniper",
		Port:           getIntEnvOr("METRICS_PORT", 9090),
		Enabled:        metricsEnabled,
	})
	if err != nil {
		logger.Warn(ctx, "metrics disabled: failed to initialize provider", map[string]interface{}{"error": err.Error()})
		metrics, metricsEnabled = &observability.MetricsProvider{}, false
	}
	defer metrics.Shutdown(context.Background())

	chain := rpc.New(cfg.Network.RPCEndpoint)

	queue := eventsource.NewRingQueue(cfg.Queue.EventRingCapacity, cfg.Queue.BackoffMin, cfg.Queue.BackoffMax)
	client := eventsource.NewClient(eventsource.Config{
		WSEndpoint:  cfg.Network.WSEndpoint,
		RPCEndpoint: cfg.Network.RPCEndpoint,
		Program:     domain.PumpFunProgramID,
		MinBackoff:  cfg.Queue.BackoffMin,
		MaxBackoff:  cfg.Queue.BackoffMax,
	}, logger, queue)

	metricsCh := make(chan *domain.WindowMetrics, cfg.Queue.MetricsChannelCapacity)
	agg := aggregator.New(cfg, logger, queue, metricsCh)
	agg.SetMetrics(metrics)

	payer, err := racer.LoadSigner(cfg.Wallet.KeypairPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load signer: %v\n", err)
		os.Exit(1)
	}

	submitters, err := racer.NewRegistry(cfg.Submission)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build submitter registry: %v\n", err)
		os.Exit(1)
	}

	executor := racer.NewExecutor(chain, cfg, submitters, payer, logger, tracer, metrics)
	strategyEngine := strategy.New(cfg, logger)
	manager := position.New(cfg, strategyEngine, chain, executor, executor, logger)
	manager.WireMetrics(metrics)

	agg.SetTradeRecorder(manager.Monitor())

	signalCh := make(chan *domain.MetricsSignal, cfg.Queue.SignalChannelCapacity)

	rpcHealth := &rpcHealthTracker{}
	go rpcHealth.poll(ctx, chain)

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterCheck("event_stream", observability.AgeHealthCheck("event_stream", 2*cfg.Queue.BackoffMax+30*time.Second, queue.LastPush))
	healthChecker.RegisterCheck("chain_rpc", observability.AgeHealthCheck("chain_rpc", 30*time.Second, rpcHealth.lastSuccess))
	healthChecker.RegisterCheck("queue_depth", func(ctx context.Context) observability.HealthCheckResult {
		depth := queue.Len()
		capacity := cfg.Queue.EventRingCapacity
		status := observability.HealthStatusHealthy
		msg := "queue depth nominal"
		if capacity > 0 && depth >= capacity*9/10 {
			status = observability.HealthStatusUnhealthy
			msg = "queue depth near capacity"
		}
		return observability.HealthCheckResult{
			Status:  status,
			Message: msg,
			Details: map[string]interface{}{"depth": depth, "capacity": capacity, "dropped": queue.Dropped()},
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := healthChecker.CheckHealth(r.Context())
		overall := healthChecker.GetOverallStatus(results)
		w.Header().Set("Content-Type", "application/json")
		if overall != observability.HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": overall,
			"checks": results,
		})
	})
	healthzServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", getIntEnvOr("HEALTHZ_PORT", 8081)),
		Handler: obsProvider.GetHTTPMiddleware()(mux),
	}
	go func() {
		if err := healthzServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "healthz server stopped", err)
		}
	}()

	if metricsEnabled {
		go func() {
			if err := metrics.StartMetricsServer(getIntEnvOr("METRICS_PORT", 9090)); err != nil {
				logger.Warn(ctx, "metrics server stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	supervise(ctx, logger, "event-source", func(ctx context.Context) error {
		return client.Run(ctx)
	})

	go agg.Run(ctx)
	go agg.RunSweeper(ctx, cfg.Sweeper.Interval, cfg.Sweeper.WindowTTL)

	supervise(ctx, logger, "strategy-consumer", func(ctx context.Context) error {
		runStrategyConsumer(ctx, strategyEngine, cfg, metricsCh, signalCh)
		return nil
	})

	supervise(ctx, logger, "position-manager", func(ctx context.Context) error {
		manager.Run(ctx, signalCh)
		return nil
	})

	go pollQueueDepth(ctx, queue, metrics)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info(ctx, "received shutdown signal", map[string]interface{}{"signal": sig.String()})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthzServer.Shutdown(shutdownCtx)
	obsProvider.Stop(shutdownCtx)
}

// rpcHealthTracker records the timestamp of the last successful chain RPC
// health probe, polled on a fixed interval and read by the /healthz
// "chain_rpc" check.
type rpcHealthTracker struct {
	mu   sync.Mutex
	last time.Time
}

func (t *rpcHealthTracker) poll(ctx context.Context, chain *rpc.Client) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		if _, err := chain.GetHealth(ctx); err == nil {
			t.mu.Lock()
			t.last = time.Now()
			t.mu.Unlock()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *rpcHealthTracker) lastSuccess() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// runStrategyConsumer drains metrics snapshots, scores each one through the
// strategy engine, and forwards a MetricsSignal to the position manager.
// EvaluateBuy only ever returns SignalBuy or SignalNone; SignalNone is
// translated to SignalHold here so the manager still runs its exit
// evaluation against any already-open position on every snapshot.
func runStrategyConsumer(ctx context.Context, engine *strategy.Engine, cfg *config.Config, in <-chan *domain.WindowMetrics, out chan<- *domain.MetricsSignal) {
	snipeAmountLamports := uint64(cfg.Strategy.SnipeAmountSOL * 1_000_000_000)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			decision := engine.EvaluateBuy(ctx, m, snipeAmountLamports, time.Now())
			signal := domain.SignalHold
			if decision.Signal == domain.SignalBuy {
				signal = domain.SignalBuy
			}
			select {
			case out <- &domain.MetricsSignal{Metrics: m, Signal: signal}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pollQueueDepth periodically samples the ring queue's occupancy and dropped
// count into the metrics provider; the queue itself has no natural "on
// change" hook to record from.
func pollQueueDepth(ctx context.Context, queue *eventsource.RingQueue, metrics *observability.MetricsProvider) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastDropped uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.RecordQueueDepth(ctx, queue.Len())
			dropped := queue.Dropped()
			if dropped > lastDropped {
				metrics.RecordEventsDropped(ctx, int64(dropped-lastDropped))
				lastDropped = dropped
			}
		}
	}
}

// supervise launches fn in its own goroutine and relaunches it after
// restartDelay whenever it returns, unless the context has been canceled.
func supervise(ctx context.Context, logger *observability.Logger, name string, fn func(context.Context) error) {
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx); err != nil {
				logger.Error(ctx, fmt.Sprintf("%s stopped with error", name), err)
			} else {
				logger.Warn(ctx, fmt.Sprintf("%s stopped", name), nil)
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(restartDelay):
			}
		}
	}()
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnvOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
