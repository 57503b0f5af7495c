package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/internal/eventsource"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// TradeRecorder receives every filter-accepted trade. internal/position's
// RealTimeMonitor implements it so large-sell and rug-pull detection has a
// real feed instead of the never-populated history the original source's
// own comments admit check_large_sells relies on.
type TradeRecorder interface {
	RecordTrade(mint solana.PublicKey, amountSOL float64, trader solana.PublicKey, isSell bool)
}

// Aggregator is the pipeline's second stage: it drains RawEvents from the
// Event Source's ring queue, maintains a per-token sliding window and
// advanced-metric event history, runs the filter chain, and emits a
// WindowMetrics snapshot on every accepted trade.
type Aggregator struct {
	cfg    config.WindowConfig
	filterCfg config.FilterConfig
	thresholdCfg config.ThresholdTriggerConfig
	logger *observability.Logger

	queue  *eventsource.RingQueue
	metricsOut chan<- *domain.WindowMetrics
	tradeRecorder TradeRecorder
	metrics       *observability.MetricsProvider

	filter     *Filter
	calculator *MetricsCalculator
	clock      *cachedClock

	mu       sync.RWMutex
	windows  map[solana.PublicKey]*mintWindow
	history  map[solana.PublicKey]*eventHistory
}

// New builds an Aggregator wired to the given config, ring queue, and
// outbound metrics channel (owned by the caller; Aggregator only sends).
func New(cfg *config.Config, logger *observability.Logger, queue *eventsource.RingQueue, metricsOut chan<- *domain.WindowMetrics) *Aggregator {
	return &Aggregator{
		cfg:          cfg.Window,
		filterCfg:    cfg.Filter,
		thresholdCfg: cfg.ThresholdTrig,
		logger:       logger,
		queue:        queue,
		metricsOut:   metricsOut,
		filter:       NewFilter(cfg.Filter),
		calculator:   NewMetricsCalculator(cfg.Window.LargeTradeThresholdSOL, cfg.Window.HighFrequencySubWindow),
		clock:        newCachedClock(),
		windows:      make(map[solana.PublicKey]*mintWindow),
		history:      make(map[solana.PublicKey]*eventHistory),
	}
}

// SetTradeRecorder wires a TradeRecorder after construction (cmd/sniper
// builds the Aggregator and position.Manager in the order the pipeline
// needs, then connects this edge once both exist). A nil recorder, the
// default, disables the forwarding call entirely.
func (a *Aggregator) SetTradeRecorder(r TradeRecorder) {
	a.tradeRecorder = r
}

// SetMetrics wires a metrics provider after construction. A nil provider,
// the default, disables recording entirely.
func (a *Aggregator) SetMetrics(m *observability.MetricsProvider) {
	a.metrics = m
}

// Run drives the clock-refresh goroutine and the drain loop until ctx is
// cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.clock.run(ctx, time.Millisecond)
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}
		raw, ok := a.queue.Pop(ctx)
		if !ok {
			wg.Wait()
			return
		}
		a.handle(ctx, raw)
	}
}

func (a *Aggregator) handle(ctx context.Context, raw domain.RawEvent) {
	switch raw.Kind {
	case domain.EventKindCreate:
		a.handleCreate(raw.Create)
	case domain.EventKindTrade:
		a.handleTrade(ctx, raw.Trade)
	case domain.EventKindMigrate:
		a.handleMigrate(raw.Migrate)
	}
}

func (a *Aggregator) handleCreate(ev *domain.CreateEvent) {
	if ev == nil {
		return
	}
	now := a.clock.now()

	a.mu.Lock()
	a.windows[ev.Mint] = newMintWindow(ev.Mint, now)
	hist := newEventHistory(ev.Mint, a.cfg.EventHistoryMaxSize)
	a.history[ev.Mint] = hist
	a.mu.Unlock()

	hist.append(domain.AnalyticalEvent{
		Mint:                 ev.Mint,
		User:                 ev.Creator,
		SolAmount:            0,
		TokenAmount:          ev.TotalSupply,
		VirtualSolReserves:   ev.VirtualSolReserves,
		VirtualTokenReserves: ev.VirtualTokenReserves,
		Timestamp:            ev.Timestamp,
		IsBuy:                false,
		IsDevTrade:           true,
		EventType:            domain.PumpFunEventCreate,
	})

	a.logger.Info(context.Background(), "token created", map[string]interface{}{
		"mint":    ev.Mint.String(),
		"creator": ev.Creator.String(),
		"name":    ev.Name,
		"symbol":  ev.Symbol,
	})
}

func (a *Aggregator) handleMigrate(ev *domain.MigrateEvent) {
	if ev == nil {
		return
	}
	a.mu.Lock()
	delete(a.windows, ev.Mint)
	delete(a.history, ev.Mint)
	a.mu.Unlock()

	a.logger.Info(context.Background(), "token migrated, window cleared", map[string]interface{}{
		"mint": ev.Mint.String(),
		"pool": ev.Pool.String(),
	})
}

func (a *Aggregator) handleTrade(ctx context.Context, ev *domain.TradeEvent) {
	if ev == nil {
		return
	}
	now := a.clock.now()

	analytical := domain.AnalyticalEvent{
		Mint:                 ev.Mint,
		User:                 ev.User,
		SolAmount:            ev.SolAmount,
		TokenAmount:          ev.TokenAmount,
		VirtualSolReserves:   ev.VirtualSolReserves,
		VirtualTokenReserves: ev.VirtualTokenReserves,
		Timestamp:            ev.Timestamp,
		IsBuy:                ev.IsBuy,
		IsDevTrade:           ev.User == ev.Creator,
	}
	if ev.IsBuy {
		analytical.EventType = domain.PumpFunEventBuy
	} else {
		analytical.EventType = domain.PumpFunEventSell
	}

	if accepted, reason := a.filter.Evaluate(analytical, now); !accepted {
		a.logger.Debug(ctx, "event rejected by filter chain", map[string]interface{}{
			"mint":   ev.Mint.String(),
			"reason": reason.String(),
		})
		if a.metrics != nil {
			a.metrics.RecordFilterRejection(ctx, reason.String())
		}
		return
	}

	if a.metrics != nil {
		a.metrics.RecordTradeAccepted(ctx)
	}

	if a.tradeRecorder != nil {
		a.tradeRecorder.RecordTrade(ev.Mint, float64(ev.SolAmount)/1_000_000_000.0, ev.User, !ev.IsBuy)
	}

	hist := a.historyFor(ev.Mint)
	hist.append(analytical)

	win := a.windowFor(ev.Mint, now)
	win.setReserves(ev.VirtualSolReserves, ev.VirtualTokenReserves)
	win.addEvent(windowEvent{isBuy: ev.IsBuy, solAmount: ev.SolAmount, timestamp: ev.Timestamp}, a.cfg.MaxEvents, a.cfg.WindowDuration, now)

	threshold := win.checkThresholdTrigger(
		a.thresholdCfg.Enabled,
		a.thresholdCfg.ObservationWindow,
		a.thresholdCfg.CumulativeBuySOL,
		a.thresholdCfg.BuyRatio,
		a.thresholdCfg.MinBuySOL,
		a.thresholdCfg.MaxBuySOL,
		now,
	)

	metrics := win.metrics()
	metrics.ThresholdBuyAmount = threshold

	if snap := hist.snapshot(); len(snap) >= 5 {
		advanced := a.calculator.Calculate(snap, now)
		metrics.AdvancedMetrics = &advanced
	}

	select {
	case a.metricsOut <- &metrics:
	case <-ctx.Done():
	}
}

func (a *Aggregator) windowFor(mint solana.PublicKey, now time.Time) *mintWindow {
	a.mu.RLock()
	w, ok := a.windows[mint]
	a.mu.RUnlock()
	if ok {
		return w
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.windows[mint]; ok {
		return w
	}
	w = newMintWindow(mint, now)
	a.windows[mint] = w
	return w
}

func (a *Aggregator) historyFor(mint solana.PublicKey) *eventHistory {
	a.mu.RLock()
	h, ok := a.history[mint]
	a.mu.RUnlock()
	if ok {
		return h
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.history[mint]; ok {
		return h
	}
	h = newEventHistory(mint, a.cfg.EventHistoryMaxSize)
	a.history[mint] = h
	return h
}

// Sweep evicts windows (and their paired event history) older than ttl,
// run periodically by the sweeper goroutine in cmd/sniper.
func (a *Aggregator) Sweep(ttl time.Duration) (removedWindows, removedHistories int) {
	now := a.clock.now()
	a.mu.Lock()
	defer a.mu.Unlock()

	for mint, w := range a.windows {
		if w.age(now) > ttl {
			delete(a.windows, mint)
			removedWindows++
		}
	}
	for mint := range a.history {
		if _, stillTracked := a.windows[mint]; !stillTracked {
			delete(a.history, mint)
			removedHistories++
		}
	}
	return removedWindows, removedHistories
}

// FilterStats exposes the filter chain's running counters for observability.
func (a *Aggregator) FilterStats() FilterStats {
	return a.filter.Stats()
}

// RunSweeper periodically evicts stale windows until ctx is cancelled.
func (a *Aggregator) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removedWindows, removedHistories := a.Sweep(ttl)
			if removedWindows > 0 || removedHistories > 0 {
				a.logger.Info(ctx, "swept stale windows", map[string]interface{}{
					"removed_windows":   removedWindows,
					"removed_histories": removedHistories,
				})
			}
		}
	}
}
