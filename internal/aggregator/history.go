package aggregator

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// eventHistory is the per-token ring of recent AnalyticalEvents used for
// advanced-metric computation, capped at maxSize entries.
type eventHistory struct {
	mu      sync.RWMutex
	mint    solana.PublicKey
	events  []domain.AnalyticalEvent
	maxSize int
}

func newEventHistory(mint solana.PublicKey, maxSize int) *eventHistory {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &eventHistory{mint: mint, maxSize: maxSize}
}

func (h *eventHistory) append(ev domain.AnalyticalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	if len(h.events) > h.maxSize {
		h.events = h.events[len(h.events)-h.maxSize:]
	}
}

func (h *eventHistory) snapshot() []domain.AnalyticalEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.AnalyticalEvent, len(h.events))
	copy(out, h.events)
	return out
}

func (h *eventHistory) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// MetricsCalculator computes AdvancedMetrics from an event-history
// snapshot, grounded on the Rust original's AdvancedMetricsCalculator.
type MetricsCalculator struct {
	largeTradeThresholdSOL float64
	highFrequencyWindow    time.Duration
}

// NewMetricsCalculator builds a calculator with the given large-trade
// threshold (SOL) and high-frequency sub-window.
func NewMetricsCalculator(largeTradeThresholdSOL float64, highFrequencyWindow time.Duration) *MetricsCalculator {
	return &MetricsCalculator{
		largeTradeThresholdSOL: largeTradeThresholdSOL,
		highFrequencyWindow:    highFrequencyWindow,
	}
}

// Calculate derives the ten AdvancedMetrics fields from a snapshot. Callers
// must only invoke this once len(events) >= 5 (spec.md §4.2's "omit until
// the window has at least 5 entries" clause); it also accepts fewer events
// (an empty slice yields the zero value), but the aggregator never calls it
// that way.
func (c *MetricsCalculator) Calculate(events []domain.AnalyticalEvent, now time.Time) domain.AdvancedMetrics {
	if len(events) == 0 {
		return domain.AdvancedMetrics{}
	}

	prices := make([]float64, len(events))
	for i, e := range events {
		prices[i] = e.Price()
	}

	avgImpact, maxImpact := c.priceImpact(prices)

	return domain.AdvancedMetrics{
		CurveSlope:           c.curveSlope(prices),
		WeightedBuyPressure:  c.weightedBuyPressure(events, now),
		HighFrequencyTrades:  c.highFrequencyTrades(events),
		AvgPriceImpact:       avgImpact,
		MaxPriceImpact:       maxImpact,
		LiquidityDepth:       c.liquidityDepth(events),
		Volatility:           c.volatility(prices),
		WeightedBuySellRatio: c.weightedBuySellRatio(events),
		LargeTradeRatio:      c.largeTradeRatio(events),
		TradeIntervalStdDev:  c.tradeIntervalStdDev(events),
	}
}

// curveSlope runs ordinary-least-squares regression of price against event
// index (0..n-1), returning the slope.
func (c *MetricsCalculator) curveSlope(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0.0
	}
	nf := float64(n)
	xMean := (nf - 1.0) / 2.0
	var yMean float64
	for _, p := range prices {
		yMean += p
	}
	yMean /= nf

	var numerator, denominator float64
	for i, p := range prices {
		x := float64(i)
		numerator += (x - xMean) * (p - yMean)
		denominator += (x - xMean) * (x - xMean)
	}
	if denominator == 0 {
		return 0.0
	}
	return numerator / denominator
}

// weightedBuyPressure weights each event's SOL amount by 1/(1+age/60s) —
// a one-minute decay — then returns weighted-buy-volume / weighted-total-volume.
func (c *MetricsCalculator) weightedBuyPressure(events []domain.AnalyticalEvent, now time.Time) float64 {
	if len(events) == 0 {
		return 0.0
	}
	var weightedBuy, weightedTotal float64
	for _, e := range events {
		ageSecs := now.Sub(e.Timestamp).Seconds()
		weight := 1.0 / (1.0 + ageSecs/60.0)
		amount := float64(e.SolAmount)
		weightedTotal += amount * weight
		if e.IsBuy {
			weightedBuy += amount * weight
		}
	}
	if weightedTotal == 0 {
		return 0.0
	}
	return weightedBuy / weightedTotal
}

func (c *MetricsCalculator) highFrequencyTrades(events []domain.AnalyticalEvent) uint32 {
	if len(events) == 0 {
		return 0
	}
	latest := events[len(events)-1].Timestamp
	cutoff := latest.Add(-c.highFrequencyWindow)
	var count uint32
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

func (c *MetricsCalculator) priceImpact(prices []float64) (avg, max float64) {
	if len(prices) < 2 {
		return 0.0, 0.0
	}
	var impacts []float64
	for i := 1; i < len(prices); i++ {
		prev, curr := prices[i-1], prices[i]
		if prev > 0 {
			impact := absF((curr - prev) / prev)
			impacts = append(impacts, impact)
		}
	}
	if len(impacts) == 0 {
		return 0.0, 0.0
	}
	var sum float64
	for _, im := range impacts {
		sum += im
		if im > max {
			max = im
		}
	}
	return sum / float64(len(impacts)), max
}

// liquidityDepth normalizes sqrt(vSolReserves * vTokenReserves) of the most
// recent event against a 1e9 reference, clamped to [0, 1].
func (c *MetricsCalculator) liquidityDepth(events []domain.AnalyticalEvent) float64 {
	if len(events) == 0 {
		return 0.0
	}
	latest := events[len(events)-1]
	liquidity := sqrtF(float64(latest.VirtualSolReserves) * float64(latest.VirtualTokenReserves))
	const reference = 1_000_000_000.0
	depth := liquidity / reference
	if depth > 1.0 {
		depth = 1.0
	}
	return depth
}

func (c *MetricsCalculator) volatility(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0.0
	}
	var mean float64
	for _, p := range prices {
		mean += p
	}
	mean /= float64(n)

	var variance float64
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(n)

	denom := mean
	if denom < 0.0001 {
		denom = 0.0001
	}
	return sqrtF(variance) / denom
}

func (c *MetricsCalculator) weightedBuySellRatio(events []domain.AnalyticalEvent) float64 {
	var buyVolume, sellVolume float64
	for _, e := range events {
		amount := float64(e.SolAmount)
		if e.IsBuy {
			buyVolume += amount
		} else {
			sellVolume += amount
		}
	}
	if sellVolume == 0 {
		if buyVolume > 0 {
			return posInf
		}
		return 0.0
	}
	return buyVolume / sellVolume
}

func (c *MetricsCalculator) largeTradeRatio(events []domain.AnalyticalEvent) float64 {
	if len(events) == 0 {
		return 0.0
	}
	thresholdLamports := uint64(c.largeTradeThresholdSOL * 1_000_000_000.0)
	var large int
	for _, e := range events {
		if e.SolAmount >= thresholdLamports {
			large++
		}
	}
	return float64(large) / float64(len(events))
}

func (c *MetricsCalculator) tradeIntervalStdDev(events []domain.AnalyticalEvent) float64 {
	n := len(events)
	if n < 2 {
		return 0.0
	}
	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := events[i].Timestamp.Sub(events[i-1].Timestamp).Milliseconds()
		intervals = append(intervals, float64(interval))
	}
	var mean float64
	for _, iv := range intervals {
		mean += iv
	}
	mean /= float64(len(intervals))

	var variance float64
	for _, iv := range intervals {
		d := iv - mean
		variance += d * d
	}
	variance /= float64(len(intervals))
	return sqrtF(variance)
}

