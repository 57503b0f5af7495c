package aggregator

import (
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

type windowEvent struct {
	isBuy     bool
	solAmount uint64
	timestamp time.Time
}

type reserveState struct {
	virtualSolReserves   uint64
	virtualTokenReserves uint64
}

// mintWindow is the per-token sliding window of recent trades, bounded by
// both an event-count cap and a wall-clock duration cap (spec.md §4.2).
type mintWindow struct {
	mu sync.RWMutex

	mint      solana.PublicKey
	events    []windowEvent
	reserves  *reserveState
	createdAt time.Time

	cumulativeBuysSOL  float64
	thresholdTriggered bool
}

func newMintWindow(mint solana.PublicKey, now time.Time) *mintWindow {
	return &mintWindow{
		mint:      mint,
		createdAt: now,
	}
}

// addEvent appends a trade and evicts events that fall outside the time
// window or exceed maxEvents, oldest first.
func (w *mintWindow) addEvent(ev windowEvent, maxEvents int, windowDuration time.Duration, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ev.isBuy {
		w.cumulativeBuysSOL += float64(ev.solAmount) / 1_000_000_000.0
	}

	w.events = append(w.events, ev)

	cutoff := now.Add(-windowDuration)
	start := 0
	for start < len(w.events) && w.events[start].timestamp.Before(cutoff) {
		start++
	}
	w.events = w.events[start:]

	if len(w.events) > maxEvents {
		w.events = w.events[len(w.events)-maxEvents:]
	}
}

func (w *mintWindow) setReserves(sol, token uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reserves = &reserveState{virtualSolReserves: sol, virtualTokenReserves: token}
}

// metrics computes the base WindowMetrics snapshot: buy ratio, signed net
// inflow, and acceleration (back-half inflow over front-half inflow).
func (w *mintWindow) metrics() domain.WindowMetrics {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var buyCount, sellCount int
	var totalBuySOL, totalSellSOL uint64
	for _, e := range w.events {
		if e.isBuy {
			buyCount++
			totalBuySOL += e.solAmount
		} else {
			sellCount++
			totalSellSOL += e.solAmount
		}
	}

	total := buyCount + sellCount
	buyRatio := 0.0
	if total > 0 {
		buyRatio = float64(buyCount) / float64(total)
	}

	netInflow := int64(totalBuySOL) - int64(totalSellSOL)
	acceleration := w.calculateAcceleration()

	var vSol, vTok uint64
	if w.reserves != nil {
		vSol, vTok = w.reserves.virtualSolReserves, w.reserves.virtualTokenReserves
	}

	return domain.WindowMetrics{
		Mint:                       w.mint,
		NetInflowSOL:               netInflow,
		BuyRatio:                   buyRatio,
		Acceleration:               acceleration,
		LatestVirtualSolReserves:   vSol,
		LatestVirtualTokenReserves: vTok,
		EventCount:                 len(w.events),
	}
}

// calculateAcceleration compares the back half of the window's signed SOL
// flow to the front half. Fewer than 4 events always yields 0. A
// non-positive front half yields +Inf if the back half turned positive, 0
// otherwise — spec.md §8's explicit edge cases.
func (w *mintWindow) calculateAcceleration() float64 {
	if len(w.events) < 4 {
		return 0.0
	}
	mid := len(w.events) / 2

	var firstHalf, secondHalf int64
	for i, e := range w.events {
		signed := int64(e.solAmount)
		if !e.isBuy {
			signed = -signed
		}
		if i < mid {
			firstHalf += signed
		} else {
			secondHalf += signed
		}
	}

	if firstHalf <= 0 {
		if secondHalf > 0 {
			return math.Inf(1)
		}
		return 0.0
	}
	return float64(secondHalf) / float64(firstHalf)
}

// checkThresholdTrigger implements the one-shot cumulative-buy bypass: once
// cumulative buys within the observation window cross the configured
// threshold, it fires exactly once and returns the clamped buy amount.
func (w *mintWindow) checkThresholdTrigger(enabled bool, observationWindow time.Duration, cumulativeBuySOL, buyRatio, minBuySOL, maxBuySOL float64, now time.Time) *float64 {
	if !enabled {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.thresholdTriggered {
		return nil
	}
	if now.Sub(w.createdAt) > observationWindow {
		return nil
	}
	if w.cumulativeBuysSOL < cumulativeBuySOL {
		return nil
	}

	amount := cumulativeBuySOL * buyRatio
	if amount < minBuySOL {
		amount = minBuySOL
	}
	if amount > maxBuySOL {
		amount = maxBuySOL
	}
	w.thresholdTriggered = true
	return &amount
}

func (w *mintWindow) age(now time.Time) time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return now.Sub(w.createdAt)
}
