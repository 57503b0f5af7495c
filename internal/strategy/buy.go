package strategy

import (
	"context"
	"time"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

const lamportsPerSOL = 1_000_000_000.0

// EvaluateBuy runs the full buy decision order against a WindowMetrics
// snapshot: threshold-trigger shortcut, first-wave sniper shortcut, the
// minimum-event-count gate, the dynamic 8-predicate scorer (when
// AdvancedMetrics is present), and the legacy fallback otherwise.
func (e *Engine) EvaluateBuy(ctx context.Context, metrics *domain.WindowMetrics, snipeAmountLamports uint64, now time.Time) Decision {
	if e.thresholdCfg.Enabled && metrics.ThresholdBuyAmount != nil {
		e.logDebug(ctx, "threshold trigger hit", map[string]interface{}{
			"mint":        metrics.Mint.String(),
			"buy_amount": *metrics.ThresholdBuyAmount,
		})
		return Decision{Signal: domain.SignalBuy, Confidence: 1.0, Reason: "threshold-trigger"}
	}

	if e.firstWaveCfg.Enabled && metrics.EventCount <= 5 {
		netInflowSOL := float64(metrics.NetInflowSOL) / lamportsPerSOL
		inflowThreshold := e.cfg.NetInflowThresholdSOL * e.firstWaveCfg.InflowMultiplier
		if netInflowSOL >= inflowThreshold && metrics.BuyRatio >= e.firstWaveCfg.BuyRatio {
			e.logDebug(ctx, "first-wave sniper triggered", map[string]interface{}{
				"mint":        metrics.Mint.String(),
				"event_count": metrics.EventCount,
			})
			return Decision{Signal: domain.SignalBuy, Confidence: 1.0, Reason: "first-wave"}
		}
	}

	if metrics.EventCount < 3 {
		return Decision{Signal: domain.SignalNone, Reason: "insufficient-events"}
	}

	if metrics.AdvancedMetrics != nil {
		thresholds := e.adjustedThresholds(metrics.AdvancedMetrics.Volatility, now)
		return e.evaluateDynamic(metrics, metrics.AdvancedMetrics, thresholds)
	}

	return e.evaluateLegacy(metrics, e.activeThresholds(), snipeAmountLamports)
}

// evaluateDynamic scores 8 weighted predicates against the (already
// volatility/time-adapted) thresholds; a buy requires at least 70% of the
// predicates to pass.
func (e *Engine) evaluateDynamic(metrics *domain.WindowMetrics, adv *domain.AdvancedMetrics, thresholds config.ModeThresholds) Decision {
	netInflowSOL := float64(metrics.NetInflowSOL) / lamportsPerSOL
	estimatedSlippage := adv.Volatility * 2.0
	composite := compositeScore(metrics, adv)

	type predicate struct {
		passed bool
		weight float64
	}
	predicates := [8]predicate{
		{metrics.BuyRatio >= thresholds.MinBuyRatio, 0.20},
		{netInflowSOL >= thresholds.MinNetInflowSOL, 0.20},
		{metrics.Acceleration >= thresholds.MinAcceleration, 0.15},
		{int(adv.HighFrequencyTrades) >= thresholds.MinHFTrades, 0.10},
		{adv.LiquidityDepth >= thresholds.MinLiquidityDepth, 0.10},
		{adv.AvgPriceImpact <= thresholds.MaxPriceImpact, 0.10},
		{estimatedSlippage <= thresholds.MaxSlippage, 0.10},
		{composite >= thresholds.MinCompositeScore, 0.05},
	}

	var passed int
	var confidence float64
	for _, p := range predicates {
		if p.passed {
			passed++
			confidence += p.weight
		}
	}

	passRate := float64(passed) / float64(len(predicates))
	if passRate >= 0.7 {
		return Decision{Signal: domain.SignalBuy, Confidence: confidence, Reason: "dynamic-scorer"}
	}
	return Decision{Signal: domain.SignalNone, Confidence: confidence, Reason: "dynamic-scorer-below-pass-rate"}
}

// compositeScore is the single composite-score formula used both as the
// dynamic scorer's 8th predicate and for its own min_composite_score gate.
// It is distinct from the momentum-decay detector's own composite formula
// in internal/position; the two are never unified.
func compositeScore(metrics *domain.WindowMetrics, adv *domain.AdvancedMetrics) float64 {
	netInflowSOL := float64(metrics.NetInflowSOL) / lamportsPerSOL
	buyRatioScore := metrics.BuyRatio
	netInflowScore := minF(netInflowSOL/2.0, 1.0)
	accelerationScore := minF(metrics.Acceleration/2.0, 1.0)
	liquidityScore := adv.LiquidityDepth
	frequencyScore := minF(float64(adv.HighFrequencyTrades)/10.0, 1.0)

	return buyRatioScore*0.25 +
		netInflowScore*0.25 +
		accelerationScore*0.20 +
		liquidityScore*0.15 +
		frequencyScore*0.15
}

// evaluateLegacy is the pre-AdvancedMetrics fallback: buy ratio, net
// inflow, an optional acceleration gate, then a constant-product slippage
// check against the configured snipe amount.
func (e *Engine) evaluateLegacy(metrics *domain.WindowMetrics, thresholds config.ModeThresholds, snipeAmountLamports uint64) Decision {
	if metrics.BuyRatio < thresholds.MinBuyRatio {
		return Decision{Signal: domain.SignalNone, Reason: "legacy-buy-ratio"}
	}

	netInflowSOL := float64(metrics.NetInflowSOL) / lamportsPerSOL
	if netInflowSOL < thresholds.MinNetInflowSOL {
		return Decision{Signal: domain.SignalNone, Reason: "legacy-net-inflow"}
	}

	if e.cfg.AccelerationRequired && metrics.Acceleration < e.cfg.AccelerationMultiplier {
		return Decision{Signal: domain.SignalNone, Reason: "legacy-acceleration"}
	}

	curve := domain.BondingCurveState{
		VirtualSolReserves:   metrics.LatestVirtualSolReserves,
		VirtualTokenReserves: metrics.LatestVirtualTokenReserves,
	}
	slippage := curve.EstimateBuySlippagePercent(snipeAmountLamports)
	if slippage > e.maxSlippagePercent() {
		return Decision{Signal: domain.SignalNone, Reason: "legacy-slippage"}
	}

	return Decision{Signal: domain.SignalBuy, Confidence: 1.0, Reason: "legacy-fallback"}
}

// maxSlippagePercent is the top-level slippage ceiling (as configured in
// basis points) used by the legacy fallback and the exit evaluator, distinct
// from each mode's own fractional max_slippage used inside the dynamic
// scorer's predicates.
func (e *Engine) maxSlippagePercent() float64 {
	return float64(e.cfg.MaxSlippageBps) / 100.0
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
