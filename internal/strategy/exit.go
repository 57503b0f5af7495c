package strategy

import (
	"context"
	"time"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// EvaluateExit runs the Position Manager's exit decision: hold-duration
// bounds, take-profit with slippage-gated deferral, stop-loss with a 2x
// slippage tolerance, then the momentum-decay fallback.
func (e *Engine) EvaluateExit(ctx context.Context, metrics *domain.WindowMetrics, entryPriceSOL float64, holdDuration time.Duration, snipeAmountLamports uint64) Decision {
	thresholds := e.activeThresholds()

	if holdDuration < thresholds.MinHoldDuration {
		return Decision{Signal: domain.SignalHold, Reason: "min-hold"}
	}
	if holdDuration >= thresholds.MaxHoldDuration {
		e.logDebug(ctx, "exit timeout", map[string]interface{}{"mint": metrics.Mint.String()})
		return Decision{Signal: domain.SignalSell, Reason: "timeout"}
	}

	if metrics.LatestVirtualSolReserves > 0 && metrics.LatestVirtualTokenReserves > 0 {
		currentPriceSOL := float64(metrics.LatestVirtualSolReserves) / float64(metrics.LatestVirtualTokenReserves)
		curve := domain.BondingCurveState{
			VirtualSolReserves:   metrics.LatestVirtualSolReserves,
			VirtualTokenReserves: metrics.LatestVirtualTokenReserves,
		}
		maxSlippage := e.maxSlippagePercent()

		if thresholds.TakeProfitMultiplier > 0 {
			takeProfitPrice := entryPriceSOL * thresholds.TakeProfitMultiplier
			if currentPriceSOL >= takeProfitPrice {
				slippage := curve.EstimateBuySlippagePercent(snipeAmountLamports)
				if slippage > maxSlippage {
					return Decision{Signal: domain.SignalHold, Reason: "take-profit-deferred-slippage"}
				}
				return Decision{Signal: domain.SignalSell, Reason: "take-profit"}
			}
		}

		if thresholds.StopLossMultiplier > 0 {
			stopLossPrice := entryPriceSOL * thresholds.StopLossMultiplier
			if currentPriceSOL <= stopLossPrice {
				slippage := curve.EstimateBuySlippagePercent(snipeAmountLamports)
				if slippage > maxSlippage*2.0 {
					return Decision{Signal: domain.SignalHold, Reason: "stop-loss-deferred-slippage"}
				}
				return Decision{Signal: domain.SignalSell, Reason: "stop-loss"}
			}
		}
	}

	if metrics.BuyRatio < e.exitCfg.BuyRatioThreshold {
		return Decision{Signal: domain.SignalSell, Reason: "momentum-decay"}
	}

	return Decision{Signal: domain.SignalHold, Reason: "hold"}
}
