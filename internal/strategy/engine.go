// Package strategy implements the pipeline's fourth stage: it turns a
// WindowMetrics snapshot into a buy/sell/hold decision using one of four
// threshold presets (conservative/balanced/aggressive/custom), a
// threshold-trigger and first-wave fast path, and a dynamic 8-predicate
// scorer once AdvancedMetrics are available.
package strategy

import (
	"context"
	"time"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// Decision is the Strategy Engine's output for a single WindowMetrics
// evaluation: the signal, a confidence in [0,1], and a short human-readable
// reason for logging.
type Decision struct {
	Signal     domain.StrategySignal
	Confidence float64
	Reason     string
}

// Engine holds the active mode's thresholds plus the cross-mode shortcut
// configs (threshold-trigger, first-wave) and the shared exit config.
type Engine struct {
	cfg          config.StrategyConfig
	exitCfg      config.ExitConfig
	thresholdCfg config.ThresholdTriggerConfig
	firstWaveCfg config.FirstWaveConfig
	logger       *observability.Logger
}

// New builds an Engine from the resolved Config.
func New(cfg *config.Config, logger *observability.Logger) *Engine {
	return &Engine{
		cfg:          cfg.Strategy,
		exitCfg:      cfg.Exit,
		thresholdCfg: cfg.ThresholdTrig,
		firstWaveCfg: cfg.FirstWave,
		logger:       logger,
	}
}

// activeThresholds resolves the mode precedence (custom > conservative >
// aggressive > balanced, else the string Mode field) exactly matching the
// original source's create_dynamic_config_from_env.
func (e *Engine) activeThresholds() config.ModeThresholds {
	switch {
	case e.cfg.EnableCustomMode:
		return e.customThresholds()
	case e.cfg.EnableConservativeMode:
		return e.cfg.Conservative
	case e.cfg.EnableAggressiveMode:
		return e.cfg.Aggressive
	case e.cfg.EnableBalancedMode:
		return e.cfg.Balanced
	}
	switch e.cfg.Mode {
	case "conservative":
		return e.cfg.Conservative
	case "aggressive":
		return e.cfg.Aggressive
	default:
		return e.cfg.Balanced
	}
}

// customThresholds builds a ModeThresholds from StrategyConfig's flat custom
// fields (net_inflow_threshold, buy_ratio_threshold, acceleration_multiplier,
// max_slippage_bps), falling back to the balanced preset for anything the
// flat custom fields don't cover.
func (e *Engine) customThresholds() config.ModeThresholds {
	t := e.cfg.Balanced
	t.MinBuyRatio = e.cfg.BuyRatioThreshold
	t.MinNetInflowSOL = e.cfg.NetInflowThresholdSOL
	t.MaxSlippage = float64(e.cfg.MaxSlippageBps) / 10_000.0
	if e.cfg.AccelerationRequired {
		t.MinAcceleration = e.cfg.AccelerationMultiplier
	} else {
		t.MinAcceleration = 0
	}
	return t
}

// adjustedThresholds applies the volatility-based and time-of-day
// adaptations on top of the mode's base thresholds. spec.md §4.4 step 4 is
// explicit that thresholds are multiplied before evaluation, so unlike the
// original source (which computes the factor but never applies it to a
// threshold), this port actually scales every BuyTriggers-equivalent field.
func (e *Engine) adjustedThresholds(volatility float64, now time.Time) config.ModeThresholds {
	t := e.activeThresholds()

	factor := 1.0
	if e.cfg.AdaptiveVolatility {
		switch {
		case volatility > 0.15:
			factor = 0.8
		case volatility < 0.05:
			factor = 1.2
		}
	}
	if e.cfg.AdaptiveTimeOfDay && !isActiveHour(now) {
		// Outside the 12-20 UTC active window, divide by 0.9: an extra
		// tightening on top of whatever the volatility factor produced.
		factor /= 0.9
	}
	if factor == 1.0 {
		return t
	}

	t.MinBuyRatio *= factor
	t.MinNetInflowSOL *= factor
	t.MinAcceleration *= factor
	t.MinLiquidityDepth *= factor
	t.MinCompositeScore *= factor
	t.MinHFTrades = int(float64(t.MinHFTrades) * factor)
	// Slippage and price-impact are upper bounds, so they are divided by
	// the factor: above 1 it tightens every threshold, below 1 it relaxes
	// every threshold.
	t.MaxSlippage /= factor
	t.MaxPriceImpact /= factor
	return t
}

func isActiveHour(now time.Time) bool {
	hour := now.UTC().Hour()
	return hour >= 12 && hour <= 20
}

func (e *Engine) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(ctx, msg, fields)
}
