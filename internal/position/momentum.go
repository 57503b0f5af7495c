package position

import (
	"fmt"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// DecayReason names which momentum-decay check fired.
type DecayReason struct {
	Kind      string
	Current   float64
	Threshold float64
}

// String renders a short log line, matching momentum_decay.rs's
// DecayReason::description formatting.
func (r DecayReason) String() string {
	switch r.Kind {
	case "buy-ratio-decline":
		return fmt.Sprintf("buy ratio decline: %.2f%% < %.2f%%", r.Current*100, r.Threshold*100)
	case "negative-inflow":
		return fmt.Sprintf("net inflow turned negative: %.4f SOL", r.Current)
	case "low-activity":
		return fmt.Sprintf("trade frequency dropped: %.0f < %.0f", r.Current, r.Threshold)
	case "acceleration-decay":
		return fmt.Sprintf("acceleration decay: %.2f < %.2f", r.Current, r.Threshold)
	case "low-composite-score":
		return fmt.Sprintf("composite score too low: %.2f < %.2f", r.Current, r.Threshold)
	default:
		return r.Kind
	}
}

// MomentumDecayDetector runs the five independent momentum checks from
// momentum_decay.rs's detect(): buy-ratio decline, negative inflow, low
// trade frequency, acceleration decay, and a composite score distinct from
// internal/strategy's compositeScore (see MomentumDecayDetector.checkCompositeScore).
type MomentumDecayDetector struct {
	cfg config.MomentumConfig
}

// NewMomentumDecayDetector builds a detector from the resolved Config.
func NewMomentumDecayDetector(cfg config.MomentumConfig) *MomentumDecayDetector {
	return &MomentumDecayDetector{cfg: cfg}
}

// Detect returns the first triggered decay reason in lenient mode (the
// default), or the first of at least three triggered reasons in strict
// mode, matching detect()'s exact semantics — strict mode still returns
// only the first reason found, it just requires more corroborating checks
// before reporting anything.
func (d *MomentumDecayDetector) Detect(metrics *domain.WindowMetrics) (DecayReason, bool) {
	var reasons []DecayReason

	if r, ok := d.checkBuyRatioDecline(metrics); ok {
		reasons = append(reasons, r)
	}
	if r, ok := d.checkNegativeInflow(metrics); ok {
		reasons = append(reasons, r)
	}
	if r, ok := d.checkLowActivity(metrics); ok {
		reasons = append(reasons, r)
	}
	if r, ok := d.checkAccelerationDecay(metrics); ok {
		reasons = append(reasons, r)
	}
	if r, ok := d.checkCompositeScore(metrics); ok {
		reasons = append(reasons, r)
	}

	if len(reasons) == 0 {
		return DecayReason{}, false
	}
	if d.cfg.StrictMode {
		if len(reasons) >= 3 {
			return reasons[0], true
		}
		return DecayReason{}, false
	}
	return reasons[0], true
}

func (d *MomentumDecayDetector) checkBuyRatioDecline(metrics *domain.WindowMetrics) (DecayReason, bool) {
	if metrics.BuyRatio < d.cfg.BuyRatioThreshold {
		return DecayReason{Kind: "buy-ratio-decline", Current: metrics.BuyRatio, Threshold: d.cfg.BuyRatioThreshold}, true
	}
	return DecayReason{}, false
}

func (d *MomentumDecayDetector) checkNegativeInflow(metrics *domain.WindowMetrics) (DecayReason, bool) {
	netInflowSOL := float64(metrics.NetInflowSOL) / lamportsPerSOL
	if netInflowSOL < d.cfg.NetInflowThreshold {
		return DecayReason{Kind: "negative-inflow", Current: netInflowSOL, Threshold: d.cfg.NetInflowThreshold}, true
	}
	return DecayReason{}, false
}

// checkLowActivity estimates high-frequency trade count as event_count/2 —
// a deliberately simplified stand-in for AdvancedMetrics.HighFrequencyTrades,
// carried over unchanged from the original's check_low_activity rather than
// "fixed" to read the real field, since the original applies this estimate
// regardless of whether AdvancedMetrics is actually present.
func (d *MomentumDecayDetector) checkLowActivity(metrics *domain.WindowMetrics) (DecayReason, bool) {
	estimatedHFTrades := metrics.EventCount / 2
	if estimatedHFTrades < d.cfg.ActivityThreshold {
		return DecayReason{Kind: "low-activity", Current: float64(estimatedHFTrades), Threshold: float64(d.cfg.ActivityThreshold)}, true
	}
	return DecayReason{}, false
}

func (d *MomentumDecayDetector) checkAccelerationDecay(metrics *domain.WindowMetrics) (DecayReason, bool) {
	const accelerationThreshold = 1.0 // momentum_decay.rs hardcodes this; no config field exists for it.
	if metrics.Acceleration < accelerationThreshold {
		return DecayReason{Kind: "acceleration-decay", Current: metrics.Acceleration, Threshold: accelerationThreshold}, true
	}
	return DecayReason{}, false
}

// checkCompositeScore is position's own composite-score formula, weighted
// 0.3/0.3/0.2/0.2 (buy ratio / net inflow / acceleration / activity) and
// kept textually distinct from internal/strategy's compositeScore, which
// uses different weights and a different activity proxy (hf_trades vs raw
// event_count here).
func (d *MomentumDecayDetector) checkCompositeScore(metrics *domain.WindowMetrics) (DecayReason, bool) {
	score := decayCompositeScore(metrics)
	if score < d.cfg.CompositeScoreThreshold {
		return DecayReason{Kind: "low-composite-score", Current: score, Threshold: d.cfg.CompositeScoreThreshold}, true
	}
	return DecayReason{}, false
}

func decayCompositeScore(metrics *domain.WindowMetrics) float64 {
	buyRatioScore := metrics.BuyRatio
	netInflowScore := clamp(float64(metrics.NetInflowSOL)/lamportsPerSOL, 0.0, 1.0)
	accelerationScore := clamp(metrics.Acceleration, 0.0, 2.0) / 2.0
	activityScore := minF(float64(metrics.EventCount)/10.0, 1.0)

	return buyRatioScore*0.3 + netInflowScore*0.3 + accelerationScore*0.2 + activityScore*0.2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
