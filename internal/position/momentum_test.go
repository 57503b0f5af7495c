package position

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func testMomentumConfig() config.MomentumConfig {
	return config.MomentumConfig{
		BuyRatioThreshold:       0.5,
		NetInflowThreshold:      0.0,
		ActivityThreshold:       2,
		CompositeScoreThreshold: 0.3,
		StrictMode:              false,
	}
}

func testMomentumMint() solana.PublicKey {
	return solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
}

func TestMomentumDecayDetector_HealthyMetricsNoDecay(t *testing.T) {
	d := NewMomentumDecayDetector(testMomentumConfig())
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.9,
		NetInflowSOL: 5 * 1_000_000_000,
		EventCount:   20,
		Acceleration: 2.0,
	}
	_, decayed := d.Detect(metrics)
	assert.False(t, decayed)
}

func TestMomentumDecayDetector_BuyRatioDeclineTriggersFirst(t *testing.T) {
	d := NewMomentumDecayDetector(testMomentumConfig())
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.3, // below 0.5 threshold
		NetInflowSOL: 5 * 1_000_000_000,
		EventCount:   20,
		Acceleration: 2.0,
	}
	reason, decayed := d.Detect(metrics)
	assert.True(t, decayed)
	assert.Equal(t, "buy-ratio-decline", reason.Kind)
}

func TestMomentumDecayDetector_NegativeInflowTriggers(t *testing.T) {
	d := NewMomentumDecayDetector(testMomentumConfig())
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.9,
		NetInflowSOL: -1 * 1_000_000_000,
		EventCount:   20,
		Acceleration: 2.0,
	}
	reason, decayed := d.Detect(metrics)
	assert.True(t, decayed)
	assert.Equal(t, "negative-inflow", reason.Kind)
}

func TestMomentumDecayDetector_LowActivityUsesHalfEventCountEstimate(t *testing.T) {
	d := NewMomentumDecayDetector(testMomentumConfig())
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.9,
		NetInflowSOL: 5 * 1_000_000_000,
		EventCount:   2, // estimated HF trades = 1, below threshold 2
		Acceleration: 2.0,
	}
	reason, decayed := d.Detect(metrics)
	assert.True(t, decayed)
	assert.Equal(t, "low-activity", reason.Kind)
}

func TestMomentumDecayDetector_LenientModeReturnsFirstReasonOnly(t *testing.T) {
	d := NewMomentumDecayDetector(testMomentumConfig())
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.1,  // fails
		NetInflowSOL: -1 * 1_000_000_000, // fails
		EventCount:   1,    // fails
		Acceleration: 0.1,  // fails
	}
	reason, decayed := d.Detect(metrics)
	assert.True(t, decayed)
	assert.Equal(t, "buy-ratio-decline", reason.Kind)
}

func TestMomentumDecayDetector_StrictModeRequiresThreeReasons(t *testing.T) {
	cfg := testMomentumConfig()
	cfg.StrictMode = true
	d := NewMomentumDecayDetector(cfg)

	// Only one check fails (buy ratio); strict mode should not trigger.
	metrics := &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.1,
		NetInflowSOL: 5 * 1_000_000_000,
		EventCount:   20,
		Acceleration: 2.0,
	}
	_, decayed := d.Detect(metrics)
	assert.False(t, decayed)

	// Four checks fail (buy ratio, inflow, activity, composite score 0.25) ->
	// strict mode triggers, still reporting only the first.
	metrics = &domain.WindowMetrics{
		Mint:         testMomentumMint(),
		BuyRatio:     0.1,
		NetInflowSOL: -1 * 1_000_000_000,
		EventCount:   1,
		Acceleration: 2.0,
	}
	reason, decayed := d.Detect(metrics)
	assert.True(t, decayed)
	assert.Equal(t, "buy-ratio-decline", reason.Kind)
}

func TestDecayCompositeScore_ClampsAndWeights(t *testing.T) {
	metrics := &domain.WindowMetrics{
		BuyRatio:     1.0,
		NetInflowSOL: 100 * 1_000_000_000, // clamps to 1.0
		Acceleration: 100.0,               // clamps to 2.0 -> 1.0 after /2
		EventCount:   100,                 // clamps to 1.0
	}
	score := decayCompositeScore(metrics)
	assert.InDelta(t, 1.0, score, 1e-9)
}
