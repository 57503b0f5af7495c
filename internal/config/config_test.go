package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Network.RPCEndpoint)
	assert.Equal(t, 10000, cfg.Queue.EventRingCapacity)
	assert.Equal(t, 50, cfg.Window.MaxEvents)
	assert.Equal(t, "balanced", cfg.Strategy.Mode)
	assert.InDelta(t, 0.1, cfg.Filter.MinSOLAmount, 1e-9)
	assert.Len(t, cfg.Submission.Submitters, len(submitterNames))
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://custom.rpc.example.com")
	t.Setenv("EVENT_RING_CAPACITY", "500")
	t.Setenv("FILTER_MIN_SOL_AMOUNT", "0.2")
	t.Setenv("JITO_ENABLED", "true")
	t.Setenv("JITO_ENDPOINT", "https://jito.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://custom.rpc.example.com", cfg.Network.RPCEndpoint)
	assert.Equal(t, 500, cfg.Queue.EventRingCapacity)
	assert.InDelta(t, 0.2, cfg.Filter.MinSOLAmount, 1e-9)

	var jito SubmitterConfig
	for _, s := range cfg.Submission.Submitters {
		if s.Name == "jito" {
			jito = s
		}
	}
	assert.True(t, jito.Enabled)
	assert.Equal(t, "https://jito.example.com", jito.Endpoint)
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("WINDOW_DURATION", "not-a-duration")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Window.WindowDuration)
}

func TestValidate_RejectsInvertedAmountRange(t *testing.T) {
	t.Setenv("FILTER_MIN_SOL_AMOUNT", "5")
	t.Setenv("FILTER_MAX_SOL_AMOUNT", "1")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsZeroMaxSOLAmount(t *testing.T) {
	t.Setenv("FILTER_MAX_SOL_AMOUNT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsOutOfRangeFrequency(t *testing.T) {
	t.Setenv("FILTER_MAX_FREQUENCY_PER_SECOND", "-1")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsBadTimeWindowHours(t *testing.T) {
	t.Setenv("FILTER_TIME_WINDOW_ENABLED", "true")
	t.Setenv("FILTER_TIME_WINDOW_START_HOUR", "25")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownStrategyMode(t *testing.T) {
	t.Setenv("DYNAMIC_STRATEGY_MODE", "yolo")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_AcceptsCustomModeRegardlessOfModeString(t *testing.T) {
	t.Setenv("ENABLE_CUSTOM_MODE", "true")
	t.Setenv("DYNAMIC_STRATEGY_MODE", "yolo")
	_, err := Load()
	assert.NoError(t, err)
}

func TestValidate_RejectsInvertedHoldDuration(t *testing.T) {
	t.Setenv("BALANCED_HOLD_MIN_DURATION", "10m")
	t.Setenv("BALANCED_HOLD_MAX_DURATION", "1m")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsZeroMaxPositions(t *testing.T) {
	t.Setenv("MAX_POSITIONS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsInvertedThresholdBuyRange(t *testing.T) {
	t.Setenv("ENABLE_THRESHOLD_TRIGGER", "true")
	t.Setenv("THRESHOLD_MIN_BUY_SOL", "2")
	t.Setenv("THRESHOLD_MAX_BUY_SOL", "1")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsNonPositiveQueueCapacity(t *testing.T) {
	t.Setenv("SIGNAL_CHANNEL_CAPACITY", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetSliceEnv_ParsesAndTrimsCommaSeparatedValues(t *testing.T) {
	t.Setenv("FILTER_BLACKLIST", " abc , def ,,ghi")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def", "ghi"}, cfg.Filter.Blacklist)
}
