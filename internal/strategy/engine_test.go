package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveThresholds_BooleanFlagPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.EnableBalancedMode = true
	cfg.Strategy.EnableAggressiveMode = true
	cfg.Strategy.EnableConservativeMode = true
	cfg.Strategy.EnableCustomMode = true
	e := New(cfg, nil)

	got := e.activeThresholds()
	assert.Equal(t, e.customThresholds(), got, "custom must win over every other flag")
}

func TestActiveThresholds_ConservativeBeatsAggressiveAndBalanced(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.EnableCustomMode = false
	cfg.Strategy.EnableConservativeMode = true
	cfg.Strategy.EnableAggressiveMode = true
	cfg.Strategy.EnableBalancedMode = true
	e := New(cfg, nil)

	assert.Equal(t, cfg.Strategy.Conservative, e.activeThresholds())
}

func TestActiveThresholds_StringModeFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.EnableCustomMode = false
	cfg.Strategy.EnableConservativeMode = false
	cfg.Strategy.EnableAggressiveMode = false
	cfg.Strategy.EnableBalancedMode = false
	cfg.Strategy.Mode = "aggressive"
	e := New(cfg, nil)

	assert.Equal(t, cfg.Strategy.Aggressive, e.activeThresholds())
}

func TestActiveThresholds_StringModeDefaultsToBalanced(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.EnableCustomMode = false
	cfg.Strategy.EnableConservativeMode = false
	cfg.Strategy.EnableAggressiveMode = false
	cfg.Strategy.EnableBalancedMode = false
	cfg.Strategy.Mode = "nonsense"
	e := New(cfg, nil)

	assert.Equal(t, cfg.Strategy.Balanced, e.activeThresholds())
}
