package aggregator

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func baseFilterConfig() config.FilterConfig {
	return config.FilterConfig{
		MinSOLAmount:          0.1,
		MaxSOLAmount:          10.0,
		RequireDevTrade:       false,
		EnableBlacklist:       false,
		EnableWhitelist:       false,
		TimeWindowEnabled:     false,
		MaxFrequencyPerSecond: 0,
		EnableDuplicateDetect: false,
		DuplicateWindow:       5 * time.Second,
	}
}

func tradeEvent(mint, user solana.PublicKey, solAmount uint64, isDevTrade bool) domain.AnalyticalEvent {
	return domain.AnalyticalEvent{
		Mint:        mint,
		User:        user,
		SolAmount:   solAmount,
		TokenAmount: 1,
		Timestamp:   time.Now(),
		IsBuy:       true,
		IsDevTrade:  isDevTrade,
	}
}

func TestFilter_AmountTooSmall(t *testing.T) {
	f := NewFilter(baseFilterConfig())
	ev := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 50_000_000, true) // 0.05 SOL
	accepted, reason := f.Evaluate(ev, time.Now())
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonAmountTooSmall, reason)

	stats := f.Stats()
	assert.Equal(t, uint64(1), stats.ReasonCounts[FilterReasonAmountTooSmall])
	assert.Equal(t, uint64(1), stats.FilteredEvents)
}

func TestFilter_AmountTooLarge(t *testing.T) {
	f := NewFilter(baseFilterConfig())
	ev := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 20_000_000_000, true) // 20 SOL
	accepted, reason := f.Evaluate(ev, time.Now())
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonAmountTooLarge, reason)
}

func TestFilter_MissingDevTrade_RejectsUntilDevTradeSeen(t *testing.T) {
	cfg := baseFilterConfig()
	cfg.RequireDevTrade = true
	f := NewFilter(cfg)
	mint := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	nonDev := tradeEvent(mint, other, 1_000_000_000, false)
	accepted, reason := f.Evaluate(nonDev, time.Now())
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonMissingDevTrade, reason)

	dev := tradeEvent(mint, other, 1_000_000_000, true)
	accepted, _ = f.Evaluate(dev, time.Now())
	assert.True(t, accepted)

	// Once a dev trade has been seen for this mint, later non-dev trades pass.
	nonDevAgain := tradeEvent(mint, other, 1_000_000_000, false)
	accepted, _ = f.Evaluate(nonDevAgain, time.Now())
	assert.True(t, accepted)
}

func TestFilter_Blacklist(t *testing.T) {
	blocked := solana.NewWallet().PublicKey()
	cfg := baseFilterConfig()
	cfg.EnableBlacklist = true
	cfg.Blacklist = []string{blocked.String()}
	f := NewFilter(cfg)

	ev := tradeEvent(solana.NewWallet().PublicKey(), blocked, 1_000_000_000, true)
	accepted, reason := f.Evaluate(ev, time.Now())
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonBlacklisted, reason)
}

func TestFilter_Whitelist(t *testing.T) {
	allowed := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	cfg := baseFilterConfig()
	cfg.EnableWhitelist = true
	cfg.Whitelist = []string{allowed.String()}
	f := NewFilter(cfg)

	rejected := tradeEvent(solana.NewWallet().PublicKey(), other, 1_000_000_000, true)
	accepted, reason := f.Evaluate(rejected, time.Now())
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonNotWhitelisted, reason)

	passed := tradeEvent(solana.NewWallet().PublicKey(), allowed, 1_000_000_000, true)
	accepted, _ = f.Evaluate(passed, time.Now())
	assert.True(t, accepted)
}

func TestFilter_TimeWindow_NonWrapping(t *testing.T) {
	cfg := baseFilterConfig()
	cfg.TimeWindowEnabled = true
	cfg.TimeWindowStartHour = 9
	cfg.TimeWindowEndHour = 17
	f := NewFilter(cfg)

	inside := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1_000_000_000, true)
	inside.Timestamp = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	accepted, _ := f.Evaluate(inside, inside.Timestamp)
	assert.True(t, accepted)

	outside := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1_000_000_000, true)
	outside.Timestamp = time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	accepted, reason := f.Evaluate(outside, outside.Timestamp)
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonOutsideTimeWindow, reason)
}

func TestFilter_TimeWindow_WrapsMidnight(t *testing.T) {
	cfg := baseFilterConfig()
	cfg.TimeWindowEnabled = true
	cfg.TimeWindowStartHour = 22
	cfg.TimeWindowEndHour = 2
	f := NewFilter(cfg)

	inside := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1_000_000_000, true)
	inside.Timestamp = time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	accepted, _ := f.Evaluate(inside, inside.Timestamp)
	assert.True(t, accepted)

	outside := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1_000_000_000, true)
	outside.Timestamp = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	accepted, reason := f.Evaluate(outside, outside.Timestamp)
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonOutsideTimeWindow, reason)
}

func TestFilter_AbnormalFrequency(t *testing.T) {
	cfg := baseFilterConfig()
	cfg.MaxFrequencyPerSecond = 2.0
	f := NewFilter(cfg)
	mint := solana.NewWallet().PublicKey()
	now := time.Now()

	var lastReason FilterReason
	var lastAccepted bool
	for i := 0; i < 5; i++ {
		ev := tradeEvent(mint, solana.NewWallet().PublicKey(), 1_000_000_000, true)
		lastAccepted, lastReason = f.Evaluate(ev, now)
	}
	assert.False(t, lastAccepted)
	assert.Equal(t, FilterReasonAbnormalFrequency, lastReason)
}

func TestFilter_DuplicateEvent(t *testing.T) {
	cfg := baseFilterConfig()
	cfg.EnableDuplicateDetect = true
	cfg.DuplicateWindow = 5 * time.Second
	f := NewFilter(cfg)

	mint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	now := time.Now()
	ev := domain.AnalyticalEvent{Mint: mint, User: user, SolAmount: 1_000_000_000, TokenAmount: 42, Timestamp: now, IsBuy: true}

	accepted, _ := f.Evaluate(ev, now)
	assert.True(t, accepted)

	accepted, reason := f.Evaluate(ev, now.Add(time.Second))
	assert.False(t, accepted)
	assert.Equal(t, FilterReasonDuplicateEvent, reason)

	// Past the duplicate window, the same event passes again.
	accepted, _ = f.Evaluate(ev, now.Add(10*time.Second))
	assert.True(t, accepted)
}

func TestFilter_AcceptedEventPassesAllStages(t *testing.T) {
	f := NewFilter(baseFilterConfig())
	ev := tradeEvent(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1_000_000_000, true)
	accepted, reason := f.Evaluate(ev, time.Now())
	assert.True(t, accepted)
	assert.Equal(t, FilterReasonNone, reason)

	stats := f.Stats()
	assert.Equal(t, uint64(1), stats.PassedEvents)
	assert.Equal(t, uint64(1), stats.TotalEvents)
}
