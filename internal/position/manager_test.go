package position

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/internal/strategy"
)

type fakeBuyExecutor struct {
	sig solana.Signature
	err error
}

func (f *fakeBuyExecutor) ExecuteBuy(ctx context.Context, mint, bondingCurve, associatedBondingCurve solana.PublicKey, solAmountLamports uint64) (solana.Signature, error) {
	return f.sig, f.err
}

type fakeSellExecutor struct {
	sig        solana.Signature
	sellErr    error
	balance    uint64
	balErr     error
	lastParams SellParams
}

func (f *fakeSellExecutor) ExecuteSell(ctx context.Context, params SellParams) (solana.Signature, error) {
	f.lastParams = params
	return f.sig, f.sellErr
}

func (f *fakeSellExecutor) GetTokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	return f.balance, f.balErr
}

type fakeConfirmer struct {
	err error
}

func (f *fakeConfirmer) PollConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	return f.err
}

type fakeResolver struct {
	abc     solana.PublicKey
	abcErr  error
	creator solana.PublicKey
	credErr error
}

func (f *fakeResolver) AssociatedBondingCurve(ctx context.Context, bondingCurve, mint solana.PublicKey) (solana.PublicKey, error) {
	return f.abc, f.abcErr
}

func (f *fakeResolver) Creator(ctx context.Context, bondingCurve solana.PublicKey) (solana.PublicKey, error) {
	return f.creator, f.credErr
}

func testPositionConfig() config.PositionConfig {
	return config.PositionConfig{
		MaxPositions:       3,
		BuyConfirmTimeout:  5 * time.Second,
		SellConfirmTimeout: 5 * time.Second,
	}
}

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		SnipeAmountSOL: 0.5,
		MaxSlippageBps: 500,
		Balanced: config.ModeThresholds{
			MinHoldDuration: 30 * time.Second,
			MaxHoldDuration: 600 * time.Second,
		},
	}
}

func newTestManager(buy BuyExecutor, sell SellExecutor, confirmer Confirmer, resolver PDAResolver) *Manager {
	return &Manager{
		cfg:         testPositionConfig(),
		strategyCfg: testStrategyConfig(),
		strategy:    strategy.New(&config.Config{Strategy: testStrategyConfig(), Exit: config.ExitConfig{BuyRatioThreshold: 0.1}}, nil),
		buyExec:     buy,
		sellExec:    sell,
		confirmer:   confirmer,
		resolver:    resolver,
		momentum:    NewMomentumDecayDetector(testMomentumConfig()),
		monitor:     NewRealTimeMonitor(testMonitorConfig(), nil, nil),
		positions:   make(map[solana.PublicKey]*domain.Position),
	}
}

func testSig() solana.Signature {
	var s solana.Signature
	s[0] = 1
	return s
}

func TestHandleBuySignal_ConfirmedBuyRecordsPosition(t *testing.T) {
	mint := testMomentumMint()
	m := newTestManager(
		&fakeBuyExecutor{sig: testSig()},
		&fakeSellExecutor{balance: 1_000_000},
		&fakeConfirmer{},
		&fakeResolver{creator: solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")},
	)

	metrics := &domain.WindowMetrics{Mint: mint, LatestVirtualSolReserves: 30_000_000_000, LatestVirtualTokenReserves: 1_000_000_000_000}
	err := m.handleBuySignal(context.Background(), metrics)
	require.NoError(t, err)

	m.mu.RLock()
	pos, held := m.positions[mint]
	m.mu.RUnlock()
	require.True(t, held)
	assert.Equal(t, uint64(1_000_000), pos.TokenAmount)
}

func TestHandleBuySignal_ConfirmationFailureRecordsNothing(t *testing.T) {
	mint := testMomentumMint()
	m := newTestManager(
		&fakeBuyExecutor{sig: testSig()},
		&fakeSellExecutor{balance: 1_000_000},
		&fakeConfirmer{err: assertError("confirmation timed out")},
		&fakeResolver{creator: solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")},
	)

	metrics := &domain.WindowMetrics{Mint: mint}
	err := m.handleBuySignal(context.Background(), metrics)
	require.Error(t, err)

	m.mu.RLock()
	_, held := m.positions[mint]
	m.mu.RUnlock()
	assert.False(t, held)
}

func TestHandleBuySignal_SkipsWhenAlreadyHeld(t *testing.T) {
	mint := testMomentumMint()
	buy := &fakeBuyExecutor{sig: testSig()}
	m := newTestManager(buy, &fakeSellExecutor{}, &fakeConfirmer{}, &fakeResolver{})
	m.positions[mint] = &domain.Position{Mint: mint}

	err := m.handleBuySignal(context.Background(), &domain.WindowMetrics{Mint: mint})
	require.NoError(t, err)
	assert.Len(t, m.positions, 1)
}

func TestHandleBuySignal_SkipsAtMaxPositions(t *testing.T) {
	buy := &fakeBuyExecutor{sig: testSig()}
	m := newTestManager(buy, &fakeSellExecutor{}, &fakeConfirmer{}, &fakeResolver{})
	m.cfg.MaxPositions = 1
	m.positions[solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")] = &domain.Position{}

	newMint := testMomentumMint()
	err := m.handleBuySignal(context.Background(), &domain.WindowMetrics{Mint: newMint})
	require.NoError(t, err)
	_, held := m.positions[newMint]
	assert.False(t, held)
}

func TestHandleSellSignal_RemovesPositionEvenOnConfirmationTimeout(t *testing.T) {
	mint := testMomentumMint()
	m := newTestManager(
		&fakeBuyExecutor{},
		&fakeSellExecutor{sig: testSig(), balance: 1_000_000},
		&fakeConfirmer{err: assertError("timed out")},
		&fakeResolver{},
	)
	m.positions[mint] = &domain.Position{Mint: mint, TokenAmount: 1_000_000, SolInvested: 500_000_000}

	err := m.handleSellSignal(context.Background(), &domain.WindowMetrics{Mint: mint, LatestVirtualSolReserves: 30_000_000_000, LatestVirtualTokenReserves: 1_000_000_000_000})
	require.NoError(t, err)

	_, held := m.positions[mint]
	assert.False(t, held)
}

func TestHandleSellSignal_KeepsPositionOnSendError(t *testing.T) {
	mint := testMomentumMint()
	m := newTestManager(
		&fakeBuyExecutor{},
		&fakeSellExecutor{sellErr: assertError("send failed"), balance: 1_000_000},
		&fakeConfirmer{},
		&fakeResolver{},
	)
	m.positions[mint] = &domain.Position{Mint: mint, TokenAmount: 1_000_000, SolInvested: 500_000_000}

	err := m.handleSellSignal(context.Background(), &domain.WindowMetrics{Mint: mint})
	require.Error(t, err)

	_, held := m.positions[mint]
	assert.True(t, held)
}

func TestHandleSellSignal_ClampsToActualBalanceOnShortfall(t *testing.T) {
	mint := testMomentumMint()
	sell := &fakeSellExecutor{sig: testSig(), balance: 100}
	m := newTestManager(&fakeBuyExecutor{}, sell, &fakeConfirmer{}, &fakeResolver{})
	m.positions[mint] = &domain.Position{Mint: mint, TokenAmount: 1_000_000, SolInvested: 500_000_000}

	err := m.handleSellSignal(context.Background(), &domain.WindowMetrics{Mint: mint, LatestVirtualSolReserves: 30_000_000_000, LatestVirtualTokenReserves: 1_000_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), sell.lastParams.TokenAmount)
	_, held := m.positions[mint]
	assert.False(t, held)
}

func TestHandleHoldSignal_NoExitWithinMinHold(t *testing.T) {
	mint := testMomentumMint()
	sell := &fakeSellExecutor{}
	m := newTestManager(&fakeBuyExecutor{}, sell, &fakeConfirmer{}, &fakeResolver{})
	m.strategy = strategy.New(&config.Config{
		Strategy: testStrategyConfig(),
		Exit:     config.ExitConfig{BuyRatioThreshold: 0.1},
	}, nil)
	m.positions[mint] = &domain.Position{Mint: mint, EntryTime: time.Now(), TokenAmount: 1_000_000, SolInvested: 500_000_000}

	m.handleHoldSignal(context.Background(), &domain.WindowMetrics{Mint: mint, BuyRatio: 0.9})
	_, held := m.positions[mint]
	assert.True(t, held)
}

func TestHandleHoldSignal_ForwardsToSellOnExitDecision(t *testing.T) {
	mint := testMomentumMint()
	sell := &fakeSellExecutor{sig: testSig(), balance: 1_000_000}
	m := newTestManager(&fakeBuyExecutor{}, sell, &fakeConfirmer{}, &fakeResolver{})
	m.positions[mint] = &domain.Position{
		Mint:        mint,
		EntryTime:   time.Now().Add(-2 * time.Hour), // well past any max-hold timeout
		TokenAmount: 1_000_000,
		SolInvested: 500_000_000,
	}

	m.handleHoldSignal(context.Background(), &domain.WindowMetrics{Mint: mint, BuyRatio: 0.9})
	_, held := m.positions[mint]
	assert.False(t, held)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
