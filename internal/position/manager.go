// Package position implements the pipeline's fifth stage: it owns the
// positions map (at most one open position per token, bounded by
// config.PositionConfig.MaxPositions), runs the momentum-decay detector and
// real-time risk monitor against every held position, and drives the
// buy/sell/hold orchestration a Strategy Engine decision requires.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/internal/strategy"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

const lamportsPerSOL = 1_000_000_000.0

// BuyExecutor sends a buy transaction for the given mint and returns its
// signature. internal/racer provides the production implementation; tests
// provide a stub.
type BuyExecutor interface {
	ExecuteBuy(ctx context.Context, mint, bondingCurve, associatedBondingCurve solana.PublicKey, solAmountLamports uint64) (solana.Signature, error)
}

// SellParams is the full account set a sell execution needs, mirroring
// position.rs's SellParams/PumpFunSellParams.
type SellParams struct {
	Mint                   solana.PublicKey
	TokenAmount            uint64
	SlippageBasisPoints    uint64
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	CreatorVault           solana.PublicKey
	CloseTokenAccount      bool
}

// SellExecutor sends a sell transaction and reports the trader's current
// on-chain token balance for a mint.
type SellExecutor interface {
	ExecuteSell(ctx context.Context, params SellParams) (solana.Signature, error)
	GetTokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error)
}

// Confirmer polls for transaction confirmation. RealTimeMonitor implements
// it against a live RPC client; tests supply a stub.
type Confirmer interface {
	PollConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error
}

// PDAResolver resolves the two PDAs a buy needs beyond the bonding curve
// itself (which is a pure function of the mint and needs no chain read):
// the bonding curve's own mint ATA, and the creator pubkey read fresh from
// the bonding curve account so derive_creator_vault can be computed.
// rpcPDAResolver is the production implementation; tests supply a stub.
type PDAResolver interface {
	AssociatedBondingCurve(ctx context.Context, bondingCurve, mint solana.PublicKey) (solana.PublicKey, error)
	Creator(ctx context.Context, bondingCurve solana.PublicKey) (solana.PublicKey, error)
}

type rpcPDAResolver struct {
	client *rpc.Client
}

func (r *rpcPDAResolver) AssociatedBondingCurve(ctx context.Context, bondingCurve, mint solana.PublicKey) (solana.PublicKey, error) {
	return domain.DeriveAssociatedBondingCurve(ctx, r.client, bondingCurve, mint)
}

func (r *rpcPDAResolver) Creator(ctx context.Context, bondingCurve solana.PublicKey) (solana.PublicKey, error) {
	info, err := r.client.GetAccountInfo(ctx, bondingCurve)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("read bonding curve account: %w", err)
	}
	if info == nil || info.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("bonding curve account %s not found", bondingCurve)
	}
	bc, err := domain.DecodeBondingCurveAccount(info.Value.Data.GetBinary())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("decode bonding curve account: %w", err)
	}
	return bc.Creator, nil
}

// Manager owns the positions map and orchestrates buy/sell/hold handling
// (position.rs's PositionManager, split from its Rust LightSpeed/SolTrade
// executor split into the narrower BuyExecutor/SellExecutor interfaces
// above so internal/racer can supply the wiring).
type Manager struct {
	cfg       config.PositionConfig
	strategyCfg config.StrategyConfig

	strategy *strategy.Engine
	buyExec  BuyExecutor
	sellExec SellExecutor
	confirmer Confirmer
	resolver  PDAResolver
	momentum *MomentumDecayDetector
	monitor  *RealTimeMonitor
	logger   *observability.Logger
	metrics  *observability.MetricsProvider

	mu        sync.RWMutex
	positions map[solana.PublicKey]*domain.Position
}

// New builds a Manager wired to the resolved Config, a Strategy Engine, an
// RPC client for PDA/account reads, and the buy/sell executors. metrics is
// optional: WireMetrics attaches it after construction since the provider is
// built in cmd/sniper alongside the executor that also needs it.
func New(cfg *config.Config, strategyEngine *strategy.Engine, client *rpc.Client, buyExec BuyExecutor, sellExec SellExecutor, logger *observability.Logger) *Manager {
	monitor := NewRealTimeMonitor(cfg.Monitor, client, logger)
	return &Manager{
		cfg:         cfg.Position,
		strategyCfg: cfg.Strategy,
		strategy:    strategyEngine,
		buyExec:     buyExec,
		sellExec:    sellExec,
		confirmer:   monitor,
		resolver:    &rpcPDAResolver{client: client},
		momentum:    NewMomentumDecayDetector(cfg.Momentum),
		monitor:     monitor,
		logger:      logger,
		positions:   make(map[solana.PublicKey]*domain.Position),
	}
}

// WireMetrics attaches a metrics provider for the open-positions gauge. Safe
// to call once before Run starts consuming signals.
func (m *Manager) WireMetrics(metrics *observability.MetricsProvider) {
	m.metrics = metrics
}

// Monitor exposes the real-time risk monitor so the event source /
// aggregator pipeline can feed it trades for large-sell detection.
func (m *Manager) Monitor() *RealTimeMonitor {
	return m.monitor
}

// Run drains signal until ctx is cancelled or the channel closes. For every
// signal it first checks the existing position (if any) for momentum decay,
// then runs the risk monitor over every held position, then dispatches the
// strategy signal itself.
func (m *Manager) Run(ctx context.Context, signals <-chan *domain.MetricsSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.handle(ctx, sig)
		}
	}
}

func (m *Manager) handle(ctx context.Context, sig *domain.MetricsSignal) {
	m.checkMomentumDecay(ctx, sig.Metrics)
	m.monitorPositions(ctx)

	switch sig.Signal {
	case domain.SignalBuy:
		if err := m.handleBuySignal(ctx, sig.Metrics); err != nil {
			m.logError(ctx, "handle buy signal", err)
		}
	case domain.SignalSell:
		if err := m.handleSellSignal(ctx, sig.Metrics); err != nil {
			m.logError(ctx, "handle sell signal", err)
		}
	case domain.SignalHold:
		m.handleHoldSignal(ctx, sig.Metrics)
	case domain.SignalNone:
		// No action; the monitor pass above already ran.
	}
}

// checkMomentumDecay runs the decay detector only for tokens with an open
// position (position.rs's early-return optimization) and triggers an
// emergency sell on the first detected reason.
func (m *Manager) checkMomentumDecay(ctx context.Context, metrics *domain.WindowMetrics) {
	m.mu.RLock()
	_, held := m.positions[metrics.Mint]
	m.mu.RUnlock()
	if !held {
		return
	}

	reason, decayed := m.momentum.Detect(metrics)
	if !decayed {
		return
	}
	m.logWarn(ctx, fmt.Sprintf("momentum decay detected for %s: %s", metrics.Mint, reason))
	if err := m.handleSellSignal(ctx, metrics); err != nil {
		m.logError(ctx, "emergency sell on momentum decay", err)
	}
}

// monitorPositions runs the real-time risk monitor over every held
// position, escalating Critical alerts to an emergency sell.
func (m *Manager) monitorPositions(ctx context.Context) {
	m.mu.RLock()
	held := make([]*domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		held = append(held, p)
	}
	m.mu.RUnlock()

	for _, pos := range held {
		alerts, err := m.monitor.MonitorPosition(ctx, pos)
		if err != nil {
			m.logError(ctx, "monitor position", err)
			continue
		}
		for _, alert := range alerts {
			if alert.Severity < SeverityHigh {
				continue
			}
			m.logWarn(ctx, fmt.Sprintf("risk alert for %s: %s", pos.Mint, alert.Description), nil)
			if alert.Severity != SeverityCritical {
				continue
			}
			syntheticMetrics := &domain.WindowMetrics{
				Mint:                       pos.Mint,
				LatestVirtualSolReserves:   pos.LatestVirtualSolReserves,
				LatestVirtualTokenReserves: pos.LatestVirtualTokenReserves,
			}
			if err := m.handleSellSignal(ctx, syntheticMetrics); err != nil {
				m.logError(ctx, "emergency sell on critical alert", err)
			}
		}
	}
}

// handleBuySignal skips if a position already exists for the mint or the
// max-positions invariant would be violated, then sends the buy, and only
// on confirmed success records the Position from the actual on-chain token
// balance (spec's confirm-then-record asymmetry; on failure nothing is
// recorded, preserving "positions map reflects on-chain reality").
func (m *Manager) handleBuySignal(ctx context.Context, metrics *domain.WindowMetrics) error {
	m.mu.RLock()
	_, exists := m.positions[metrics.Mint]
	count := len(m.positions)
	m.mu.RUnlock()
	if exists {
		m.logInfo(ctx, fmt.Sprintf("already holding %s, skipping buy", metrics.Mint))
		return nil
	}
	if count >= m.cfg.MaxPositions {
		m.logWarn(ctx, fmt.Sprintf("max positions reached (%d/%d), skipping buy", count, m.cfg.MaxPositions), nil)
		return nil
	}

	solAmountLamports := uint64(m.strategyCfg.SnipeAmountSOL * lamportsPerSOL)
	if metrics.ThresholdBuyAmount != nil {
		solAmountLamports = uint64(*metrics.ThresholdBuyAmount * lamportsPerSOL)
	}

	bondingCurve, err := domain.DeriveBondingCurve(metrics.Mint)
	if err != nil {
		return fmt.Errorf("derive bonding curve: %w", err)
	}
	associatedBondingCurve, err := m.resolver.AssociatedBondingCurve(ctx, bondingCurve, metrics.Mint)
	if err != nil {
		return fmt.Errorf("derive associated bonding curve: %w", err)
	}

	sig, err := m.buyExec.ExecuteBuy(ctx, metrics.Mint, bondingCurve, associatedBondingCurve, solAmountLamports)
	if err != nil {
		return fmt.Errorf("execute buy: %w", err)
	}

	if err := m.confirmer.PollConfirmation(ctx, sig, m.cfg.BuyConfirmTimeout); err != nil {
		return fmt.Errorf("buy confirmation failed, not recording position (sig %s): %w", sig, err)
	}

	actualTokenAmount, err := m.sellExec.GetTokenBalance(ctx, metrics.Mint)
	if err != nil {
		m.logWarn(ctx, fmt.Sprintf("read actual token balance failed for %s, falling back to estimate: %v", metrics.Mint, err), nil)
		actualTokenAmount = domain.EstimateBuyTokenAmount(metrics.LatestVirtualTokenReserves, metrics.LatestVirtualSolReserves, solAmountLamports)
	}

	entryPriceSOL := 0.0
	if actualTokenAmount > 0 {
		entryPriceSOL = float64(solAmountLamports) / float64(actualTokenAmount)
	}

	creator, err := m.resolver.Creator(ctx, bondingCurve)
	if err != nil {
		return fmt.Errorf("read creator from bonding curve: %w", err)
	}
	creatorVault, err := domain.DeriveCreatorVault(creator)
	if err != nil {
		return fmt.Errorf("derive creator vault: %w", err)
	}

	pos := &domain.Position{
		Mint:                       metrics.Mint,
		EntryTime:                  time.Now(),
		EntryPriceSOL:              entryPriceSOL,
		TokenAmount:                actualTokenAmount,
		SolInvested:                solAmountLamports,
		BondingCurve:               bondingCurve,
		AssociatedBondingCurve:     associatedBondingCurve,
		CreatorVault:               creatorVault,
		LatestVirtualSolReserves:   metrics.LatestVirtualSolReserves,
		LatestVirtualTokenReserves: metrics.LatestVirtualTokenReserves,
	}

	m.mu.Lock()
	m.positions[metrics.Mint] = pos
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.IncrementOpenPositions(ctx)
	}

	m.logInfo(ctx, fmt.Sprintf("opened position %s: %d tokens @ %.8f SOL/token (id %s)", metrics.Mint, actualTokenAmount, entryPriceSOL, uuid.NewString()))
	return nil
}

// handleSellSignal always removes the position on a successful send
// regardless of confirmation outcome (the buy/sell asymmetry spec.md §7
// calls out deliberately): a sell that lands on-chain but whose
// confirmation poll times out should not leave a stale position entry
// blocking a future re-buy of the same mint.
func (m *Manager) handleSellSignal(ctx context.Context, metrics *domain.WindowMetrics) error {
	m.mu.RLock()
	pos, held := m.positions[metrics.Mint]
	m.mu.RUnlock()
	if !held {
		m.logInfo(ctx, fmt.Sprintf("no position for %s, skipping sell", metrics.Mint))
		return nil
	}

	sellAmount := pos.TokenAmount
	actualBalance, err := m.sellExec.GetTokenBalance(ctx, metrics.Mint)
	if err != nil {
		m.logError(ctx, "read token balance before sell, using recorded amount", err)
	} else {
		if actualBalance < pos.TokenAmount {
			m.logWarn(ctx, fmt.Sprintf("balance shortfall for %s: expected %d, have %d, selling actual balance", metrics.Mint, pos.TokenAmount, actualBalance), nil)
		}
		sellAmount = minU64(actualBalance, pos.TokenAmount)
	}

	if sellAmount == 0 {
		m.logError(ctx, "zero balance, cannot sell", nil)
		m.removePosition(ctx, metrics.Mint)
		return nil
	}

	params := SellParams{
		Mint:                   metrics.Mint,
		TokenAmount:            sellAmount,
		SlippageBasisPoints:    uint64(m.strategyCfg.MaxSlippageBps),
		BondingCurve:           pos.BondingCurve,
		AssociatedBondingCurve: pos.AssociatedBondingCurve,
		CreatorVault:           pos.CreatorVault,
		CloseTokenAccount:      true,
	}

	sig, err := m.sellExec.ExecuteSell(ctx, params)
	if err != nil {
		return fmt.Errorf("execute sell: %w", err)
	}

	if err := m.confirmer.PollConfirmation(ctx, sig, m.cfg.SellConfirmTimeout); err != nil {
		m.logWarn(ctx, fmt.Sprintf("sell confirmation failed for %s, settling anyway: %v", metrics.Mint, err), nil)
	}

	solReceived := domain.EstimateSellSolAmount(metrics.LatestVirtualTokenReserves, metrics.LatestVirtualSolReserves, sellAmount)
	profitLossSOL := int64(solReceived) - int64(pos.SolInvested)
	profitLossPercent := 0.0
	if pos.SolInvested > 0 {
		profitLossPercent = float64(profitLossSOL) / float64(pos.SolInvested) * 100.0
	}
	m.logInfo(ctx, fmt.Sprintf("closed position %s: %.4f SOL (%+.2f%%)", metrics.Mint, float64(solReceived)/lamportsPerSOL, profitLossPercent))

	m.removePosition(ctx, metrics.Mint)
	return nil
}

// handleHoldSignal evaluates exit conditions for any existing position and
// forwards to a sell if the Strategy Engine's exit evaluator says so.
func (m *Manager) handleHoldSignal(ctx context.Context, metrics *domain.WindowMetrics) {
	m.mu.RLock()
	pos, held := m.positions[metrics.Mint]
	m.mu.RUnlock()
	if !held {
		return
	}

	holdDuration := time.Since(pos.EntryTime)
	decision := m.strategy.EvaluateExit(ctx, metrics, pos.EntryPriceSOL, holdDuration, pos.SolInvested)
	if decision.Signal != domain.SignalSell {
		return
	}
	m.logInfo(ctx, fmt.Sprintf("hold signal but exit condition met for %s (%s), selling", metrics.Mint, decision.Reason))
	if err := m.handleSellSignal(ctx, metrics); err != nil {
		m.logError(ctx, "exit sell", err)
	}
}

func (m *Manager) removePosition(ctx context.Context, mint solana.PublicKey) {
	m.mu.Lock()
	delete(m.positions, mint)
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.DecrementOpenPositions(ctx)
	}
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func (m *Manager) logInfo(ctx context.Context, msg string) {
	if m.logger == nil {
		return
	}
	m.logger.Info(ctx, msg)
}

func (m *Manager) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if m.logger == nil {
		return
	}
	m.logger.Warn(ctx, msg, fields)
}

func (m *Manager) logError(ctx context.Context, msg string, err error) {
	if m.logger == nil {
		return
	}
	m.logger.Error(ctx, msg, err)
}
