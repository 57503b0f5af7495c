package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// AlertSeverity orders risk alerts. Manager.monitorPositions logs alerts of
// High and above and forces an emergency sell only on Critical.
type AlertSeverity int

const (
	SeverityMedium AlertSeverity = iota
	SeverityHigh
	SeverityCritical
)

// RiskAlert is one risk signal raised by the real-time monitor for a held
// position (monitor.rs's RiskAlert enum, flattened to a struct since Go has
// no tagged-union sum type).
type RiskAlert struct {
	Kind        string
	Severity    AlertSeverity
	Description string
}

type priceRecord struct {
	at     time.Time
	price  float64
	volume float64
}

type largeTransaction struct {
	at       time.Time
	amountSOL float64
	trader   solana.PublicKey
	isSell   bool
}

// RealTimeMonitor polls the bonding-curve account for each held position and
// raises alerts on price volatility, liquidity drop, large sells, rug-pull
// indicators, and liquidity exhaustion (monitor.rs's RealTimeMonitor).
type RealTimeMonitor struct {
	cfg    config.MonitorConfig
	client *rpc.Client
	logger *observability.Logger

	mu                sync.Mutex
	priceHistory      map[solana.PublicKey][]priceRecord
	liquidityHistory  map[solana.PublicKey][]float64
	largeTransactions map[solana.PublicKey][]largeTransaction
}

// maxLargeTransactions bounds per-mint memory the same way recordPrice caps
// priceHistory at 1000 and checkLiquidityDrop caps liquidityHistory at 100.
const maxLargeTransactions = 200

// NewRealTimeMonitor builds a monitor against the given RPC client.
func NewRealTimeMonitor(cfg config.MonitorConfig, client *rpc.Client, logger *observability.Logger) *RealTimeMonitor {
	return &RealTimeMonitor{
		cfg:               cfg,
		client:            client,
		logger:            logger,
		priceHistory:      make(map[solana.PublicKey][]priceRecord),
		liquidityHistory:  make(map[solana.PublicKey][]float64),
		largeTransactions: make(map[solana.PublicKey][]largeTransaction),
	}
}

// RecordTrade feeds a just-seen trade into the large-transaction history
// used by checkLargeSells and detectRugPullSignals. The aggregator calls
// this for every filter-accepted trade, whether or not the mint is held.
func (m *RealTimeMonitor) RecordTrade(mint solana.PublicKey, amountSOL float64, trader solana.PublicKey, isSell bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := append(m.largeTransactions[mint], largeTransaction{
		at: time.Now(), amountSOL: amountSOL, trader: trader, isSell: isSell,
	})
	if len(txs) > maxLargeTransactions {
		txs = txs[len(txs)-maxLargeTransactions:]
	}
	m.largeTransactions[mint] = txs
}

// MonitorPosition runs all five checks for one held position and returns
// every alert that fired.
func (m *RealTimeMonitor) MonitorPosition(ctx context.Context, pos *domain.Position) ([]RiskAlert, error) {
	var alerts []RiskAlert

	volumeSOL := float64(pos.SolInvested) / lamportsPerSOL

	if a, ok, err := m.checkPriceVolatility(ctx, pos.Mint, volumeSOL); err != nil {
		return nil, err
	} else if ok {
		alerts = append(alerts, a)
	}
	if a, ok, err := m.checkLiquidityDrop(ctx, pos.Mint); err != nil {
		return nil, err
	} else if ok {
		alerts = append(alerts, a)
	}
	if a, ok := m.checkLargeSells(pos.Mint); ok {
		alerts = append(alerts, a)
	}
	if a, ok := m.detectRugPullSignals(pos.Mint); ok {
		alerts = append(alerts, a)
	}
	if a, ok, err := m.checkLiquidityExhaustion(ctx, pos.Mint); err != nil {
		return nil, err
	} else if ok {
		alerts = append(alerts, a)
	}

	if len(alerts) > 0 {
		m.logWarn(ctx, fmt.Sprintf("detected %d risk alert(s)", len(alerts)), nil)
	}
	return alerts, nil
}

func (m *RealTimeMonitor) checkPriceVolatility(ctx context.Context, mint solana.PublicKey, volumeSOL float64) (RiskAlert, bool, error) {
	price, err := m.currentPrice(ctx, mint)
	if err != nil {
		return RiskAlert{}, false, err
	}
	m.recordPrice(mint, price, volumeSOL)

	m.mu.Lock()
	history := append([]priceRecord(nil), m.priceHistory[mint]...)
	m.mu.Unlock()
	if len(history) < 2 {
		return RiskAlert{}, false, nil
	}

	cutoff := time.Now().Add(-m.cfg.PriceHistoryWindow)
	var oldest *priceRecord
	var totalVolume float64
	for i := range history {
		r := history[i]
		if r.at.Before(cutoff) && oldest == nil {
			oldest = &history[i]
		}
		if !r.at.Before(cutoff) {
			totalVolume += r.volume
		}
	}
	if oldest == nil {
		return RiskAlert{}, false, nil
	}

	changePercent := ((price - oldest.price) / oldest.price) * 100.0
	if absF(changePercent) <= m.cfg.PriceAlertThresholdPct {
		return RiskAlert{}, false, nil
	}

	severity := SeverityMedium
	if absF(changePercent) > 50.0 {
		severity = SeverityHigh
	}
	return RiskAlert{
		Kind:        "price-volatility",
		Severity:    severity,
		Description: fmt.Sprintf("price moved %.2f%% over %s (volume %.4f SOL)", changePercent, m.cfg.PriceHistoryWindow, totalVolume),
	}, true, nil
}

func (m *RealTimeMonitor) checkLiquidityDrop(ctx context.Context, mint solana.PublicKey) (RiskAlert, bool, error) {
	liquidity, err := m.currentLiquidity(ctx, mint)
	if err != nil {
		return RiskAlert{}, false, err
	}

	m.mu.Lock()
	history := append(m.liquidityHistory[mint], liquidity)
	if len(history) > 100 {
		history = history[len(history)-100:]
	}
	m.liquidityHistory[mint] = history
	history = append([]float64(nil), history...)
	m.mu.Unlock()

	if len(history) < 2 {
		return RiskAlert{}, false, nil
	}
	oldLiquidity := history[0]
	dropPercent := ((oldLiquidity - liquidity) / oldLiquidity) * 100.0
	if dropPercent <= m.cfg.LiquidityAlertThresholdPct {
		return RiskAlert{}, false, nil
	}

	severity := SeverityMedium
	if dropPercent > 50.0 {
		severity = SeverityHigh
	}
	return RiskAlert{
		Kind:        "liquidity-drop",
		Severity:    severity,
		Description: fmt.Sprintf("liquidity dropped %.2f%% (now %.4f SOL)", dropPercent, liquidity),
	}, true, nil
}

func (m *RealTimeMonitor) checkLargeSells(mint solana.PublicKey) (RiskAlert, bool) {
	m.mu.Lock()
	txs := append([]largeTransaction(nil), m.largeTransactions[mint]...)
	m.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Minute)
	for _, tx := range txs {
		if tx.at.After(cutoff) && tx.isSell && tx.amountSOL > m.cfg.LargeSellThresholdSOL {
			return RiskAlert{
				Kind:        "large-sell",
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("large sell detected: %.4f SOL by %s", tx.amountSOL, tx.trader),
			}, true
		}
	}
	return RiskAlert{}, false
}

// detectRugPullSignals sums three weighted indicators — liquidity crash
// (0.3), ≥3 large sells in 5 minutes (0.4), price crash (0.3) — into a
// confidence score, raising an alert once it clears the configured
// threshold (monitor.rs's detect_rug_pull_signals).
func (m *RealTimeMonitor) detectRugPullSignals(mint solana.PublicKey) (RiskAlert, bool) {
	var indicators []string
	var confidence float64

	m.mu.Lock()
	liquidityHistory := append([]float64(nil), m.liquidityHistory[mint]...)
	largeTxs := append([]largeTransaction(nil), m.largeTransactions[mint]...)
	priceHistory := append([]priceRecord(nil), m.priceHistory[mint]...)
	m.mu.Unlock()

	if len(liquidityHistory) >= 2 {
		old, recent := liquidityHistory[0], liquidityHistory[len(liquidityHistory)-1]
		if drop := ((old - recent) / old) * 100.0; drop > 50.0 {
			indicators = append(indicators, fmt.Sprintf("liquidity crashed %.0f%%", drop))
			confidence += 0.3
		}
	}

	cutoff := time.Now().Add(-5 * time.Minute)
	recentSells := 0
	for _, tx := range largeTxs {
		if tx.isSell && tx.amountSOL > m.cfg.LargeSellThresholdSOL && tx.at.After(cutoff) {
			recentSells++
		}
	}
	if recentSells >= 3 {
		indicators = append(indicators, fmt.Sprintf("%d large sells in 5m", recentSells))
		confidence += 0.4
	}

	if len(priceHistory) >= 2 {
		old, recent := priceHistory[0], priceHistory[len(priceHistory)-1]
		if drop := ((old.price - recent.price) / old.price) * 100.0; drop > 70.0 {
			indicators = append(indicators, fmt.Sprintf("price crashed %.0f%%", drop))
			confidence += 0.3
		}
	}

	if confidence < m.cfg.RugPullConfidenceThreshold {
		return RiskAlert{}, false
	}
	severity := SeverityHigh
	if confidence > 0.8 {
		severity = SeverityCritical
	}
	return RiskAlert{
		Kind:        "rug-pull-signal",
		Severity:    severity,
		Description: fmt.Sprintf("rug pull signal (confidence %.0f%%): %v", confidence*100, indicators),
	}, true
}

func (m *RealTimeMonitor) checkLiquidityExhaustion(ctx context.Context, mint solana.PublicKey) (RiskAlert, bool, error) {
	liquidity, err := m.currentLiquidity(ctx, mint)
	if err != nil {
		return RiskAlert{}, false, err
	}
	m.mu.Lock()
	history := append([]float64(nil), m.liquidityHistory[mint]...)
	m.mu.Unlock()

	maxLiquidity := liquidity
	if len(history) > 0 {
		sorted := append([]float64(nil), history...)
		sort.Float64s(sorted)
		maxLiquidity = sorted[len(sorted)-1]
	}
	if maxLiquidity == 0 {
		return RiskAlert{}, false, nil
	}

	remainingPercent := (liquidity / maxLiquidity) * 100.0
	if remainingPercent >= 20.0 {
		return RiskAlert{}, false, nil
	}
	severity := SeverityHigh
	if remainingPercent < 10.0 {
		severity = SeverityCritical
	}
	return RiskAlert{
		Kind:        "liquidity-exhaustion",
		Severity:    severity,
		Description: fmt.Sprintf("liquidity exhausted: only %.2f%% of peak remains", remainingPercent),
	}, true, nil
}

// currentPrice reads the bonding-curve account and computes
// virtual_sol_reserves / virtual_token_reserves in plain lamports-per-token
// units. spec.md's Open Question resolution keeps this the plain ratio
// rather than the 1e8/1e5-scaled variant monitor.rs's get_current_price
// uses to align with an external SDK's convention — there is no equivalent
// external SDK in this port to align with.
func (m *RealTimeMonitor) currentPrice(ctx context.Context, mint solana.PublicKey) (float64, error) {
	bc, err := m.readBondingCurve(ctx, mint)
	if err != nil {
		return 0, err
	}
	if bc.VirtualTokenReserves == 0 {
		return 0, nil
	}
	return float64(bc.VirtualSolReserves) / float64(bc.VirtualTokenReserves), nil
}

// currentLiquidity uses the SOL-side virtual reserves (in SOL, not
// lamports) as the liquidity proxy, matching monitor.rs's
// get_current_liquidity.
func (m *RealTimeMonitor) currentLiquidity(ctx context.Context, mint solana.PublicKey) (float64, error) {
	bc, err := m.readBondingCurve(ctx, mint)
	if err != nil {
		return 0, err
	}
	return float64(bc.VirtualSolReserves) / lamportsPerSOL, nil
}

func (m *RealTimeMonitor) readBondingCurve(ctx context.Context, mint solana.PublicKey) (*domain.BondingCurveAccount, error) {
	bondingCurve, err := domain.DeriveBondingCurve(mint)
	if err != nil {
		return nil, fmt.Errorf("derive bonding curve for %s: %w", mint, err)
	}
	info, err := m.client.GetAccountInfo(ctx, bondingCurve)
	if err != nil {
		// A read failure should not crash monitoring; the original source
		// falls back to a zeroed account rather than propagating the error.
		return &domain.BondingCurveAccount{}, nil
	}
	if info == nil || info.Value == nil {
		return &domain.BondingCurveAccount{}, nil
	}
	bc, err := domain.DecodeBondingCurveAccount(info.Value.Data.GetBinary())
	if err != nil {
		return &domain.BondingCurveAccount{}, nil
	}
	return bc, nil
}

// PollConfirmation polls GetSignatureStatuses every 500ms until the
// transaction confirms, reports an on-chain error, or timeout elapses
// (monitor.rs's poll_transaction_confirmation).
func (m *RealTimeMonitor) PollConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("confirmation timed out after %s for %s", timeout, sig)
		}

		statuses, err := m.client.GetSignatureStatuses(ctx, true, sig)
		if err == nil && statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if status.ConfirmationStatus != "" {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *RealTimeMonitor) recordPrice(mint solana.PublicKey, price, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.priceHistory[mint], priceRecord{at: time.Now(), price: price, volume: volume})
	if len(history) > 1000 {
		history = history[len(history)-1000:]
	}
	m.priceHistory[mint] = history
}

func (m *RealTimeMonitor) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if m.logger == nil {
		return
	}
	m.logger.Warn(ctx, msg, fields)
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
