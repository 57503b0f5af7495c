// Package domain holds the data model shared by every pipeline stage:
// event variants, window/metrics snapshots, positions, and the enumerated
// taxonomies (filter reasons, decay reasons, risk alerts) that each stage
// contributes to.
package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// EventKind distinguishes the three venue event variants.
type EventKind int

const (
	EventKindUnknown EventKind = iota
	EventKindCreate
	EventKindTrade
	EventKindMigrate
)

func (k EventKind) String() string {
	switch k {
	case EventKindCreate:
		return "create"
	case EventKindTrade:
		return "trade"
	case EventKindMigrate:
		return "migrate"
	default:
		return "unknown"
	}
}

// TradeEvent is the decoded Trade log payload, enriched with the PDA
// account set resolved from the containing transaction's instruction.
type TradeEvent struct {
	Mint        solana.PublicKey
	SolAmount   uint64
	TokenAmount uint64
	IsBuy       bool
	User        solana.PublicKey
	Timestamp   time.Time

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64

	FeeRecipient  solana.PublicKey
	FeeBasisPoints uint64
	Fee            uint64

	Creator          solana.PublicKey
	CreatorFeeBps    uint64
	CreatorFee       uint64
	TrackVolume      bool
	TotalUnclaimed   uint64
	TotalClaimed     uint64
	CurrentSolVolume uint64
	LastUpdate       time.Time

	Signature string

	// Resolved PDA account set, filled in by the Event Source's account
	// enrichment step. Zero values mean enrichment failed to locate them.
	BondingCurve            solana.PublicKey
	AssociatedBondingCurve  solana.PublicKey
	AssociatedUser          solana.PublicKey
	CreatorVault            solana.PublicKey
	GlobalVolumeAccumulator solana.PublicKey
	UserVolumeAccumulator   solana.PublicKey
	MintMismatch            bool

	// CreatedInSameTx is true iff a top-level instruction of the transaction
	// carrying this trade starts with the Create instruction discriminator.
	// Log payloads and inner instructions are not checked, and the flag stays
	// false when that transaction cannot be fetched.
	CreatedInSameTx bool
}

// CreateEvent is the decoded Create log payload.
type CreateEvent struct {
	Name        string
	Symbol      string
	URI         string
	Mint        solana.PublicKey
	BondingCurve solana.PublicKey
	User        solana.PublicKey
	Creator     solana.PublicKey
	Timestamp   time.Time

	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	TotalSupply          uint64

	Signature string
}

// MigrateEvent is the decoded Migrate log payload.
type MigrateEvent struct {
	User        solana.PublicKey
	Mint        solana.PublicKey
	MintAmount  uint64
	SolAmount   uint64
	PoolFee     uint64
	BondingCurve solana.PublicKey
	Timestamp   time.Time
	Pool        solana.PublicKey

	Signature string
}

// RawEvent is the tagged-sum envelope pushed onto the Source->Aggregator
// ring: exactly one of Trade/Create/Migrate is populated per Kind.
type RawEvent struct {
	Kind    EventKind
	Trade   *TradeEvent
	Create  *CreateEvent
	Migrate *MigrateEvent
}

// PumpFunEventType is the analytical event kind recorded in EventHistory,
// distinct from EventKind (Migrate never appears here; Create records a
// synthetic zero-trade entry).
type PumpFunEventType int

const (
	PumpFunEventCreate PumpFunEventType = iota
	PumpFunEventBuy
	PumpFunEventSell
)

// AnalyticalEvent is the unified internal event consumed by the aggregator's
// window and advanced-metric computations.
type AnalyticalEvent struct {
	Mint                 solana.PublicKey
	User                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	Timestamp            time.Time
	IsBuy                bool
	IsDevTrade           bool
	EventType            PumpFunEventType
}

// Price returns virtual_sol_reserves / virtual_token_reserves, the
// canonical price definition used throughout this pipeline (spec.md §3).
func (e AnalyticalEvent) Price() float64 {
	if e.VirtualTokenReserves == 0 {
		return 0
	}
	return float64(e.VirtualSolReserves) / float64(e.VirtualTokenReserves)
}

// WindowMetrics is the immutable snapshot emitted on each accepted trade.
type WindowMetrics struct {
	Mint       solana.PublicKey
	NetInflowSOL int64 // signed lamports
	BuyRatio     float64
	Acceleration float64

	LatestVirtualSolReserves   uint64
	LatestVirtualTokenReserves uint64

	EventCount int

	// ThresholdBuyAmount is set (non-nil) only on the event that first
	// crosses the cumulative-buy threshold.
	ThresholdBuyAmount *float64

	AdvancedMetrics *AdvancedMetrics
}

// AdvancedMetrics is computed only once EventHistory has >= 5 entries.
type AdvancedMetrics struct {
	CurveSlope            float64
	WeightedBuyPressure    float64
	HighFrequencyTrades    uint32
	AvgPriceImpact         float64
	MaxPriceImpact         float64
	LiquidityDepth         float64
	Volatility             float64
	WeightedBuySellRatio   float64
	LargeTradeRatio        float64
	TradeIntervalStdDev    float64
}

// StrategySignal is the closed decision variant emitted by the Strategy Engine.
type StrategySignal int

const (
	SignalNone StrategySignal = iota
	SignalBuy
	SignalSell
	SignalHold
)

func (s StrategySignal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalHold:
		return "hold"
	default:
		return "none"
	}
}

// MetricsSignal pairs an emitted metrics snapshot with its strategy decision.
type MetricsSignal struct {
	Metrics *WindowMetrics
	Signal  StrategySignal
}

// Position is the one-per-token record of an open snipe.
type Position struct {
	Mint        solana.PublicKey
	EntryTime   time.Time
	EntryPriceSOL float64
	TokenAmount uint64
	SolInvested uint64

	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	CreatorVault           solana.PublicKey

	LatestVirtualSolReserves   uint64
	LatestVirtualTokenReserves uint64
}

// SOLInvestedDecimal exposes SolInvested as a decimal SOL amount for display
// and PnL math, matching the teacher's convention of decimal money at
// boundaries.
func (p Position) SOLInvestedDecimal() decimal.Decimal {
	return decimal.NewFromInt(int64(p.SolInvested)).Div(decimal.NewFromInt(1_000_000_000))
}

// BondingCurveState is the minimal reserve pair needed for constant-product
// slippage estimation (spec §4.6, §8).
type BondingCurveState struct {
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// EstimateBuySlippagePercent replicates the original source's
// estimate_buy_slippage: returns 100.0 (max-slippage sentinel) if either
// reserve is zero.
func (b BondingCurveState) EstimateBuySlippagePercent(solAmountLamports uint64) float64 {
	if b.VirtualSolReserves == 0 || b.VirtualTokenReserves == 0 || solAmountLamports == 0 {
		return 100.0
	}
	vSol := float64(b.VirtualSolReserves)
	vTok := float64(b.VirtualTokenReserves)
	sol := float64(solAmountLamports)

	k := vSol * vTok
	newSol := vSol + sol
	newToken := k / newSol
	tokenOut := vTok - newToken
	if tokenOut <= 0 {
		return 100.0
	}
	idealPrice := sol / vSol
	actualPrice := sol / tokenOut
	if idealPrice == 0 {
		return 100.0
	}
	return absFloat(actualPrice-idealPrice) / idealPrice * 100.0
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
