package racer

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/internal/position"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// Executor is the production internal/position.BuyExecutor and
// internal/position.SellExecutor: it builds the instruction vector, signs
// with the configured payer, and races it across the submitter registry,
// falling back to a single direct submission through the chain RPC client
// when the whole race fails (spec.md §4.6's "falls back to a default path").
type Executor struct {
	chain         *rpc.Client
	builder       *Builder
	racer         *Racer
	payer         solana.PrivateKey
	venue         config.VenueConfig
	submission    config.SubmissionConfig
	maxSlippageBp uint64
	logger        *observability.Logger
	tracer        *observability.TracingProvider
	metrics       *observability.MetricsProvider
}

// NewExecutor wires an Executor from a live chain RPC client, the enabled
// submitter registry, and the payer keypair. tracer and metrics are both
// optional: a nil tracer skips span creation, and a nil metrics provider
// skips instrument recording entirely.
func NewExecutor(chain *rpc.Client, cfg *config.Config, submitters []*Submitter, payer solana.PrivateKey, logger *observability.Logger, tracer *observability.TracingProvider, metrics *observability.MetricsProvider) *Executor {
	return &Executor{
		chain:         chain,
		builder:       NewBuilder(cfg.Venue, cfg.Submission),
		racer:         NewRacer(cfg.Submission, submitters, logger),
		payer:         payer,
		venue:         cfg.Venue,
		submission:    cfg.Submission,
		maxSlippageBp: cfg.Strategy.MaxSlippageBps,
		logger:        logger,
		tracer:        tracer,
		metrics:       metrics,
	}
}

// startSpan opens a span for the given operation if tracing is configured,
// returning a no-op end function otherwise.
func (e *Executor) startSpan(ctx context.Context, name string) (context.Context, func()) {
	if e.tracer == nil {
		return ctx, func() {}
	}
	spanCtx, span := e.tracer.StartSpan(ctx, name)
	return spanCtx, func() { span.End() }
}

var _ position.BuyExecutor = (*Executor)(nil)
var _ position.SellExecutor = (*Executor)(nil)

// ExecuteBuy reads the bonding curve's current reserves, computes the
// slippage-bounded buy amounts, builds and signs the transaction, and
// races it to the chain.
func (e *Executor) ExecuteBuy(ctx context.Context, mint, bondingCurve, associatedBondingCurve solana.PublicKey, solAmountLamports uint64) (solana.Signature, error) {
	ctx, end := e.startSpan(ctx, "racer.ExecuteBuy")
	defer end()

	payerPub := e.payer.PublicKey()

	tokenProgram, _ := domain.DetectTokenProgram(ctx, e.chain, mint)

	userTokenAccount, err := domain.DeriveATA(payerPub, mint, tokenProgram)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive user ATA: %w", err)
	}

	info, err := e.chain.GetAccountInfo(ctx, bondingCurve)
	if err != nil || info == nil || info.Value == nil {
		return solana.Signature{}, fmt.Errorf("read bonding curve account: %w", err)
	}
	bc, err := domain.DecodeBondingCurveAccount(info.Value.Data.GetBinary())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode bonding curve account: %w", err)
	}

	amounts := domain.ComputeBuyAmounts(
		solAmountLamports,
		bc.VirtualSolReserves,
		bc.VirtualTokenReserves,
		bc.RealTokenReserves,
		e.maxSlippageBp,
	)

	params := BuyParams{
		Payer:                  payerPub,
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		Creator:                bc.Creator,
		TokenProgram:           tokenProgram,
		UserTokenAccount:       userTokenAccount,
		TokenAmount:            amounts.TokensOut,
		MaxSolCost:             amounts.MaxSolCost,
	}

	sig, err := e.send(ctx, func(submitters []*Submitter) ([]solana.Instruction, error) {
		return e.builder.Buy(params, submitters)
	})
	if e.metrics != nil {
		e.metrics.RecordBuyExecution(ctx, err == nil)
	}
	return sig, err
}

// ExecuteSell builds and signs a sell transaction for the given parameters
// and races it to the chain. MinSolOutput is derived from the slippage
// basis points carried on params against the constant-product estimate.
func (e *Executor) ExecuteSell(ctx context.Context, params position.SellParams) (solana.Signature, error) {
	ctx, end := e.startSpan(ctx, "racer.ExecuteSell")
	defer end()

	payerPub := e.payer.PublicKey()

	tokenProgram, _ := domain.DetectTokenProgram(ctx, e.chain, params.Mint)

	userTokenAccount, err := domain.DeriveATA(payerPub, params.Mint, tokenProgram)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive user ATA: %w", err)
	}

	info, err := e.chain.GetAccountInfo(ctx, params.BondingCurve)
	if err != nil || info == nil || info.Value == nil {
		return solana.Signature{}, fmt.Errorf("read bonding curve account: %w", err)
	}
	bc, err := domain.DecodeBondingCurveAccount(info.Value.Data.GetBinary())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode bonding curve account: %w", err)
	}

	expected := domain.EstimateSellSolAmount(bc.VirtualTokenReserves, bc.VirtualSolReserves, params.TokenAmount)
	slippageBps := params.SlippageBasisPoints
	if slippageBps > 10000 {
		slippageBps = 10000
	}
	minOut := expected * (10000 - slippageBps) / 10000

	buildParams := SellParams{
		Payer:                  payerPub,
		Mint:                   params.Mint,
		BondingCurve:           params.BondingCurve,
		AssociatedBondingCurve: params.AssociatedBondingCurve,
		CreatorVault:           params.CreatorVault,
		TokenProgram:           tokenProgram,
		UserTokenAccount:       userTokenAccount,
		TokenAmount:            params.TokenAmount,
		MinSolOutput:           minOut,
	}

	sig, err := e.send(ctx, func(submitters []*Submitter) ([]solana.Instruction, error) {
		return e.builder.Sell(buildParams, submitters)
	})
	if e.metrics != nil {
		e.metrics.RecordSellExecution(ctx, err == nil)
	}
	return sig, err
}

// GetTokenBalance reads the payer's current token balance for mint,
// clamping sell size to what is actually held (position.Manager's
// short-fall protection).
func (e *Executor) GetTokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	payerPub := e.payer.PublicKey()
	tokenProgram, _ := domain.DetectTokenProgram(ctx, e.chain, mint)
	ata, err := domain.DeriveATA(payerPub, mint, tokenProgram)
	if err != nil {
		return 0, fmt.Errorf("derive user ATA: %w", err)
	}
	bal, err := e.chain.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("read token account balance: %w", err)
	}
	if bal == nil || bal.Value == nil {
		return 0, nil
	}
	var amount uint64
	if _, scanErr := fmt.Sscanf(bal.Value.Amount, "%d", &amount); scanErr != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", bal.Value.Amount, scanErr)
	}
	return amount, nil
}

// send signs and races the instructions build produces, retrying once
// through a single direct chain submission (no submitter tips) if the
// whole race fails.
func (e *Executor) send(ctx context.Context, build func(submitters []*Submitter) ([]solana.Instruction, error)) (solana.Signature, error) {
	tx, err := e.signedTransaction(ctx, build, e.racer.submitters)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	result, raceErr := e.racer.Race(ctx, tx)
	if raceErr == nil {
		if e.metrics != nil {
			e.metrics.RecordSubmissionRace(ctx, result.Submitter, true, time.Duration(result.LatencyMs)*time.Millisecond)
		}
		return result.Signature, nil
	}
	if e.metrics != nil {
		e.metrics.RecordSubmissionRace(ctx, "race", false, 0)
	}

	if e.logger != nil {
		e.logger.Warn(ctx, "submission race exhausted, falling back to direct send", map[string]interface{}{
			"error": raceErr.Error(),
		})
	}

	fallbackTx, err := e.signedTransaction(ctx, build, nil)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build fallback transaction: %w", err)
	}
	sig, err := e.chain.SendTransactionWithOpts(ctx, fallbackTx, rpc.TransactionOpts{SkipPreflight: true})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordSubmissionRace(ctx, "fallback", false, 0)
		}
		return solana.Signature{}, fmt.Errorf("fallback send failed after race error %v: %w", raceErr, err)
	}
	if e.metrics != nil {
		e.metrics.RecordSubmissionRace(ctx, "fallback", true, 0)
	}
	return sig, nil
}

func (e *Executor) signedTransaction(ctx context.Context, build func(submitters []*Submitter) ([]solana.Instruction, error), submitters []*Submitter) (*solana.Transaction, error) {
	instructions, err := build(submitters)
	if err != nil {
		return nil, err
	}

	recent, err := e.chain.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil || recent == nil || recent.Value == nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(e.payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(e.payer.PublicKey()) {
			return &e.payer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return tx, nil
}
