// Package racer builds and races the outgoing buy/sell transaction across
// the configured priority-submission backends (spec.md §4.6). It is the
// production implementation behind internal/position's BuyExecutor and
// SellExecutor interfaces.
package racer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/ai-agentic-browser/sniper/internal/config"
)

// BackendType identifies one of the nine named priority-submission vendors
// this port recognizes, each shipping its own fixed tip-account pool
// (swqos.rs's SwqosType and its *_TIP_ACCOUNTS constant arrays).
type BackendType string

const (
	BackendJito       BackendType = "jito"
	BackendNextBlock  BackendType = "nextblock"
	BackendZeroSlot   BackendType = "zeroslot"
	BackendTemporal   BackendType = "temporal"
	BackendBloxroute  BackendType = "bloxroute"
	BackendNode1      BackendType = "node1"
	BackendFlashBlock BackendType = "flashblock"
	BackendBlockRazor BackendType = "blockrazor"
	BackendAstralane  BackendType = "astralane"
)

// tipAccountPools mirrors swqos.rs's hardcoded *_TIP_ACCOUNTS arrays
// verbatim. Each vendor rotates across its own pool rather than sending
// every tip to the same address.
var tipAccountPools = map[BackendType][]string{
	BackendJito: {
		"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
		"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
		"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
		"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
		"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
		"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
		"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
		"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
	},
	BackendNextBlock: {
		"NextbLoCkVtMGcV47JzewQdvBpLqT9TxQFozQkN98pE",
		"NexTbLoCkWykbLuB1NkjXgFWkX9oAtcoagQegygXXA2",
		"NeXTBLoCKs9F1y5PJS9CKrFNNLU1keHW71rfh7KgA1X",
		"NexTBLockJYZ7QD7p2byrUa6df8ndV2WSd8GkbWqfbb",
		"neXtBLock1LeC67jYd1QdAa32kbVeubsfPNTJC1V5At",
		"nEXTBLockYgngeRmRrjDV31mGSekVPqZoMGhQEZtPVG",
		"NEXTbLoCkB51HpLBLojQfpyVAMorm3zzKg7w9NFdqid",
		"nextBLoCkPMgmG8ZgJtABeScP35qLa2AMCNKntAP7Xc",
	},
	BackendZeroSlot: {
		"Eb2KpSC8uMt9GmzyAEm5Eb1AAAgTjRaXWFjKyFXHZxF3",
		"FCjUJZ1qozm1e8romw216qyfQMaaWKxWsuySnumVCCNe",
		"ENxTEjSQ1YabmUpXAdCgevnHQ9MHdLv8tzFiuiYJqa13",
		"6rYLG55Q9RpsPGvqdPNJs4z5WTxJVatMB8zV3WJhs5EK",
		"Cix2bHfqPcKcM233mzxbLk14kSggUUiz2A87fJtGivXr",
	},
	BackendTemporal: {
		"TEMPaMeCRFAS9EKF53Jd6KpHxgL47uWLcpFArU1Fanq",
		"noz3jAjPiHuBPqiSPkkugaJDkJscPuRhYnSpbi8UvC4",
		"noz3str9KXfpKknefHji8L1mPgimezaiUyCHYMDv1GE",
		"noz6uoYCDijhu1V7cutCpwxNiSovEwLdRHPwmgCGDNo",
	},
	BackendBloxroute: {
		"HWEoBxYs7ssKuudEjzjmpfJVX7Dvi7wescFsVx2L5yoY",
		"95cfoy472fcQHaw4tPGBTKpn6ZQnfEPfBgDQx6gcRmRg",
		"3UQUKjhMKaY2S6bjcQD6yHB7utcZt5bfarRCmctpRtUd",
		"FogxVNs6Mm2w9rnGL1vkARSwJxvLE8mujTv3LK8RnUhF",
	},
	BackendNode1: {
		"node1PqAa3BWWzUnTHVbw8NJHC874zn9ngAkXjgWEej",
		"node1UzzTxAAeBTpfZkQPJXBAqixsbdth11ba1NXLBG",
		"node1Qm1bV4fwYnCurP8otJ9s5yrkPq7SPZ5uhj3Tsv",
		"node1PUber6SFmSQgvf2ECmXsHP5o3boRSGhvJyPMX1",
	},
	BackendFlashBlock: {
		"FLaShB3iXXTWE1vu9wQsChUKq3HFtpMAhb8kAh1pf1wi",
		"FLashhsorBmM9dLpuq6qATawcpqk1Y2aqaZfkd48iT3W",
		"FLaSHJNm5dWYzEgnHJWWJP5ccu128Mu61NJLxUf7mUXU",
	},
	BackendBlockRazor: {
		"FjmZZrFvhnqqb9ThCuMVnENaM3JGVuGWNyCAxRJcFpg9",
		"6No2i3aawzHsjtThw81iq1EXPJN6rh8eSJCLaYZfKDTG",
		"A9cWowVAiHe9pJfKAj3TJiN9VpbzMUq6E4kEvf5mUT22",
	},
	BackendAstralane: {
		"astrazznxsGUhWShqgNtAdfrzP2G83DzcWVJDxwV9bF",
		"astra4uejePWneqNaJKuFFA8oonqCE1sqF6b45kDMZm",
		"astra9xWY93QyfG6yM8zwsKsRodscjQ2uU2HKNL5prk",
	},
}

// backendTypes maps config.SubmitterConfig.Name (lowercased, per
// loadSubmitters) to the BackendType whose tip pool it draws from.
var backendTypes = map[string]BackendType{
	"jito":       BackendJito,
	"nextblock":  BackendNextBlock,
	"zeroslot":   BackendZeroSlot,
	"temporal":   BackendTemporal,
	"bloxroute":  BackendBloxroute,
	"node1":      BackendNode1,
	"flashblock": BackendFlashBlock,
	"blockrazor": BackendBlockRazor,
	"astralane":  BackendAstralane,
}

// Submitter is one enabled, priority-sorted backend: its tip-account pool,
// HTTP client and rate limiter, and the parsed tip it contributes to every
// race attempt.
type Submitter struct {
	Name        string
	Type        BackendType
	Endpoint    string
	APIKey      string
	Priority    uint32
	TipLamports uint64

	tipAccounts []solana.PublicKey
	tipCursor   uint64 // atomic round-robin index, replaces the original's random pick for test determinism

	rpcClient *rpc.Client
	limiter   *rate.Limiter
}

// NewRegistry builds the enabled submitters from cfg, sorted by ascending
// priority (lowest number = highest priority, matching
// MultiSwqosManager::new's sort_by_key(|s| s.priority)).
func NewRegistry(cfg config.SubmissionConfig) ([]*Submitter, error) {
	submitters := make([]*Submitter, 0, len(cfg.Submitters))
	for _, sc := range cfg.Submitters {
		if !sc.Enabled {
			continue
		}
		backend, ok := backendTypes[sc.Name]
		if !ok {
			return nil, fmt.Errorf("unknown submitter backend %q", sc.Name)
		}
		pool, err := parsedTipAccounts(backend)
		if err != nil {
			return nil, fmt.Errorf("submitter %s: %w", sc.Name, err)
		}
		if sc.Endpoint == "" {
			return nil, fmt.Errorf("submitter %s enabled with no endpoint configured", sc.Name)
		}

		submitters = append(submitters, &Submitter{
			Name:        sc.Name,
			Type:        backend,
			Endpoint:    sc.Endpoint,
			APIKey:      sc.APIKey,
			Priority:    sc.Priority,
			TipLamports: sc.TipLamports,
			tipAccounts: pool,
			rpcClient:   rpc.NewWithHeaders(sc.Endpoint, headersForSubmitter(sc)),
			limiter:     rate.NewLimiter(rate.Limit(20), 20),
		})
	}

	sortSubmittersByPriority(submitters)
	return submitters, nil
}

func sortSubmittersByPriority(s []*Submitter) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Priority < s[j-1].Priority; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

var parsedTipAccountPools map[BackendType][]solana.PublicKey

func parsedTipAccounts(t BackendType) ([]solana.PublicKey, error) {
	if parsedTipAccountPools == nil {
		parsedTipAccountPools = make(map[BackendType][]solana.PublicKey, len(tipAccountPools))
	}
	if pool, ok := parsedTipAccountPools[t]; ok {
		return pool, nil
	}
	raw, ok := tipAccountPools[t]
	if !ok {
		return nil, fmt.Errorf("no tip account pool registered for backend %q", t)
	}
	pool := make([]solana.PublicKey, 0, len(raw))
	for _, addr := range raw {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid tip account %q for backend %q: %w", addr, t, err)
		}
		pool = append(pool, pk)
	}
	parsedTipAccountPools[t] = pool
	return pool, nil
}

// NextTipAccount rotates through the backend's tip-account pool, replacing
// get_random_tip_account's random choice with a deterministic round-robin —
// any account in the pool is an equally valid tip destination, and the
// rotation is trivially testable without stubbing a random source.
func (s *Submitter) NextTipAccount() solana.PublicKey {
	idx := atomic.AddUint64(&s.tipCursor, 1) - 1
	return s.tipAccounts[idx%uint64(len(s.tipAccounts))]
}

// TipInstruction builds this submitter's contribution to the tip
// composition: a plain SOL transfer from payer to its next rotated tip
// account, at its configured lamports.
func (s *Submitter) TipInstruction(payer solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(s.TipLamports, payer, s.NextTipAccount()).Build()
}

// AllTipInstructions builds one tip transfer per enabled submitter and
// trims to maxTips by priority order (get_all_tip_instructions), returning
// the names of the trimmed submitters alongside the kept instructions.
// Builder.assemble discards that list, so trimming is not logged.
func AllTipInstructions(submitters []*Submitter, payer solana.PublicKey, maxTips int) (kept []solana.Instruction, dropped []string) {
	for i, s := range submitters {
		if i >= maxTips {
			dropped = append(dropped, s.Name)
			continue
		}
		kept = append(kept, s.TipInstruction(payer))
	}
	return kept, dropped
}

// SendTransaction submits the fully-signed transaction to this backend's
// configured endpoint via the standard Solana JSON-RPC sendTransaction
// method — the config-driven simplification this port uses in place of
// swqos.rs's nine hand-written per-vendor HTTP clients (see DESIGN.md).
// Preflight is skipped: the race is won on raw submission latency, and
// every backend already received an identical, already-simulated-upstream
// transaction.
func (s *Submitter) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, fmt.Errorf("%s: rate limit wait: %w", s.Name, err)
	}
	sig, err := s.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: true})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", s.Name, err)
	}
	return sig, nil
}

// headersForSubmitter attaches the vendor's API key as a bearer-style
// header where one is configured (most priority-RPC vendors authenticate
// this way rather than embedding the key in the URL).
func headersForSubmitter(sc config.SubmitterConfig) map[string]string {
	if sc.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + sc.APIKey}
}
