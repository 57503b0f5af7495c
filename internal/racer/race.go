package racer

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// RaceResult reports which submitter's attempt produced the signature
// Race returns.
type RaceResult struct {
	Submitter string
	Signature solana.Signature
	LatencyMs int64
}

// raceSubmitter is the seam Racer dispatches through; *Submitter is the
// production implementation, and tests substitute fakes that skip the
// network entirely.
type raceSubmitter interface {
	SubmitterName() string
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SubmitterName satisfies raceSubmitter.
func (s *Submitter) SubmitterName() string { return s.Name }

// Racer dispatches an already-signed transaction to the configured
// submitters, in parallel or sequentially, with retry (send_transaction_race).
type Racer struct {
	submitters []raceSubmitter
	cfg        config.SubmissionConfig
	logger     *observability.Logger
}

// NewRacer builds a Racer over the given (already priority-sorted) submitters.
func NewRacer(cfg config.SubmissionConfig, submitters []*Submitter, logger *observability.Logger) *Racer {
	wrapped := make([]raceSubmitter, len(submitters))
	for i, s := range submitters {
		wrapped[i] = s
	}
	return &Racer{submitters: wrapped, cfg: cfg, logger: logger}
}

// Race sends tx to every enabled submitter. In parallel mode all submitters
// are dispatched concurrently and the first success wins; in sequential
// mode submitters are tried in priority order until one succeeds. If every
// submitter in a round fails, the whole round is run again after 200ms;
// cfg.MaxRetries is the total number of rounds (at least one).
func (r *Racer) Race(ctx context.Context, tx *solana.Transaction) (RaceResult, error) {
	if len(r.submitters) == 0 {
		return RaceResult{}, fmt.Errorf("no submitters configured")
	}

	timeout := time.Duration(r.cfg.TimeoutMs) * time.Millisecond
	maxRetries := r.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var result RaceResult
		var err error
		if r.cfg.ParallelSend {
			result, err = r.sendParallel(ctx, tx, timeout)
		} else {
			result, err = r.sendSequential(ctx, tx, timeout)
		}
		if err == nil {
			if attempt > 1 && r.logger != nil {
				r.logger.Info(ctx, "submission race succeeded on retry", map[string]interface{}{
					"attempt":   attempt,
					"submitter": result.Submitter,
				})
			}
			return result, nil
		}
		lastErr = err
		if r.logger != nil {
			r.logger.Warn(ctx, "submission race attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
		}
		if attempt < maxRetries {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return RaceResult{}, ctx.Err()
			}
		}
	}
	return RaceResult{}, fmt.Errorf("all submission attempts failed: %w", lastErr)
}

type attemptOutcome struct {
	result RaceResult
	err    error
}

// sendParallel races all submitters concurrently and returns the first
// success. If none succeed, it returns the first-arriving failure — a
// proxy for "fastest failing attempt" since channel arrival order tracks
// completion latency.
func (r *Racer) sendParallel(ctx context.Context, tx *solana.Transaction, timeout time.Duration) (RaceResult, error) {
	outcomes := make(chan attemptOutcome, len(r.submitters))
	for _, s := range r.submitters {
		s := s
		go func() {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			sig, err := s.SendTransaction(attemptCtx, tx)
			latency := time.Since(start).Milliseconds()
			if err != nil {
				outcomes <- attemptOutcome{err: fmt.Errorf("%s: %w", s.SubmitterName(), err)}
				return
			}
			outcomes <- attemptOutcome{result: RaceResult{Submitter: s.SubmitterName(), Signature: sig, LatencyMs: latency}}
		}()
	}

	var firstErr error
	for i := 0; i < len(r.submitters); i++ {
		o := <-outcomes
		if o.err == nil {
			return o.result, nil
		}
		if firstErr == nil {
			firstErr = o.err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("all submitters failed")
	}
	return RaceResult{}, firstErr
}

// sendSequential tries each submitter in priority order until one succeeds.
func (r *Racer) sendSequential(ctx context.Context, tx *solana.Transaction, timeout time.Duration) (RaceResult, error) {
	var lastErr error
	for _, s := range r.submitters {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		sig, err := s.SendTransaction(attemptCtx, tx)
		latency := time.Since(start).Milliseconds()
		cancel()
		if err == nil {
			return RaceResult{Submitter: s.SubmitterName(), Signature: sig, LatencyMs: latency}, nil
		}
		lastErr = fmt.Errorf("%s: %w", s.SubmitterName(), err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no submitters configured")
	}
	return RaceResult{}, lastErr
}
