package eventsource

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/ai-agentic-browser/sniper/internal/domain"
	"github.com/ai-agentic-browser/sniper/pkg/observability"
)

// LogsSubscription is the subset of *ws.LogSubscription this package
// depends on, narrowed for testability.
type LogsSubscription interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

// Subscriber abstracts venue log subscription so the reconnect loop can be
// exercised without a live RPC endpoint.
type Subscriber interface {
	SubscribeLogs(ctx context.Context) (LogsSubscription, error)
}

// wsSubscriber is the production Subscriber backed by solana-go's ws.Client,
// watching the pump.fun program's logs via LogsSubscribeMentions.
type wsSubscriber struct {
	client  *ws.Client
	program solana.PublicKey
	commitment rpc.CommitmentType
}

func (s *wsSubscriber) SubscribeLogs(ctx context.Context) (LogsSubscription, error) {
	sub, err := s.client.LogsSubscribeMentions(s.program, s.commitment)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Client is the Event Source pipeline stage. It owns a reconnecting log
// subscription, decodes each log line, resolves the PDA account set from
// the carrying transaction, and pushes the result onto a RingQueue.
type Client struct {
	logger  *observability.Logger
	queue   *RingQueue
	wsURL   string
	program solana.PublicKey

	minBackoff time.Duration
	maxBackoff time.Duration

	subscriberFactory func(ctx context.Context) (Subscriber, error)

	rpcClient *rpc.Client
}

// Config configures the event source client.
type Config struct {
	WSEndpoint  string
	RPCEndpoint string
	Program     solana.PublicKey
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// NewClient builds an event source client against a live RPC/WS endpoint
// pair, following the teacher's ws.Connect/rpc.New construction pattern.
func NewClient(cfg Config, logger *observability.Logger, queue *RingQueue) *Client {
	minB, maxB := cfg.MinBackoff, cfg.MaxBackoff
	if minB <= 0 {
		minB = 5 * time.Millisecond
	}
	if maxB <= 0 {
		maxB = 5 * time.Second
	}
	rpcClient := rpc.New(cfg.RPCEndpoint)
	c := &Client{
		logger:     logger,
		queue:      queue,
		wsURL:      cfg.WSEndpoint,
		program:    cfg.Program,
		minBackoff: minB,
		maxBackoff: maxB,
		rpcClient:  rpcClient,
	}
	c.subscriberFactory = func(ctx context.Context) (Subscriber, error) {
		wsClient, err := ws.Connect(ctx, cfg.WSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("connect ws: %w", err)
		}
		return &wsSubscriber{client: wsClient, program: cfg.Program, commitment: rpc.CommitmentConfirmed}, nil
	}
	return c
}

// Run drives the reconnect-subscribe-decode-enqueue loop until ctx is
// cancelled. On any subscription error it reconnects with exponential
// backoff starting at minBackoff, capped at maxBackoff, no jitter —
// spec.md §5's reconnect policy.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sub, err := c.subscriberFactory(ctx)
		if err != nil {
			c.logger.Warn(ctx, "event source subscribe failed", map[string]interface{}{
				"error":        err.Error(),
				"retry_in_ms":  backoff.Milliseconds(),
			})
			if !sleepOrDone(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}

		backoff = c.minBackoff
		if err := c.consume(ctx, sub); err != nil {
			c.logger.Warn(ctx, "event source subscription ended", map[string]interface{}{
				"error": err.Error(),
			})
		}
		sub.Unsubscribe()

		if !sleepOrDone(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, c.maxBackoff)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// consume drains one live subscription until it errors or ctx is cancelled.
func (c *Client) consume(ctx context.Context, sub LogsSubscription) error {
	for {
		result, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			continue
		}
		signature := result.Value.Signature.String()
		for _, line := range result.Value.Logs {
			raw, err := DecodeLog(line, signature)
			if err != nil {
				c.logger.Debug(ctx, "event decode failed", map[string]interface{}{
					"signature": signature,
					"error":     err.Error(),
				})
				continue
			}
			if raw == nil {
				continue
			}
			c.enrich(ctx, raw, signature)
			if !c.queue.Push(*raw) {
				c.logger.Debug(ctx, "event dropped, queue full", map[string]interface{}{
					"signature": signature,
				})
			}
		}
	}
}

// enrich resolves the PDA account set for trade events by fetching the
// carrying transaction. Create/Migrate events carry their own account
// fields directly in the decoded payload and need no enrichment pass.
func (c *Client) enrich(ctx context.Context, raw *domain.RawEvent, signature string) {
	if raw.Kind != domain.EventKindTrade || raw.Trade == nil {
		return
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return
	}
	maxSupportedVersion := uint64(0)
	tx, err := c.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &maxSupportedVersion,
	})
	if err != nil || tx == nil || tx.Transaction == nil {
		return
	}
	decoded, err := tx.Transaction.GetTransaction()
	if err != nil || decoded == nil {
		return
	}

	createSeen := false
	for _, ix := range decoded.Message.Instructions {
		data := []byte(ix.Data)
		if len(data) < 8 {
			continue
		}
		var disc [8]byte
		copy(disc[:], data[:8])
		if disc == createIxDiscriminator {
			createSeen = true
		}

		indices := make([]uint16, len(ix.Accounts))
		for i, a := range ix.Accounts {
			indices[i] = uint16(a)
		}
		accounts, ok := extractAccounts(decoded.Message.AccountKeys, data, indices)
		if !ok {
			continue
		}
		if accounts.Mint == raw.Trade.Mint {
			enrichTrade(raw.Trade, accounts)
		}
	}
	raw.Trade.CreatedInSameTx = createSeen
}
