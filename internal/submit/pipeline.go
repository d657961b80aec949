// Package submit implements the transaction submission pipeline: it turns
// a trade request into signed transaction bundles and delivers them to the
// relay under a shared rate limit with bounded, jittered retry.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/observability"
	"solana-autotrader/internal/relay"
	"solana-autotrader/internal/txcodec"
	"solana-autotrader/internal/wallet"
)

// Default configuration values.
const (
	DefaultMaxBundleSize    = 5 // relay cap on transactions per bundle
	DefaultMaxAttempts      = 5
	DefaultRetryBaseDelay   = 500 * time.Millisecond
	DefaultSubmitsPerSecond = 2

	// Jitter bounds applied to every backoff delay.
	jitterLow  = 0.85
	jitterHigh = 1.15

	backoffMultiplier = 1.5
)

// ErrMissingSigner is returned when a transaction requires a signer for
// which no credential is available.
var ErrMissingSigner = errors.New("no credential for required signer")

// Config tunes the pipeline.
type Config struct {
	// MaxBundleSize caps transactions per bundle.
	MaxBundleSize int
	// MaxAttempts bounds consecutive failures for the critical bundle.
	MaxAttempts int
	// RetryBaseDelay is the backoff base for the critical bundle.
	RetryBaseDelay time.Duration
	// SubmitsPerSecond bounds submissions across the whole pipeline.
	SubmitsPerSecond int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxBundleSize:    DefaultMaxBundleSize,
		MaxAttempts:      DefaultMaxAttempts,
		RetryBaseDelay:   DefaultRetryBaseDelay,
		SubmitsPerSecond: DefaultSubmitsPerSecond,
	}
}

// Pipeline delivers trade requests as signed bundles. The rate limiter is
// shared across all concurrently-firing strategies; it is the only state
// mutated from multiple goroutines.
type Pipeline struct {
	builder relay.BuilderClient
	relay   relay.RelayClient
	keyring *wallet.Keyring
	limiter *rate.Limiter
	cfg     Config
	logger  *log.Logger

	// sleep is swapped in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error

	randMu sync.Mutex
	rand   *rand.Rand
}

// New creates a Pipeline.
func New(builder relay.BuilderClient, relayClient relay.RelayClient, keyring *wallet.Keyring, cfg Config, logger *log.Logger) *Pipeline {
	if cfg.MaxBundleSize <= 0 {
		cfg.MaxBundleSize = DefaultMaxBundleSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.SubmitsPerSecond <= 0 {
		cfg.SubmitsPerSecond = DefaultSubmitsPerSecond
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[submit] ", log.LstdFlags)
	}

	return &Pipeline{
		builder: builder,
		relay:   relayClient,
		keyring: keyring,
		// Burst of 1 spaces grants 1/N apart, so at most N submissions
		// start within any rolling one-second window.
		limiter: rate.NewLimiter(rate.Limit(cfg.SubmitsPerSecond), 1),
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit executes one trade request end to end: build, sign, rate-limit,
// submit, report. Returns one SubmissionResult per attempted bundle. A
// non-nil error means the trade request as a whole failed (builder error,
// critical signing failure or critical bundle retry exhaustion); bundles
// after a failed critical bundle are never attempted.
func (p *Pipeline) Submit(ctx context.Context, req domain.TradeRequest) ([]domain.SubmissionResult, error) {
	blobs, err := p.builder.BuildSwap(ctx, relay.BuildRequest{
		WalletAddresses: []string{req.WalletAddress},
		TokenAddress:    req.TokenAddress,
		Direction:       req.Direction,
		Amount:          req.Amount,
		SlippagePct:     req.SlippagePct,
		Priority:        req.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("build transactions: %w", err)
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("builder returned no transactions")
	}

	bundles := p.bundle(blobs)
	results := make([]domain.SubmissionResult, 0, len(bundles))

	for _, b := range bundles {
		signed, err := p.signBundle(b.Blobs)
		if err != nil {
			if b.Critical {
				return results, fmt.Errorf("sign critical bundle: %w", err)
			}
			p.logger.Printf("request %s: dropping non-critical bundle %d: %v", req.ID, b.Index, err)
			results = append(results, domain.SubmissionResult{Attempts: 0, Err: err})
			continue
		}

		res := p.deliver(ctx, signed, b.Critical)
		results = append(results, res)

		if b.Critical && res.Err != nil {
			return results, fmt.Errorf("critical bundle failed after %d attempts: %w", res.Attempts, res.Err)
		}
		if res.Err != nil {
			p.logger.Printf("request %s: non-critical bundle %d failed: %v", req.ID, b.Index, res.Err)
		}
	}

	return results, nil
}

// bundle chunks ordered blobs into bundles. The first bundle is critical:
// its failure aborts the rest of the trade request.
func (p *Pipeline) bundle(blobs [][]byte) []domain.TransactionBundle {
	var bundles []domain.TransactionBundle
	for start := 0; start < len(blobs); start += p.cfg.MaxBundleSize {
		end := start + p.cfg.MaxBundleSize
		if end > len(blobs) {
			end = len(blobs)
		}
		bundles = append(bundles, domain.TransactionBundle{
			Index:    len(bundles),
			Blobs:    blobs[start:end],
			Critical: len(bundles) == 0,
		})
	}
	return bundles
}

// signBundle applies every missing required signature to each blob.
// Signatures already present (the builder pre-signs the first transaction
// of a multi-party flow) are preserved, never recomputed.
func (p *Pipeline) signBundle(blobs [][]byte) ([][]byte, error) {
	signed := make([][]byte, 0, len(blobs))
	for i, blob := range blobs {
		tx, err := txcodec.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", i, err)
		}

		for slot, signer := range tx.RequiredSigners() {
			if tx.HasSignature(slot) {
				continue
			}
			w, ok := p.keyring.Get(signer)
			if !ok {
				return nil, fmt.Errorf("transaction %d signer %s: %w", i, signer, ErrMissingSigner)
			}
			if err := tx.SetSignature(slot, w.Sign(tx.Message)); err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i, err)
			}
		}

		signed = append(signed, tx.Encode())
	}
	return signed, nil
}

// deliver submits one signed bundle. The critical bundle retries with
// exponential backoff and jitter up to MaxAttempts; non-critical bundles
// get a single best-effort attempt. Every attempt passes through the
// shared rate limiter, retries included.
func (p *Pipeline) deliver(ctx context.Context, signed [][]byte, critical bool) domain.SubmissionResult {
	maxAttempts := 1
	if critical {
		maxAttempts = p.cfg.MaxAttempts
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			observability.RecordRetry()
			if err := p.sleep(ctx, p.backoffDelay(attempt-1)); err != nil {
				return domain.SubmissionResult{Attempts: attempt - 1, Err: err}
			}
		}

		waitStart := time.Now()
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.SubmissionResult{Attempts: attempt - 1, Err: err}
		}
		observability.RecordLimiterWait(time.Since(waitStart).Seconds())

		bundleID, err := p.relay.SubmitBundle(ctx, signed)
		if err == nil {
			observability.RecordBundle("success", critical, time.Since(start).Seconds())
			observability.DefaultMetrics.LastSuccessfulSubmit.Set(float64(time.Now().Unix()))
			return domain.SubmissionResult{BundleID: bundleID, Attempts: attempt}
		}
		lastErr = err
	}

	observability.RecordBundle("failure", critical, time.Since(start).Seconds())
	return domain.SubmissionResult{Attempts: maxAttempts, Err: lastErr}
}

// backoffDelay computes base × 1.5^attempt × jitter, jitter drawn from
// [0.85, 1.15]. Non-decreasing in expectation across attempts.
func (p *Pipeline) backoffDelay(attempt int) time.Duration {
	p.randMu.Lock()
	jitter := jitterLow + p.rand.Float64()*(jitterHigh-jitterLow)
	p.randMu.Unlock()

	d := float64(p.cfg.RetryBaseDelay) * math.Pow(backoffMultiplier, float64(attempt-1)) * jitter
	return time.Duration(d)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
