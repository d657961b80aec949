package automation

import (
	"context"
	"fmt"
	"log"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/execlog"
)

// Submitter delivers one trade request through the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, req domain.TradeRequest) ([]domain.SubmissionResult, error)
}

// WalletSource supplies the selected wallet set with last known balances.
// Must not block: the resolver's balance checks are reads of cached state.
type WalletSource interface {
	Wallets() []WalletInfo
}

// Dispatcher executes a fired strategy: resolves each action into trade
// requests and pushes them through the submitter, recording every outcome
// in the execution log. Errors never propagate past Execute; the scheduler
// relies on that to isolate strategies from each other.
type Dispatcher struct {
	resolver  *Resolver
	submitter Submitter
	wallets   WalletSource
	execLog   *execlog.Log
	logger    *log.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(resolver *Resolver, submitter Submitter, wallets WalletSource, execLog *execlog.Log, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[dispatch] ", log.LstdFlags)
	}
	return &Dispatcher{
		resolver:  resolver,
		submitter: submitter,
		wallets:   wallets,
		execLog:   execLog,
		logger:    logger,
	}
}

// Execute runs all actions of a fired strategy in order, wallets in
// wallet-set order. One wallet's failure aborts neither the remaining
// wallets nor the remaining actions.
func (d *Dispatcher) Execute(ctx context.Context, st *domain.Strategy, snap *domain.MarketSnapshot) {
	wallets := d.wallets.Wallets()
	if len(wallets) == 0 {
		d.record(ctx, st.ID, "fire", false, "no wallets selected")
		return
	}

	for _, action := range st.Actions {
		desc := describeAction(action)

		requests, skipped := d.resolver.Resolve(st, action, snap, wallets)
		for _, skip := range skipped {
			d.record(ctx, st.ID, desc, false, fmt.Sprintf("wallet %s skipped: %s", shortAddr(skip.Address), skip.Reason))
		}

		for _, req := range requests {
			results, err := d.submitter.Submit(ctx, req)
			if err != nil {
				d.record(ctx, st.ID, desc, false,
					fmt.Sprintf("wallet %s: %v (attempts: %d)", shortAddr(req.WalletAddress), err, criticalAttempts(results)))
				continue
			}
			d.record(ctx, st.ID, desc, true,
				fmt.Sprintf("wallet %s: %s (attempts: %d)", shortAddr(req.WalletAddress), bundleIDs(results), criticalAttempts(results)))
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, strategyID, action string, success bool, message string) {
	d.execLog.Append(ctx, domain.ExecutionEntry{
		StrategyID: strategyID,
		Action:     action,
		Success:    success,
		Message:    message,
	})
	if !success {
		d.logger.Printf("strategy %s: %s: %s", strategyID, action, message)
	}
}

// describeAction renders a human-readable action description for the log.
func describeAction(a domain.Action) string {
	switch a.Amount {
	case domain.AmountFixed:
		return fmt.Sprintf("%s %.4f SOL", a.Direction, a.Value)
	case domain.AmountPercentage:
		return fmt.Sprintf("%s %.1f%% of balance", a.Direction, a.Value)
	case domain.AmountLastTradeMultiple:
		return fmt.Sprintf("%s %.2fx last trade", a.Direction, a.Value)
	case domain.AmountVolumeMultiple:
		return fmt.Sprintf("%s %.2fx %s volume", a.Direction, a.Value, a.VolumeSide)
	case domain.AmountWhitelistVolumeMultiple:
		if a.TargetAddress != "" {
			return fmt.Sprintf("%s %.2fx volume of %s", a.Direction, a.Value, shortAddr(a.TargetAddress))
		}
		return fmt.Sprintf("%s %.2fx %s volume", a.Direction, a.Value, a.VolumeSide)
	default:
		return string(a.Direction)
	}
}

// bundleIDs joins successful bundle ids for the log message.
func bundleIDs(results []domain.SubmissionResult) string {
	ids := ""
	for _, r := range results {
		if r.BundleID == "" {
			continue
		}
		if ids != "" {
			ids += ", "
		}
		ids += r.BundleID
	}
	if ids == "" {
		return "submitted"
	}
	return "bundle " + ids
}

// criticalAttempts reports the attempt count of the first bundle, the only
// one retried. Later bundles are best-effort single attempts.
func criticalAttempts(results []domain.SubmissionResult) int {
	if len(results) == 0 {
		return 0
	}
	return results[0].Attempts
}

// shortAddr abbreviates a base58 address for log readability.
func shortAddr(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}
