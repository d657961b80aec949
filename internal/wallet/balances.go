package wallet

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultRefreshInterval is the balance polling period.
const DefaultRefreshInterval = 30 * time.Second

// Balance pairs a wallet address with its last known native balance.
type Balance struct {
	Address string
	SOL     float64
}

// BalanceFetcher retrieves one wallet's native balance.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, address string) (float64, error)
}

// BalanceTracker polls wallet balances on an interval and caches them.
// Reads never block on the network; the resolver's balance checks hit the
// cache only. A fetch failure keeps the previous value.
type BalanceTracker struct {
	keyring  *Keyring
	fetcher  BalanceFetcher
	interval time.Duration
	logger   *log.Logger

	mu       sync.RWMutex
	balances map[string]float64
}

// NewBalanceTracker creates a tracker over the keyring's wallet set.
func NewBalanceTracker(keyring *Keyring, fetcher BalanceFetcher, interval time.Duration, logger *log.Logger) *BalanceTracker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[balances] ", log.LstdFlags)
	}
	return &BalanceTracker{
		keyring:  keyring,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		balances: make(map[string]float64),
	}
}

// Run refreshes immediately, then on every interval until the context is
// cancelled.
func (t *BalanceTracker) Run(ctx context.Context) {
	t.Refresh(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Refresh(ctx)
		}
	}
}

// Refresh fetches every wallet's balance once.
func (t *BalanceTracker) Refresh(ctx context.Context) {
	for _, addr := range t.keyring.Addresses() {
		sol, err := t.fetcher.GetBalance(ctx, addr)
		if err != nil {
			t.logger.Printf("balance %s: %v", addr, err)
			continue
		}
		t.mu.Lock()
		t.balances[addr] = sol
		t.mu.Unlock()
	}
}

// Balances returns cached balances in keyring insertion order. Wallets
// never fetched successfully report zero.
func (t *BalanceTracker) Balances() []Balance {
	addrs := t.keyring.Addresses()

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Balance, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, Balance{Address: addr, SOL: t.balances[addr]})
	}
	return out
}

// Set records a balance directly. Used by tests and memory mode.
func (t *BalanceTracker) Set(address string, sol float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[address] = sol
}
