// Package feed maintains the live market view: a websocket trade stream
// feeding a snapshot builder. Snapshots handed to the automation core are
// immutable copies; the core never mutates one.
package feed

import (
	"sync"
	"time"

	"solana-autotrader/internal/domain"
)

// DefaultPriceLookback is the window for the price-change percentage.
const DefaultPriceLookback = 5 * time.Minute

type pricePoint struct {
	at    time.Time
	price float64
}

// SnapshotBuilder accumulates trades into aggregate volumes, last-trade
// state and per-whitelisted-address activity, and produces immutable
// snapshots on demand.
type SnapshotBuilder struct {
	mu sync.RWMutex

	buyVolume  float64
	sellVolume float64
	lastTrade  *domain.Trade
	marketCap  float64

	tracked  map[string]bool
	activity map[string]*domain.AddressActivity

	prices   []pricePoint
	lookback time.Duration

	now func() time.Time
}

// BuilderOption configures a SnapshotBuilder.
type BuilderOption func(*SnapshotBuilder)

// WithPriceLookback sets the price-change window.
func WithPriceLookback(d time.Duration) BuilderOption {
	return func(b *SnapshotBuilder) {
		b.lookback = d
	}
}

// WithNowFunc overrides the time source for tests.
func WithNowFunc(now func() time.Time) BuilderOption {
	return func(b *SnapshotBuilder) {
		b.now = now
	}
}

// NewSnapshotBuilder creates an empty builder.
func NewSnapshotBuilder(opts ...BuilderOption) *SnapshotBuilder {
	b := &SnapshotBuilder{
		tracked:  make(map[string]bool),
		activity: make(map[string]*domain.AddressActivity),
		lookback: DefaultPriceLookback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Track adds an address to the whitelist-activity set.
func (b *SnapshotBuilder) Track(address string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracked[address] = true
}

// Untrack removes an address and its accumulated activity.
func (b *SnapshotBuilder) Untrack(address string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tracked, address)
	delete(b.activity, address)
}

// Apply folds one observed trade into the aggregates.
func (b *SnapshotBuilder) Apply(t domain.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch t.Type {
	case domain.TradeBuy:
		b.buyVolume += t.Amount
	case domain.TradeSell:
		b.sellVolume += t.Amount
	}

	trade := t
	b.lastTrade = &trade

	if t.Price > 0 {
		b.prices = append(b.prices, pricePoint{at: t.Timestamp, price: t.Price})
		b.prunePrices()
	}

	if b.tracked[t.Address] {
		a := b.activity[t.Address]
		if a == nil {
			a = &domain.AddressActivity{}
			b.activity[t.Address] = a
		}
		switch t.Type {
		case domain.TradeBuy:
			a.BuyVolume += t.Amount
		case domain.TradeSell:
			a.SellVolume += t.Amount
		}
		addrTrade := t
		a.LastTrade = &addrTrade
	}
}

// SetMarketCap records the latest market capitalization.
func (b *SnapshotBuilder) SetMarketCap(cap float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marketCap = cap
}

// Reset zeroes the cumulative aggregates and per-address activity while
// keeping the tracked address set and last market cap.
func (b *SnapshotBuilder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buyVolume = 0
	b.sellVolume = 0
	b.lastTrade = nil
	b.prices = nil
	b.activity = make(map[string]*domain.AddressActivity)
}

// Snapshot returns an immutable copy of the current market view.
func (b *SnapshotBuilder) Snapshot() *domain.MarketSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := &domain.MarketSnapshot{
		BuyVolume:      b.buyVolume,
		SellVolume:     b.sellVolume,
		MarketCap:      b.marketCap,
		PriceChangePct: b.priceChangePct(),
		Whitelist:      make(map[string]domain.AddressActivity, len(b.activity)),
		TakenAt:        b.now(),
	}

	if b.lastTrade != nil {
		trade := *b.lastTrade
		snap.LastTrade = &trade
	}

	for addr, a := range b.activity {
		copied := *a
		if a.LastTrade != nil {
			trade := *a.LastTrade
			copied.LastTrade = &trade
		}
		snap.Whitelist[addr] = copied
	}

	return snap
}

// priceChangePct computes the percentage move across the retained window.
// Caller must hold at least a read lock.
func (b *SnapshotBuilder) priceChangePct() float64 {
	if len(b.prices) < 2 {
		return 0
	}
	first := b.prices[0].price
	last := b.prices[len(b.prices)-1].price
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

// prunePrices drops points older than the lookback window. Caller must
// hold the write lock.
func (b *SnapshotBuilder) prunePrices() {
	cutoff := b.now().Add(-b.lookback)
	i := 0
	for i < len(b.prices) && b.prices[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.prices = append([]pricePoint(nil), b.prices[i:]...)
	}
}
