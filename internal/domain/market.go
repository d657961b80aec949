package domain

import "time"

// TradeType is the side of an observed market trade.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is a single observed market trade.
type Trade struct {
	Type      TradeType
	Amount    float64 // native units (SOL)
	Price     float64
	Address   string // trader wallet, base58
	Timestamp time.Time
}

// AddressActivity holds per-address trading metrics for a tracked wallet.
type AddressActivity struct {
	BuyVolume  float64
	SellVolume float64
	LastTrade  *Trade
}

// NetVolume returns buy volume minus sell volume.
func (a AddressActivity) NetVolume() float64 {
	return a.BuyVolume - a.SellVolume
}

// MarketSnapshot is an immutable point-in-time view of aggregate and
// per-address trading activity. Produced by the feed; the automation core
// only reads it.
type MarketSnapshot struct {
	// Cumulative volumes since the last reset.
	BuyVolume  float64
	SellVolume float64

	LastTrade *Trade
	MarketCap float64

	// PriceChangePct is the percentage price move over the feed's
	// lookback window.
	PriceChangePct float64

	// Whitelist maps tracked address -> activity record.
	Whitelist map[string]AddressActivity

	TakenAt time.Time
}

// NetVolume returns aggregate buy volume minus sell volume.
func (s *MarketSnapshot) NetVolume() float64 {
	return s.BuyVolume - s.SellVolume
}
